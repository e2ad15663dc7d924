package archivemodel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// StructureState tracks whether a registered structure has its fields.
type StructureState int

const (
	StatePlaceholder StructureState = iota
	StateComplete
)

func (s StructureState) String() string {
	if s == StateComplete {
		return "complete"
	}
	return "placeholder"
}

var (
	// ErrStructureConflict is returned when a structure is completed twice with different fields.
	ErrStructureConflict = errors.New("structure already defined with different fields")

	// ErrStructureNotFound is returned by lookups that require a registered structure.
	ErrStructureNotFound = errors.New("structure not found")
)

type structureKey struct {
	schema string
	name   string
}

func keyOf(schema, name string) structureKey {
	return structureKey{schema: strings.ToLower(schema), name: strings.ToLower(name)}
}

type structureEntry struct {
	state StructureState
	def   ComposedStructure
}

// StructureRegistry holds the structured types of one database, keyed by
// schema and name. It is written during discovery and read concurrently after.
type StructureRegistry struct {
	mu      sync.RWMutex
	entries map[structureKey]*structureEntry
	order   []structureKey
}

// NewStructureRegistry returns an empty registry.
func NewStructureRegistry() *StructureRegistry {
	return &StructureRegistry{entries: make(map[structureKey]*structureEntry)}
}

// Reserve returns the registered structure, registering a placeholder if absent.
func (r *StructureRegistry) Reserve(schema, name string) ComposedStructure {
	k := keyOf(schema, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[k]; ok {
		return e.def
	}
	def := ComposedStructure{Names: Names{Original: name}, Schema: schema}
	r.entries[k] = &structureEntry{state: StatePlaceholder, def: def}
	r.order = append(r.order, k)
	return def
}

// Complete supplies the fields of a structure, defining it if needed.
func (r *StructureRegistry) Complete(schema, name string, fields []StructField) error {
	if len(fields) == 0 {
		return fmt.Errorf("structure %s.%s: no fields", schema, name)
	}
	k := keyOf(schema, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[k]
	if !ok {
		e = &structureEntry{def: ComposedStructure{Names: Names{Original: name}, Schema: schema}}
		r.entries[k] = e
		r.order = append(r.order, k)
	}
	if e.state == StateComplete {
		if !sameFields(e.def.Fields, fields) {
			return fmt.Errorf("structure %s.%s: %w", schema, name, ErrStructureConflict)
		}
		return nil
	}
	copied := make([]StructField, len(fields))
	copy(copied, fields)
	e.def.Fields = copied
	e.state = StateComplete
	return nil
}

func sameFields(a, b []StructField) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i].Name, b[i].Name) || !Equal(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}

// Lookup finds a structure within one schema.
func (r *StructureRegistry) Lookup(schema, name string) (ComposedStructure, StructureState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[keyOf(schema, name)]
	if !ok {
		return ComposedStructure{}, StatePlaceholder, false
	}
	return e.def, e.state, true
}

// LookupAny finds a structure by name in any schema, preferring complete
// definitions and then registration order.
func (r *StructureRegistry) LookupAny(name string) (ComposedStructure, bool) {
	lname := strings.ToLower(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *structureEntry
	for _, k := range r.order {
		if k.name != lname {
			continue
		}
		e := r.entries[k]
		if e.state == StateComplete {
			return e.def, true
		}
		if found == nil {
			found = e
		}
	}
	if found == nil {
		return ComposedStructure{}, false
	}
	return found.def, true
}

// Resolve replaces placeholder structure references in t with their
// complete definitions. Fields referring back to a structure being
// resolved are left as references.
func (r *StructureRegistry) Resolve(t Type) Type {
	return r.resolve(t, map[structureKey]bool{})
}

func (r *StructureRegistry) resolve(t Type, visiting map[structureKey]bool) Type {
	switch v := t.(type) {
	case ComposedArray:
		v.Element = r.resolve(v.Element, visiting)
		return v
	case ComposedStructure:
		k := keyOf(v.Schema, v.Original)
		if visiting[k] {
			return v
		}
		def, state, ok := r.Lookup(v.Schema, v.Original)
		if !ok || state != StateComplete {
			return v
		}
		visiting[k] = true
		defer delete(visiting, k)
		fields := make([]StructField, len(def.Fields))
		for i, f := range def.Fields {
			fields[i] = StructField{Name: f.Name, Type: r.resolve(f.Type, visiting)}
		}
		def.Fields = fields
		if v.SQL2008 != "" || v.SQL99 != "" {
			def.Names = v.Names
		}
		return def
	}
	return t
}

// Pending lists structures that were reserved but never completed.
func (r *StructureRegistry) Pending() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, k := range r.order {
		e := r.entries[k]
		if e.state == StatePlaceholder {
			out = append(out, e.def.Schema+"."+e.def.Original)
		}
	}
	sort.Strings(out)
	return out
}

// Len is the number of registered structures.
func (r *StructureRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
