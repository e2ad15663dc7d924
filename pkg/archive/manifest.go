// Package archive drives whole-table export and verification on top of the
// content codec, and keeps the table manifest that lets an archive be read
// back without the source database.
package archive

import (
	"context"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/container"
	"github.com/redbco/redb-archive/pkg/content"
	"github.com/redbco/redb-archive/pkg/typeimport"
)

// ManifestPath is the location of the manifest inside the main archive.
const ManifestPath = "header/manifest.yaml"

// Manifest lists the tables of an archive with their column types in the
// portable naming conventions.
type Manifest struct {
	Version string       `yaml:"version"`
	Tables  []TableEntry `yaml:"tables"`
}

type TableEntry struct {
	Schema      string        `yaml:"schema"`
	Name        string        `yaml:"name"`
	SchemaIndex int           `yaml:"schemaIndex"`
	Index       int           `yaml:"index"`
	Rows        int64         `yaml:"rows"`
	Lobs        int           `yaml:"lobs"`
	Columns     []ColumnEntry `yaml:"columns"`
}

// ColumnEntry records a column type. Structures are recorded by name with
// their fields so they can be registered before the columns are resolved.
type ColumnEntry struct {
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type"`
	SQL99    string        `yaml:"sql99,omitempty"`
	Original string        `yaml:"original,omitempty"`
	Nullable bool          `yaml:"nullable,omitempty"`
	Schema   string        `yaml:"schema,omitempty"`
	Fields   []ColumnEntry `yaml:"fields,omitempty"`
	MaxArray int           `yaml:"maxArray,omitempty"`
}

func typeName(t am.Type) string {
	n := t.TypeNames()
	if _, ok := t.(am.ComposedStructure); ok {
		return n.Original
	}
	if std := n.Standard(); std != "" {
		return std
	}
	return n.Original
}

func columnEntry(name string, t am.Type, nullable bool) ColumnEntry {
	e := ColumnEntry{
		Name:     name,
		Type:     typeName(t),
		SQL99:    t.TypeNames().SQL99,
		Original: t.TypeNames().Original,
		Nullable: nullable,
	}
	if st, ok := t.(am.ComposedStructure); ok {
		e.Schema = st.Schema
		for _, f := range st.Fields {
			e.Fields = append(e.Fields, columnEntry(f.Name, f.Type, true))
		}
	}
	return e
}

// NewTableEntry describes a written table.
func NewTableEntry(t content.Table, summary content.TableSummary) TableEntry {
	e := TableEntry{
		Schema:      t.SchemaName,
		Name:        t.Name,
		SchemaIndex: t.SchemaIndex,
		Index:       t.Index,
		Rows:        summary.Rows,
		Lobs:        summary.Lobs,
	}
	for i, col := range t.Columns {
		c := columnEntry(col.Name, col.Type, col.Nullable)
		c.MaxArray = summary.MaxArrayLength[i+1]
		e.Columns = append(e.Columns, c)
	}
	return e
}

// Add records a table, replacing an earlier entry at the same position.
func (m *Manifest) Add(e TableEntry) {
	for i, t := range m.Tables {
		if t.SchemaIndex == e.SchemaIndex && t.Index == e.Index {
			m.Tables[i] = e
			return
		}
	}
	m.Tables = append(m.Tables, e)
	sort.Slice(m.Tables, func(i, j int) bool {
		a, b := m.Tables[i], m.Tables[j]
		if a.SchemaIndex != b.SchemaIndex {
			return a.SchemaIndex < b.SchemaIndex
		}
		return a.Index < b.Index
	})
}

// Find returns the entry of a table by schema and table name.
func (m *Manifest) Find(schema, table string) (TableEntry, bool) {
	for _, t := range m.Tables {
		if t.Schema == schema && t.Name == table {
			return t, true
		}
	}
	return TableEntry{}, false
}

// ResolveTables rebuilds the tables with their types. Structures are
// registered with imp first so columns can refer to them by name.
func (m *Manifest) ResolveTables(imp *typeimport.Importer) ([]content.Table, error) {
	for _, t := range m.Tables {
		for _, c := range t.Columns {
			if err := registerStructures(imp, c); err != nil {
				return nil, fmt.Errorf("table %s.%s: %w", t.Schema, t.Name, err)
			}
		}
	}

	tables := make([]content.Table, 0, len(m.Tables))
	for _, t := range m.Tables {
		table := content.Table{SchemaName: t.Schema, Name: t.Name, SchemaIndex: t.SchemaIndex, Index: t.Index}
		for _, c := range t.Columns {
			typ, err := resolve(imp, c)
			if err != nil {
				return nil, fmt.Errorf("table %s.%s column %s: %w", t.Schema, t.Name, c.Name, err)
			}
			table.Columns = append(table.Columns, content.Column{Name: c.Name, Type: typ, Nullable: c.Nullable})
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func resolve(imp *typeimport.Importer, c ColumnEntry) (am.Type, error) {
	if c.Type == "" && c.SQL99 != "" {
		return imp.ParseSQL99(c.SQL99, c.Original)
	}
	return imp.ParseStandardName(c.Type, c.Original)
}

func registerStructures(imp *typeimport.Importer, c ColumnEntry) error {
	if len(c.Fields) == 0 {
		return nil
	}
	var fields []am.StructField
	for _, f := range c.Fields {
		if err := registerStructures(imp, f); err != nil {
			return err
		}
		ft, err := resolve(imp, f)
		if err != nil {
			return fmt.Errorf("structure %s field %s: %w", c.Type, f.Name, err)
		}
		fields = append(fields, am.StructField{Name: f.Name, Type: ft})
	}
	return imp.Registry().Complete(c.Schema, c.Type, fields)
}

// WriteManifest stores m in the main archive.
func WriteManifest(ctx context.Context, store container.Store, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	w, err := store.Create(ctx, "", ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return w.Close()
}

// ReadManifest loads the manifest of an archive.
func ReadManifest(ctx context.Context, store container.Store) (*Manifest, error) {
	r, err := store.Open(ctx, "", ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
