package archivemodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Names carries the vendor name of a type and its portable spellings.
// SQL99 is empty when the type has no SQL:1999 spelling.
type Names struct {
	Original string
	SQL99    string
	SQL2008  string
}

// TypeNames returns the names themselves; embedding Names satisfies part of Type.
func (n Names) TypeNames() Names { return n }

// Standard returns the SQL:2008 spelling, falling back to SQL:1999.
func (n Names) Standard() string {
	if n.SQL2008 != "" {
		return n.SQL2008
	}
	return n.SQL99
}

// Type is the portable classification of a column. The set of variants is closed.
type Type interface {
	TypeNames() Names
	isType()
}

// SimpleString is character data. Large marks character large objects.
type SimpleString struct {
	Names
	Length int
	Large  bool
}

// SimpleNumericExact is an integer or fixed-point decimal.
type SimpleNumericExact struct {
	Names
	Precision int
	Scale     int
}

// SimpleNumericApproximate is a binary floating point number.
type SimpleNumericApproximate struct {
	Names
	Precision int
}

// SimpleBinary is octet data. Large is only set for explicit large objects.
type SimpleBinary struct {
	Names
	Length int
	Large  bool
}

// SimpleBoolean is a truth value.
type SimpleBoolean struct {
	Names
}

// SimpleDateTime covers DATE, TIME and TIMESTAMP with or without zone.
type SimpleDateTime struct {
	Names
	TimePart bool
	TimeZone bool
}

// IsTimeOfDay tells TIME apart from TIMESTAMP; both carry a time part.
func (t SimpleDateTime) IsTimeOfDay() bool {
	if !t.TimePart {
		return false
	}
	std := strings.ToUpper(t.Standard())
	return strings.HasPrefix(std, "TIME") && !strings.HasPrefix(std, "TIMESTAMP")
}

// ComposedArray is a possibly multi-dimensional array of Element.
type ComposedArray struct {
	Names
	Element Type
}

// StructField is one attribute of a structured type.
type StructField struct {
	Name string
	Type Type
}

// ComposedStructure is a user-defined structured type. A structure without
// fields is a placeholder awaiting completion through a StructureRegistry.
type ComposedStructure struct {
	Names
	Schema string
	Fields []StructField
}

// Unsupported preserves everything the driver reported about a type we
// cannot classify.
type Unsupported struct {
	Names
	Code  SQLType
	Size  int
	Scale int
	Radix int
}

func (SimpleString) isType()             {}
func (SimpleNumericExact) isType()       {}
func (SimpleNumericApproximate) isType() {}
func (SimpleBinary) isType()             {}
func (SimpleBoolean) isType()            {}
func (SimpleDateTime) isType()           {}
func (ComposedArray) isType()            {}
func (ComposedStructure) isType()        {}
func (Unsupported) isType()              {}

// IsPlaceholder reports whether the structure still awaits its fields.
func (s ComposedStructure) IsPlaceholder() bool { return len(s.Fields) == 0 }

// Matches compares structure identity: schema and original name, case-insensitively.
func (s ComposedStructure) Matches(other ComposedStructure) bool {
	return strings.EqualFold(s.Schema, other.Schema) && strings.EqualFold(s.Original, other.Original)
}

// Kind is a short label for a Type variant.
type Kind string

const (
	KindString      Kind = "string"
	KindExact       Kind = "numeric-exact"
	KindApproximate Kind = "numeric-approximate"
	KindBinary      Kind = "binary"
	KindBoolean     Kind = "boolean"
	KindDateTime    Kind = "datetime"
	KindArray       Kind = "array"
	KindStructure   Kind = "structure"
	KindUnsupported Kind = "unsupported"
)

// KindOf returns the variant label of t.
func KindOf(t Type) Kind {
	switch t.(type) {
	case SimpleString:
		return KindString
	case SimpleNumericExact:
		return KindExact
	case SimpleNumericApproximate:
		return KindApproximate
	case SimpleBinary:
		return KindBinary
	case SimpleBoolean:
		return KindBoolean
	case SimpleDateTime:
		return KindDateTime
	case ComposedArray:
		return KindArray
	case ComposedStructure:
		return KindStructure
	default:
		return KindUnsupported
	}
}

// StandardName renders KEYWORD, KEYWORD(n) or KEYWORD(n,m).
func StandardName(keyword string, params ...int) string {
	if len(params) == 0 {
		return keyword
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strconv.Itoa(p)
	}
	return keyword + "(" + strings.Join(parts, ",") + ")"
}

// Describe renders t for humans, e.g. "string CHARACTER VARYING(10) [varchar]".
func Describe(t Type) string {
	if t == nil {
		return "<nil>"
	}
	n := t.TypeNames()
	std := n.Standard()
	if std == "" {
		std = "-"
	}
	return fmt.Sprintf("%s %s [%s]", KindOf(t), std, n.Original)
}

// WithOriginalName returns a copy of t whose original name is name.
func WithOriginalName(t Type, name string) Type {
	switch v := t.(type) {
	case SimpleString:
		v.Original = name
		return v
	case SimpleNumericExact:
		v.Original = name
		return v
	case SimpleNumericApproximate:
		v.Original = name
		return v
	case SimpleBinary:
		v.Original = name
		return v
	case SimpleBoolean:
		v.Original = name
		return v
	case SimpleDateTime:
		v.Original = name
		return v
	case ComposedArray:
		v.Original = name
		return v
	case ComposedStructure:
		v.Original = name
		return v
	case Unsupported:
		v.Original = name
		return v
	}
	return t
}

// IsLarge reports whether values of t may be stored as large objects.
func IsLarge(t Type) bool {
	switch v := t.(type) {
	case SimpleString:
		return v.Large
	case SimpleBinary:
		return v.Large
	}
	return false
}

// Equal compares variant and parameters. Names are ignored except for
// structure identity.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case SimpleString:
		y, ok := b.(SimpleString)
		return ok && x.Length == y.Length && x.Large == y.Large
	case SimpleNumericExact:
		y, ok := b.(SimpleNumericExact)
		return ok && x.Precision == y.Precision && x.Scale == y.Scale
	case SimpleNumericApproximate:
		y, ok := b.(SimpleNumericApproximate)
		return ok && x.Precision == y.Precision
	case SimpleBinary:
		y, ok := b.(SimpleBinary)
		return ok && x.Length == y.Length && x.Large == y.Large
	case SimpleBoolean:
		_, ok := b.(SimpleBoolean)
		return ok
	case SimpleDateTime:
		y, ok := b.(SimpleDateTime)
		return ok && x.TimePart == y.TimePart && x.TimeZone == y.TimeZone
	case ComposedArray:
		y, ok := b.(ComposedArray)
		return ok && Equal(x.Element, y.Element)
	case ComposedStructure:
		y, ok := b.(ComposedStructure)
		return ok && x.Matches(y)
	case Unsupported:
		y, ok := b.(Unsupported)
		return ok && x.Code == y.Code && x.Size == y.Size && x.Scale == y.Scale
	case nil:
		return b == nil
	}
	return false
}

// Compatible reports whether a cell of c's variant may appear in a column of type t.
func Compatible(t Type, c Cell) bool {
	switch c.(type) {
	case *NullCell:
		return true
	case *SimpleCell:
		switch t.(type) {
		case SimpleString, SimpleNumericExact, SimpleNumericApproximate,
			SimpleBoolean, SimpleDateTime, Unsupported:
			return true
		}
	case *BinaryCell:
		_, ok := t.(SimpleBinary)
		return ok
	case *ComposedCell:
		_, ok := t.(ComposedStructure)
		return ok
	case *ArrayCell:
		_, ok := t.(ComposedArray)
		return ok
	}
	return false
}
