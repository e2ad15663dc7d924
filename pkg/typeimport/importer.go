package typeimport

import (
	"strings"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/logger"
	"github.com/redbco/redb-archive/pkg/report"
)

// Descriptor is what a driver reports about one column.
type Descriptor struct {
	Schema   string
	Table    string
	Column   string
	Code     am.SQLType
	TypeName string
	Size     int
	Scale    int
	Radix    int
	Nullable bool
}

func (d Descriptor) location() report.Location {
	return report.Location{Schema: d.Schema, Table: d.Table, Column: d.Column}
}

// baseName lower-cases a vendor type name and drops any parameter list.
func baseName(typeName string) string {
	n := strings.ToLower(strings.TrimSpace(typeName))
	if i := strings.IndexByte(n, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(n[i:], ')'); j >= 0 {
			rest = n[i+j+1:]
		}
		n = strings.TrimSpace(n[:i]) + rest
	}
	return strings.Join(strings.Fields(n), " ")
}

func hasTimeZone(typeName string) bool {
	n := strings.ToUpper(typeName)
	return strings.Contains(n, "WITH TIME ZONE") || strings.Contains(n, "WITH LOCAL TIME ZONE")
}

// Rule classifies one column.
type Rule func(imp *Importer, d Descriptor) am.Type

var defaultRules = map[am.SQLType]Rule{
	am.TypeTinyInt:  func(*Importer, Descriptor) am.Type { return smallIntType() },
	am.TypeSmallInt: func(*Importer, Descriptor) am.Type { return smallIntType() },
	am.TypeInteger:  func(*Importer, Descriptor) am.Type { return integerType() },
	am.TypeBigInt:   func(*Importer, Descriptor) am.Type { return bigIntType() },
	am.TypeDecimal:  func(_ *Importer, d Descriptor) am.Type { return exactType("DECIMAL", d.Size, d.Scale) },
	am.TypeNumeric:  func(_ *Importer, d Descriptor) am.Type { return exactType("NUMERIC", d.Size, d.Scale) },
	am.TypeBit: func(_ *Importer, d Descriptor) am.Type {
		if d.Size <= 1 {
			return booleanType()
		}
		return bitStringType(d.Size)
	},
	am.TypeBoolean:       func(*Importer, Descriptor) am.Type { return booleanType() },
	am.TypeReal:          func(*Importer, Descriptor) am.Type { return realType() },
	am.TypeDouble:        func(*Importer, Descriptor) am.Type { return doubleType() },
	am.TypeFloat:         func(_ *Importer, d Descriptor) am.Type { return floatType(d.Size) },
	am.TypeChar:          func(_ *Importer, d Descriptor) am.Type { return charType("CHARACTER", d.Size) },
	am.TypeNChar:         func(_ *Importer, d Descriptor) am.Type { return charType("NATIONAL CHARACTER", d.Size) },
	am.TypeVarchar:       func(_ *Importer, d Descriptor) am.Type { return varcharType("CHARACTER VARYING", d.Size) },
	am.TypeNVarchar:      func(_ *Importer, d Descriptor) am.Type { return varcharType("NATIONAL CHARACTER VARYING", d.Size) },
	am.TypeLongVarchar:   func(_ *Importer, d Descriptor) am.Type { return clobType("CHARACTER LARGE OBJECT", d.Size) },
	am.TypeLongNVarchar:  func(_ *Importer, d Descriptor) am.Type { return clobType("NATIONAL CHARACTER LARGE OBJECT", d.Size) },
	am.TypeClob:          func(_ *Importer, d Descriptor) am.Type { return clobType("CHARACTER LARGE OBJECT", d.Size) },
	am.TypeNClob:         func(_ *Importer, d Descriptor) am.Type { return clobType("NATIONAL CHARACTER LARGE OBJECT", d.Size) },
	am.TypeBinary:        func(_ *Importer, d Descriptor) am.Type { return binaryType(d.Size) },
	am.TypeVarBinary:     func(_ *Importer, d Descriptor) am.Type { return varbinaryType(d.Size) },
	am.TypeLongVarBinary: func(_ *Importer, d Descriptor) am.Type { return varbinaryType(d.Size) },
	am.TypeBlob:          func(_ *Importer, d Descriptor) am.Type { return blobType(d.Size) },
	am.TypeDate:          func(*Importer, Descriptor) am.Type { return dateType() },
	am.TypeTime:          func(_ *Importer, d Descriptor) am.Type { return timeType(hasTimeZone(d.TypeName)) },
	am.TypeTimeWithTimezone: func(*Importer, Descriptor) am.Type {
		return timeType(true)
	},
	am.TypeTimestamp: func(_ *Importer, d Descriptor) am.Type { return timestampType(hasTimeZone(d.TypeName)) },
	am.TypeTimestampWithTimezone: func(*Importer, Descriptor) am.Type {
		return timestampType(true)
	},
	am.TypeArray:  (*Importer).importArray,
	am.TypeStruct: (*Importer).importStructure,
}

// Importer classifies vendor column descriptors into portable types.
type Importer struct {
	dialect  *Dialect
	registry *am.StructureRegistry
	log      *logger.Logger
	reporter report.Reporter
}

// NewImporter builds an importer. A nil dialect selects the default rules, a
// nil registry a fresh one.
func NewImporter(dialect *Dialect, registry *am.StructureRegistry, log *logger.Logger, rep report.Reporter) *Importer {
	if dialect == nil {
		dialect = Default
	}
	if registry == nil {
		registry = am.NewStructureRegistry()
	}
	return &Importer{
		dialect:  dialect,
		registry: registry,
		log:      logger.OrNop(log),
		reporter: report.OrNop(rep),
	}
}

// Dialect returns the dialect in use.
func (imp *Importer) Dialect() *Dialect { return imp.dialect }

// Registry returns the structure registry the importer resolves against.
func (imp *Importer) Registry() *am.StructureRegistry { return imp.registry }

// Import returns exactly one type for d. It never fails: anything it cannot
// classify becomes Unsupported.
func (imp *Importer) Import(d Descriptor) am.Type {
	t := imp.classify(d)
	if t.TypeNames().Original == "" {
		t = am.WithOriginalName(t, d.TypeName)
	}
	return t
}

func (imp *Importer) classify(d Descriptor) am.Type {
	if rule, ok := imp.dialect.Names[baseName(d.TypeName)]; ok {
		if t := rule(imp, d); t != nil {
			return t
		}
	}
	if rule, ok := imp.dialect.Codes[d.Code]; ok {
		if t := rule(imp, d); t != nil {
			return t
		}
	}
	if rule, ok := defaultRules[d.Code]; ok {
		return rule(imp, d)
	}
	if imp.dialect.Other != nil {
		if t := imp.dialect.Other(imp, d); t != nil {
			return t
		}
	}
	return imp.unsupported(d)
}

func (imp *Importer) unsupported(d Descriptor) am.Type {
	imp.log.Debugf("unsupported type %q (code %d) for %s.%s.%s", d.TypeName, int(d.Code), d.Schema, d.Table, d.Column)
	imp.reporter.UnsupportedType(d.location(), d.TypeName, int(d.Code))
	return unsupportedType(d)
}

func (imp *Importer) importArray(d Descriptor) am.Type {
	elem, ok := imp.dialect.ArrayElements[baseName(d.TypeName)]
	if !ok {
		imp.log.Debugf("unknown array element type %q for %s.%s.%s", d.TypeName, d.Schema, d.Table, d.Column)
		imp.reporter.UnsupportedType(d.location(), d.TypeName, int(am.TypeArray))
		elem = unsupportedType(Descriptor{Code: am.TypeArray, TypeName: d.TypeName, Size: d.Size, Scale: d.Scale, Radix: d.Radix})
	}
	return arrayType(elem)
}

func (imp *Importer) importStructure(d Descriptor) am.Type {
	var def am.ComposedStructure
	if found, _, ok := imp.registry.Lookup(d.Schema, d.TypeName); ok {
		def = found
	} else if found, ok := imp.registry.LookupAny(d.TypeName); ok {
		def = found
	} else {
		imp.log.Debugf("structured type %q not yet known, reserving placeholder", d.TypeName)
		def = imp.registry.Reserve(d.Schema, d.TypeName)
	}
	return structureType(def)
}

// Structures are named by their original name in both conventions and
// resolved through the registry when parsed back.
func structureType(def am.ComposedStructure) am.Type {
	def.SQL99 = def.Original
	def.SQL2008 = def.Original
	return def
}
