package typeimport

import (
	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/dbcapabilities"
)

// Dialect overrides the default code rules for one database family. Names
// is keyed by lower-cased vendor type name without parameters and wins over
// Codes, which wins over the defaults. Other handles codes no table knows.
// A rule may return nil to fall through.
type Dialect struct {
	ID            dbcapabilities.DatabaseID
	Names         map[string]Rule
	Codes         map[am.SQLType]Rule
	Other         Rule
	ArrayElements map[string]am.Type
}

func fixed(t am.Type) Rule {
	return func(*Importer, Descriptor) am.Type { return t }
}

// Default applies the standard code rules only.
var Default = &Dialect{
	ArrayElements: map[string]am.Type{
		"_char":    am.SimpleString{Names: sameNames("CHARACTER")},
		"_abstime": timeType(false),
	},
}

// DialectFor returns the dialect for a database family, or Default.
func DialectFor(id dbcapabilities.DatabaseID) *Dialect {
	switch id {
	case dbcapabilities.PostgreSQL, dbcapabilities.CockroachDB:
		return Postgres
	case dbcapabilities.MySQL, dbcapabilities.MariaDB:
		return MySQL
	case dbcapabilities.SQLServer:
		return SQLServer
	case dbcapabilities.Oracle:
		return Oracle
	}
	return Default
}

// Postgres covers PostgreSQL and wire-compatible engines.
var Postgres = &Dialect{
	ID: dbcapabilities.PostgreSQL,
	Names: map[string]Rule{
		"int2":        fixed(smallIntType()),
		"int4":        fixed(integerType()),
		"int8":        fixed(bigIntType()),
		"oid":         fixed(bigIntType()),
		"float4":      fixed(realType()),
		"float8":      fixed(doubleType()),
		"bool":        fixed(booleanType()),
		"bpchar":      func(_ *Importer, d Descriptor) am.Type { return charType("CHARACTER", d.Size) },
		"text":        func(_ *Importer, d Descriptor) am.Type { return clobType("CHARACTER LARGE OBJECT", d.Size) },
		"json":        fixed(clobType("CHARACTER LARGE OBJECT", 0)),
		"jsonb":       fixed(clobType("CHARACTER LARGE OBJECT", 0)),
		"xml":         fixed(clobType("CHARACTER LARGE OBJECT", 0)),
		"bytea":       fixed(blobType(0)),
		"uuid":        fixed(charType("CHARACTER", 36)),
		"money":       fixed(exactType("DECIMAL", 19, 2)),
		"timestamptz": fixed(timestampType(true)),
		"timetz":      fixed(timeType(true)),
	},
	ArrayElements: map[string]am.Type{
		"_char":        am.SimpleString{Names: sameNames("CHARACTER")},
		"_bpchar":      am.SimpleString{Names: sameNames("CHARACTER")},
		"_varchar":     varcharType("CHARACTER VARYING", 0),
		"_text":        varcharType("CHARACTER VARYING", 0),
		"_bool":        booleanType(),
		"_bit":         booleanType(),
		"_int2":        smallIntType(),
		"_int4":        integerType(),
		"_int8":        bigIntType(),
		"_numeric":     exactType("NUMERIC", 0, 0),
		"_float4":      realType(),
		"_float8":      doubleType(),
		"_date":        dateType(),
		"_time":        timeType(false),
		"_abstime":     timeType(false),
		"_timestamp":   timestampType(false),
		"_timestamptz": timestampType(true),
	},
}

// MySQL covers MySQL and MariaDB.
var MySQL = &Dialect{
	ID: dbcapabilities.MySQL,
	Names: map[string]Rule{
		"tinyint": func(_ *Importer, d Descriptor) am.Type {
			if d.Size == 1 {
				return booleanType()
			}
			return smallIntType()
		},
		"year":               fixed(smallIntType()),
		"mediumint":          fixed(integerType()),
		"unsigned tinyint":   fixed(smallIntType()),
		"unsigned smallint":  fixed(integerType()),
		"unsigned mediumint": fixed(integerType()),
		"unsigned int":       fixed(bigIntType()),
		"unsigned bigint":    fixed(exactType("NUMERIC", 20, 0)),
		"tinytext":           func(_ *Importer, d Descriptor) am.Type { return clobType("CHARACTER LARGE OBJECT", d.Size) },
		"text":               func(_ *Importer, d Descriptor) am.Type { return clobType("CHARACTER LARGE OBJECT", d.Size) },
		"mediumtext":         func(_ *Importer, d Descriptor) am.Type { return clobType("CHARACTER LARGE OBJECT", d.Size) },
		"longtext":           func(_ *Importer, d Descriptor) am.Type { return clobType("CHARACTER LARGE OBJECT", d.Size) },
		"json":               fixed(clobType("CHARACTER LARGE OBJECT", 0)),
		"tinyblob":           func(_ *Importer, d Descriptor) am.Type { return blobType(d.Size) },
		"blob":               func(_ *Importer, d Descriptor) am.Type { return blobType(d.Size) },
		"mediumblob":         func(_ *Importer, d Descriptor) am.Type { return blobType(d.Size) },
		"longblob":           func(_ *Importer, d Descriptor) am.Type { return blobType(d.Size) },
		"enum":               func(_ *Importer, d Descriptor) am.Type { return varcharType("CHARACTER VARYING", d.Size) },
		"set":                func(_ *Importer, d Descriptor) am.Type { return varcharType("CHARACTER VARYING", d.Size) },
		"datetime":           fixed(timestampType(false)),
	},
}

// sqlServerMaxInline is the largest declared length of a non-max column.
const sqlServerMaxInline = 8000

// SQLServer covers Microsoft SQL Server.
var SQLServer = &Dialect{
	ID: dbcapabilities.SQLServer,
	Names: map[string]Rule{
		"bit":              fixed(booleanType()),
		"tinyint":          fixed(smallIntType()),
		"uniqueidentifier": fixed(charType("CHARACTER", 36)),
		"datetime":         fixed(timestampType(false)),
		"datetime2":        fixed(timestampType(false)),
		"smalldatetime":    fixed(timestampType(false)),
		"datetimeoffset":   fixed(timestampType(true)),
		"text":             fixed(clobType("CHARACTER LARGE OBJECT", 0)),
		"ntext":            fixed(clobType("NATIONAL CHARACTER LARGE OBJECT", 0)),
		"xml":              fixed(clobType("NATIONAL CHARACTER LARGE OBJECT", 0)),
		"image":            fixed(blobType(0)),
		"money":            fixed(exactType("DECIMAL", 19, 4)),
		"smallmoney":       fixed(exactType("DECIMAL", 10, 4)),
		"varchar": func(_ *Importer, d Descriptor) am.Type {
			if d.Size <= 0 || d.Size > sqlServerMaxInline {
				return clobType("CHARACTER LARGE OBJECT", 0)
			}
			return varcharType("CHARACTER VARYING", d.Size)
		},
		"nvarchar": func(_ *Importer, d Descriptor) am.Type {
			if d.Size <= 0 || d.Size > sqlServerMaxInline {
				return clobType("NATIONAL CHARACTER LARGE OBJECT", 0)
			}
			return varcharType("NATIONAL CHARACTER VARYING", d.Size)
		},
		"varbinary": func(_ *Importer, d Descriptor) am.Type {
			if d.Size <= 0 || d.Size > sqlServerMaxInline {
				return blobType(0)
			}
			return varbinaryType(d.Size)
		},
	},
}

// Vendor codes Oracle drivers report outside the standard set.
const (
	oracleBinaryFloat  am.SQLType = 100
	oracleBinaryDouble am.SQLType = 101
)

// Oracle covers Oracle Database.
var Oracle = &Dialect{
	ID: dbcapabilities.Oracle,
	Names: map[string]Rule{
		"number": func(_ *Importer, d Descriptor) am.Type {
			// Unconstrained NUMBER is a decimal float.
			if d.Size == 0 && (d.Scale == -127 || d.Scale == 0) {
				return floatType(126)
			}
			return exactType("NUMERIC", d.Size, d.Scale)
		},
		"binary_float":  fixed(realType()),
		"binary_double": fixed(doubleType()),
		"date":          fixed(timestampType(false)),
		"raw":           func(_ *Importer, d Descriptor) am.Type { return varbinaryType(d.Size) },
		"long raw":      fixed(blobType(0)),
		"long":          fixed(clobType("CHARACTER LARGE OBJECT", 0)),
		"xmltype":       fixed(clobType("CHARACTER LARGE OBJECT", 0)),
		"varchar2":      func(_ *Importer, d Descriptor) am.Type { return varcharType("CHARACTER VARYING", d.Size) },
		"nvarchar2":     func(_ *Importer, d Descriptor) am.Type { return varcharType("NATIONAL CHARACTER VARYING", d.Size) },
		"rowid":         fixed(varcharType("CHARACTER VARYING", 18)),
		"urowid":        fixed(varcharType("CHARACTER VARYING", 4000)),
	},
	Other: func(imp *Importer, d Descriptor) am.Type {
		switch d.Code {
		case oracleBinaryFloat:
			return realType()
		case oracleBinaryDouble:
			return doubleType()
		}
		return nil
	},
}
