package sqlrows

import (
	"strings"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
)

// typeCodes maps driver type names to type codes. Vendor names that need
// more than a code are handled by the dialects.
var typeCodes = map[string]am.SQLType{
	"BIT":              am.TypeBit,
	"TINYINT":          am.TypeTinyInt,
	"SMALLINT":         am.TypeSmallInt,
	"INT2":             am.TypeSmallInt,
	"INT":              am.TypeInteger,
	"INTEGER":          am.TypeInteger,
	"INT4":             am.TypeInteger,
	"MEDIUMINT":        am.TypeInteger,
	"BIGINT":           am.TypeBigInt,
	"INT8":             am.TypeBigInt,
	"DECIMAL":          am.TypeDecimal,
	"NUMERIC":          am.TypeNumeric,
	"MONEY":            am.TypeDecimal,
	"SMALLMONEY":       am.TypeDecimal,
	"FLOAT":            am.TypeDouble,
	"FLOAT8":           am.TypeDouble,
	"DOUBLE":           am.TypeDouble,
	"DOUBLE PRECISION": am.TypeDouble,
	"REAL":             am.TypeReal,
	"FLOAT4":           am.TypeReal,
	"BOOL":             am.TypeBoolean,
	"BOOLEAN":          am.TypeBoolean,
	"CHAR":             am.TypeChar,
	"BPCHAR":           am.TypeChar,
	"NCHAR":            am.TypeNChar,
	"VARCHAR":          am.TypeVarchar,
	"NVARCHAR":         am.TypeNVarchar,
	"TEXT":             am.TypeClob,
	"NTEXT":            am.TypeNClob,
	"CLOB":             am.TypeClob,
	"NCLOB":            am.TypeNClob,
	"BINARY":           am.TypeBinary,
	"VARBINARY":        am.TypeVarBinary,
	"IMAGE":            am.TypeLongVarBinary,
	"BYTEA":            am.TypeBlob,
	"BLOB":             am.TypeBlob,
	"DATE":             am.TypeDate,
	"TIME":             am.TypeTime,
	"TIMETZ":           am.TypeTimeWithTimezone,
	"TIMESTAMP":        am.TypeTimestamp,
	"DATETIME":         am.TypeTimestamp,
	"DATETIME2":        am.TypeTimestamp,
	"SMALLDATETIME":    am.TypeTimestamp,
	"TIMESTAMPTZ":      am.TypeTimestampWithTimezone,
	"DATETIMEOFFSET":   am.TypeTimestampWithTimezone,
	"XML":              am.TypeSQLXML,
	"UNIQUEIDENTIFIER": am.TypeChar,
	"UUID":             am.TypeChar,
}

// CodeFor returns the type code for a driver type name. Arrays map to
// TypeArray and unknown names to TypeOther.
func CodeFor(name string) am.SQLType {
	if IsArrayType(name) {
		return am.TypeArray
	}
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "UNSIGNED ")
	if code, ok := typeCodes[n]; ok {
		return code
	}
	return am.TypeOther
}
