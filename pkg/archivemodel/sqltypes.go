package archivemodel

import "fmt"

// SQLType is a standard SQL type code as reported by database drivers.
type SQLType int

const (
	TypeBit                   SQLType = -7
	TypeTinyInt               SQLType = -6
	TypeSmallInt              SQLType = 5
	TypeInteger               SQLType = 4
	TypeBigInt                SQLType = -5
	TypeFloat                 SQLType = 6
	TypeReal                  SQLType = 7
	TypeDouble                SQLType = 8
	TypeNumeric               SQLType = 2
	TypeDecimal               SQLType = 3
	TypeChar                  SQLType = 1
	TypeVarchar               SQLType = 12
	TypeLongVarchar           SQLType = -1
	TypeDate                  SQLType = 91
	TypeTime                  SQLType = 92
	TypeTimestamp             SQLType = 93
	TypeBinary                SQLType = -2
	TypeVarBinary             SQLType = -3
	TypeLongVarBinary         SQLType = -4
	TypeNull                  SQLType = 0
	TypeOther                 SQLType = 1111
	TypeJavaObject            SQLType = 2000
	TypeDistinct              SQLType = 2001
	TypeStruct                SQLType = 2002
	TypeArray                 SQLType = 2003
	TypeBlob                  SQLType = 2004
	TypeClob                  SQLType = 2005
	TypeRef                   SQLType = 2006
	TypeDataLink              SQLType = 70
	TypeBoolean               SQLType = 16
	TypeRowID                 SQLType = -8
	TypeNChar                 SQLType = -15
	TypeNVarchar              SQLType = -9
	TypeLongNVarchar          SQLType = -16
	TypeNClob                 SQLType = 2011
	TypeSQLXML                SQLType = 2009
	TypeTimeWithTimezone      SQLType = 2013
	TypeTimestampWithTimezone SQLType = 2014
)

var sqlTypeNames = map[SQLType]string{
	TypeBit:                   "BIT",
	TypeTinyInt:               "TINYINT",
	TypeSmallInt:              "SMALLINT",
	TypeInteger:               "INTEGER",
	TypeBigInt:                "BIGINT",
	TypeFloat:                 "FLOAT",
	TypeReal:                  "REAL",
	TypeDouble:                "DOUBLE",
	TypeNumeric:               "NUMERIC",
	TypeDecimal:               "DECIMAL",
	TypeChar:                  "CHAR",
	TypeVarchar:               "VARCHAR",
	TypeLongVarchar:           "LONGVARCHAR",
	TypeDate:                  "DATE",
	TypeTime:                  "TIME",
	TypeTimestamp:             "TIMESTAMP",
	TypeBinary:                "BINARY",
	TypeVarBinary:             "VARBINARY",
	TypeLongVarBinary:         "LONGVARBINARY",
	TypeNull:                  "NULL",
	TypeOther:                 "OTHER",
	TypeJavaObject:            "JAVA_OBJECT",
	TypeDistinct:              "DISTINCT",
	TypeStruct:                "STRUCT",
	TypeArray:                 "ARRAY",
	TypeBlob:                  "BLOB",
	TypeClob:                  "CLOB",
	TypeRef:                   "REF",
	TypeDataLink:              "DATALINK",
	TypeBoolean:               "BOOLEAN",
	TypeRowID:                 "ROWID",
	TypeNChar:                 "NCHAR",
	TypeNVarchar:              "NVARCHAR",
	TypeLongNVarchar:          "LONGNVARCHAR",
	TypeNClob:                 "NCLOB",
	TypeSQLXML:                "SQLXML",
	TypeTimeWithTimezone:      "TIME_WITH_TIMEZONE",
	TypeTimestampWithTimezone: "TIMESTAMP_WITH_TIMEZONE",
}

func (t SQLType) String() string {
	if name, ok := sqlTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SQLType(%d)", int(t))
}

// Known reports whether t is one of the standard codes.
func (t SQLType) Known() bool {
	_, ok := sqlTypeNames[t]
	return ok
}
