package typeimport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/dbcapabilities"
	"github.com/redbco/redb-archive/pkg/report"
)

func col(code am.SQLType, name string, size, scale int) Descriptor {
	return Descriptor{Schema: "public", Table: "t", Column: "c", Code: code, TypeName: name, Size: size, Scale: scale, Radix: 10}
}

func TestImportDefaultRules(t *testing.T) {
	imp := NewImporter(nil, nil, nil, nil)

	tests := []struct {
		name    string
		desc    Descriptor
		want    am.Type
		sql2008 string
	}{
		{"tinyint", col(am.TypeTinyInt, "tinyint", 3, 0), am.SimpleNumericExact{Precision: 5}, "SMALLINT"},
		{"integer", col(am.TypeInteger, "int", 10, 0), am.SimpleNumericExact{Precision: 10}, "INTEGER"},
		{"bigint", col(am.TypeBigInt, "bigint", 19, 0), am.SimpleNumericExact{Precision: 19}, "BIGINT"},
		{"decimal with scale", col(am.TypeDecimal, "decimal", 10, 2), am.SimpleNumericExact{Precision: 10, Scale: 2}, "DECIMAL(10,2)"},
		{"numeric without scale", col(am.TypeNumeric, "numeric", 8, 0), am.SimpleNumericExact{Precision: 8}, "NUMERIC(8)"},
		{"bit(1) is boolean", col(am.TypeBit, "bit", 1, 0), am.SimpleBoolean{}, "BOOLEAN"},
		{"bit(8) is binary", col(am.TypeBit, "bit", 8, 0), am.SimpleBinary{Length: 8}, "BIT(8)"},
		{"real", col(am.TypeReal, "real", 7, 0), am.SimpleNumericApproximate{Precision: 24}, "REAL"},
		{"double", col(am.TypeDouble, "double", 15, 0), am.SimpleNumericApproximate{Precision: 53}, "DOUBLE PRECISION"},
		{"char", col(am.TypeChar, "char", 4, 0), am.SimpleString{Length: 4}, "CHARACTER(4)"},
		{"varchar", col(am.TypeVarchar, "varchar", 255, 0), am.SimpleString{Length: 255}, "CHARACTER VARYING(255)"},
		{"clob", col(am.TypeClob, "clob", 0, 0), am.SimpleString{Large: true}, "CHARACTER LARGE OBJECT"},
		{"long varchar is large", col(am.TypeLongVarchar, "longvarchar", 100, 0), am.SimpleString{Length: 100, Large: true}, "CHARACTER LARGE OBJECT(100)"},
		{"binary", col(am.TypeBinary, "binary", 16, 0), am.SimpleBinary{Length: 16}, "BINARY(16)"},
		{"varbinary", col(am.TypeVarBinary, "varbinary", 16, 0), am.SimpleBinary{Length: 16}, "BINARY VARYING(16)"},
		{"long varbinary is not large", col(am.TypeLongVarBinary, "longvarbinary", 0, 0), am.SimpleBinary{}, "BINARY VARYING"},
		{"blob is large", col(am.TypeBlob, "blob", 0, 0), am.SimpleBinary{Large: true}, "BINARY LARGE OBJECT"},
		{"date", col(am.TypeDate, "date", 0, 0), am.SimpleDateTime{}, "DATE"},
		{"time", col(am.TypeTime, "time", 0, 0), am.SimpleDateTime{TimePart: true}, "TIME"},
		{"time named with zone", col(am.TypeTime, "TIME WITH TIME ZONE", 0, 0), am.SimpleDateTime{TimePart: true, TimeZone: true}, "TIME WITH TIME ZONE"},
		{"timestamp tz code", col(am.TypeTimestampWithTimezone, "timestamptz", 0, 0), am.SimpleDateTime{TimePart: true, TimeZone: true}, "TIMESTAMP WITH TIME ZONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := imp.Import(tt.desc)
			assert.True(t, am.Equal(tt.want, got), "got %s", am.Describe(got))
			assert.Equal(t, tt.sql2008, got.TypeNames().SQL2008)
			assert.Equal(t, tt.desc.TypeName, got.TypeNames().Original)
		})
	}
}

func TestBigIntHasNoSQL99Keyword(t *testing.T) {
	got := NewImporter(nil, nil, nil, nil).Import(col(am.TypeBigInt, "int8", 19, 0))
	assert.Equal(t, "NUMERIC(19)", got.TypeNames().SQL99)
	assert.Equal(t, "BIGINT", got.TypeNames().SQL2008)
}

func TestUnsupportedFallbackNeverFails(t *testing.T) {
	rep := report.NewCollector(nil, 10)
	imp := NewImporter(nil, nil, nil, rep)

	got := imp.Import(Descriptor{Code: 9999, TypeName: "FROBNICATE", Size: 10})
	u, ok := got.(am.Unsupported)
	require.True(t, ok)
	assert.Equal(t, am.SQLType(9999), u.Code)
	assert.Equal(t, 10, u.Size)
	assert.Equal(t, "FROBNICATE", u.Original)
	assert.Equal(t, 1, rep.Count(report.CategoryUnsupportedType))

	got = imp.Import(col(am.TypeOther, "geometry", 0, 0))
	assert.IsType(t, am.Unsupported{}, got)
}

func TestImportArray(t *testing.T) {
	imp := NewImporter(Postgres, nil, nil, nil)

	got := imp.Import(col(am.TypeArray, "_int4", 10, 0))
	arr, ok := got.(am.ComposedArray)
	require.True(t, ok)
	assert.True(t, am.Equal(am.SimpleNumericExact{Precision: 10}, arr.Element))
	assert.Equal(t, "INTEGER ARRAY", arr.SQL2008)

	got = imp.Import(col(am.TypeArray, "_tsvector", 0, 0))
	arr, ok = got.(am.ComposedArray)
	require.True(t, ok)
	assert.IsType(t, am.Unsupported{}, arr.Element)

	def := NewImporter(nil, nil, nil, nil).Import(col(am.TypeArray, "_abstime", 0, 0))
	assert.True(t, am.Equal(am.SimpleDateTime{TimePart: true}, def.(am.ComposedArray).Element))
}

func TestImportStructure(t *testing.T) {
	reg := am.NewStructureRegistry()
	imp := NewImporter(nil, reg, nil, nil)

	t.Run("unknown structure yields placeholder", func(t *testing.T) {
		got := imp.Import(col(am.TypeStruct, "address", 0, 0))
		s, ok := got.(am.ComposedStructure)
		require.True(t, ok)
		assert.True(t, s.IsPlaceholder())
		assert.Equal(t, []string{"public.address"}, reg.Pending())
	})

	t.Run("completed structure is found case-insensitively", func(t *testing.T) {
		require.NoError(t, reg.Complete("public", "address", []am.StructField{{Name: "street", Type: charType("CHARACTER", 10)}}))
		got := imp.Import(Descriptor{Schema: "other", Code: am.TypeStruct, TypeName: "ADDRESS"})
		s := got.(am.ComposedStructure)
		assert.Len(t, s.Fields, 1)
		assert.Equal(t, "public", s.Schema)
	})
}

func TestDialects(t *testing.T) {
	tests := []struct {
		name    string
		dialect dbcapabilities.DatabaseID
		desc    Descriptor
		want    am.Type
	}{
		{"postgres bytea is a blob", dbcapabilities.PostgreSQL, col(am.TypeBinary, "bytea", 0, 0), am.SimpleBinary{Large: true}},
		{"postgres uuid", dbcapabilities.PostgreSQL, col(am.TypeOther, "uuid", 0, 0), am.SimpleString{Length: 36}},
		{"postgres timestamptz", dbcapabilities.PostgreSQL, col(am.TypeTimestamp, "timestamptz", 0, 0), am.SimpleDateTime{TimePart: true, TimeZone: true}},
		{"mysql tinyint(1)", dbcapabilities.MySQL, col(am.TypeTinyInt, "TINYINT", 1, 0), am.SimpleBoolean{}},
		{"mysql longtext", dbcapabilities.MySQL, col(am.TypeLongVarchar, "LONGTEXT", 0, 0), am.SimpleString{Large: true}},
		{"mysql unsigned bigint", dbcapabilities.MariaDB, col(am.TypeBigInt, "UNSIGNED BIGINT", 20, 0), am.SimpleNumericExact{Precision: 20}},
		{"mssql nvarchar(max)", dbcapabilities.SQLServer, col(am.TypeNVarchar, "NVARCHAR", -1, 0), am.SimpleString{Large: true}},
		{"mssql nvarchar(40)", dbcapabilities.SQLServer, col(am.TypeNVarchar, "NVARCHAR", 40, 0), am.SimpleString{Length: 40}},
		{"mssql uniqueidentifier", dbcapabilities.SQLServer, col(am.TypeChar, "UNIQUEIDENTIFIER", 0, 0), am.SimpleString{Length: 36}},
		{"oracle binary_double code", dbcapabilities.Oracle, col(101, "BINARY_DOUBLE", 0, 0), am.SimpleNumericApproximate{Precision: 53}},
		{"oracle number(10,2)", dbcapabilities.Oracle, col(am.TypeNumeric, "NUMBER", 10, 2), am.SimpleNumericExact{Precision: 10, Scale: 2}},
		{"oracle unconstrained number", dbcapabilities.Oracle, col(am.TypeNumeric, "NUMBER", 0, -127), am.SimpleNumericApproximate{Precision: 126}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := NewImporter(DialectFor(tt.dialect), nil, nil, nil)
			got := imp.Import(tt.desc)
			assert.True(t, am.Equal(tt.want, got), "got %s", am.Describe(got))
		})
	}
}

// Every type the forward direction produces must parse back to an equal type.
func TestRoundTripLaw(t *testing.T) {
	reg := am.NewStructureRegistry()
	dialects := []*Dialect{Default, Postgres, MySQL, SQLServer, Oracle}

	var produced []am.Type
	for _, d := range dialects {
		imp := NewImporter(d, reg, nil, nil)
		for code := range defaultRules {
			for _, size := range []int{0, 1, 12} {
				for _, scale := range []int{0, 3} {
					produced = append(produced, imp.Import(Descriptor{Schema: "s", Code: code, TypeName: "x_" + code.String(), Size: size, Scale: scale}))
				}
			}
		}
		for name := range d.Names {
			produced = append(produced, imp.Import(Descriptor{Schema: "s", Code: am.TypeOther, TypeName: name, Size: 12, Scale: 2}))
		}
		for name := range d.ArrayElements {
			produced = append(produced, imp.Import(Descriptor{Schema: "s", Code: am.TypeArray, TypeName: name}))
		}
	}

	imp := NewImporter(nil, reg, nil, nil)
	for _, typ := range produced {
		if _, ok := typ.(am.Unsupported); ok {
			continue
		}
		if arr, ok := typ.(am.ComposedArray); ok {
			if _, ok := arr.Element.(am.Unsupported); ok {
				continue
			}
		}
		names := typ.TypeNames()
		t.Run(names.SQL2008, func(t *testing.T) {
			back, err := imp.ParseSQL2008(names.SQL2008, names.Original)
			require.NoError(t, err)
			assert.True(t, am.Equal(typ, back), "%s parsed as %s", am.Describe(typ), am.Describe(back))
			assert.Equal(t, names.Original, back.TypeNames().Original)

			if names.SQL99 == "" {
				return
			}
			back, err = imp.ParseSQL99(names.SQL99, names.Original)
			require.NoError(t, err)
			assert.True(t, am.Equal(typ, back), "%s parsed as %s", names.SQL99, am.Describe(back))
		})
	}
}

func TestParseStandardName(t *testing.T) {
	imp := NewImporter(nil, nil, nil, nil)

	tests := []struct {
		in   string
		want am.Type
	}{
		{"varchar(20)", am.SimpleString{Length: 20}},
		{"  NUMERIC ( 12 , 4 ) ", am.SimpleNumericExact{Precision: 12, Scale: 4}},
		{"INT", am.SimpleNumericExact{Precision: 10}},
		{"DEC(5)", am.SimpleNumericExact{Precision: 5}},
		{"FLOAT", am.SimpleNumericApproximate{Precision: 53}},
		{"TIMESTAMP(6) WITH TIME ZONE", am.SimpleDateTime{TimePart: true, TimeZone: true}},
		{"TIME WITHOUT TIME ZONE", am.SimpleDateTime{TimePart: true}},
		{"BIT VARYING(64)", am.SimpleBinary{Length: 64}},
		{"BLOB", am.SimpleBinary{Large: true}},
		{"INTEGER ARRAY[4]", am.ComposedArray{Element: am.SimpleNumericExact{Precision: 10}}},
		{"CHARACTER(3) ARRAY ARRAY", am.ComposedArray{Element: am.ComposedArray{Element: am.SimpleString{Length: 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := imp.ParseStandardName(tt.in, "")
			require.NoError(t, err)
			assert.True(t, am.Equal(tt.want, got), "got %s", am.Describe(got))
			assert.Equal(t, tt.in, got.TypeNames().Original)
		})
	}
}

func TestParseStandardNameErrors(t *testing.T) {
	imp := NewImporter(nil, nil, nil, nil)

	tests := []struct {
		in   string
		want error
	}{
		{"", ErrMalformedStandardType},
		{"VARCHAR(abc)", ErrMalformedStandardType},
		{"CHARACTER(1,2)", ErrMalformedStandardType},
		{"DATE WITH TIME ZONE", ErrMalformedStandardType},
		{"FROBNICATE", ErrUnknownStandardType},
		{"FROBNICATE(10)", ErrUnknownStandardType},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := imp.ParseSQL2008(tt.in, "orig")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			var tre *TypeResolutionError
			require.True(t, errors.As(err, &tre))
			assert.Equal(t, ConventionSQL2008, tre.Convention)
		})
	}
}

func TestParseStructureByRegisteredName(t *testing.T) {
	reg := am.NewStructureRegistry()
	require.NoError(t, reg.Complete("inventory", "Dimensions", []am.StructField{{Name: "w", Type: realType()}}))
	imp := NewImporter(nil, reg, nil, nil)

	got, err := imp.ParseSQL2008("DIMENSIONS", "Dimensions")
	require.NoError(t, err)
	s, ok := got.(am.ComposedStructure)
	require.True(t, ok)
	assert.Equal(t, "inventory", s.Schema)
}
