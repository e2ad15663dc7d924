package postgres

import (
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/config"
	"github.com/redbco/redb-archive/pkg/typeimport"
	"github.com/redbco/redb-archive/pkg/valuereader"
)

func TestConnString(t *testing.T) {
	s := ConnString(config.SourceConfig{Host: "pg.local", Username: "archiver", Password: "s3cr:t", Database: "shop"})
	u, err := url.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "pg.local:5432", u.Host)
	assert.Equal(t, "/shop", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "s3cr:t", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))

	s = ConnString(config.SourceConfig{Host: "pg.local", Port: 6543, SSL: true})
	u, err = url.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, "pg.local:6543", u.Host)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestTypeName(t *testing.T) {
	types := pgtype.NewMap()
	assert.Equal(t, "int4", TypeName(types, pgtype.Int4OID))
	assert.Equal(t, "_int4", TypeName(types, pgtype.Int4ArrayOID))
	assert.Equal(t, "oid999999", TypeName(types, 999999))
	assert.Equal(t, "oid23", TypeName(nil, pgtype.Int4OID))
}

func TestDescribeImportsThroughDialect(t *testing.T) {
	imp := typeimport.NewImporter(typeimport.Postgres, nil, nil, nil)
	types := pgtype.NewMap()

	tests := []struct {
		name    string
		field   pgconn.FieldDescription
		sql2008 string
	}{
		{"varchar", pgconn.FieldDescription{Name: "v", DataTypeOID: pgtype.VarcharOID, TypeModifier: 44}, "CHARACTER VARYING(40)"},
		{"numeric", pgconn.FieldDescription{Name: "n", DataTypeOID: pgtype.NumericOID, TypeModifier: (10<<16 | 2) + 4}, "NUMERIC(10,2)"},
		{"int4", pgconn.FieldDescription{Name: "i", DataTypeOID: pgtype.Int4OID, TypeModifier: -1}, "INTEGER"},
		{"bytea", pgconn.FieldDescription{Name: "b", DataTypeOID: pgtype.ByteaOID, TypeModifier: -1}, "BINARY LARGE OBJECT"},
		{"int4 array", pgconn.FieldDescription{Name: "a", DataTypeOID: pgtype.Int4ArrayOID, TypeModifier: -1}, "INTEGER ARRAY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Describe("public", "t", tt.field, TypeName(types, tt.field.DataTypeOID))
			assert.True(t, d.Nullable)
			got := imp.Import(d)
			assert.Equal(t, tt.sql2008, got.TypeNames().SQL2008, am.Describe(got))
		})
	}
}

func TestNormalize(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	assert.Equal(t, id.String(), Normalize([16]byte(id)))

	n := pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}
	assert.Equal(t, "123.45", Normalize(n))
	assert.Nil(t, Normalize(pgtype.Numeric{}))

	tm := Normalize(pgtype.Time{Microseconds: (13*3600 + 5*60 + 7) * 1_000_000, Valid: true})
	require.IsType(t, time.Time{}, tm)
	assert.Equal(t, "13:05:07", tm.(time.Time).Format(valuereader.TimeLayout))

	arr := Normalize([]any{[16]byte(id), nil, int32(3)}).([]any)
	assert.Equal(t, []any{id.String(), nil, int32(3)}, arr)
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		iv   pgtype.Interval
		want string
	}{
		{pgtype.Interval{Months: 14, Days: 3, Valid: true}, "P1Y2M3D"},
		{pgtype.Interval{Microseconds: int64(90*time.Minute/time.Microsecond) + 1_500_000, Valid: true}, "PT1H30M1.5S"},
		{pgtype.Interval{Valid: true}, "PT0S"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatInterval(tt.iv))
	}
}
