package mssql

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-archive/pkg/config"
)

func TestConnString(t *testing.T) {
	s := ConnString(config.SourceConfig{Host: "sql.local", Username: "sa", Password: "p@ss/word", Database: "erp"})

	u, err := url.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "sql.local:1433", u.Host)
	assert.Equal(t, "sa", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", pw)
	assert.Equal(t, "erp", u.Query().Get("database"))
	assert.Equal(t, "disable", u.Query().Get("encrypt"))
}

func TestGUID(t *testing.T) {
	wire := []byte{0x67, 0x45, 0x23, 0x01, 0xAB, 0x89, 0xEF, 0xCD, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	s, err := GUID(wire)
	require.NoError(t, err)
	assert.Equal(t, "01234567-89AB-CDEF-0123-456789ABCDEF", s)

	_, err = GUID([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "[odd]]name]", QuoteIdentifier("odd]name"))
}
