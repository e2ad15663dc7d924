package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/redbco/redb-archive/internal/database/sqlrows"
	"github.com/redbco/redb-archive/pkg/config"
)

const defaultPort = 1433

// ConnString builds a sqlserver:// connection URL. An explicit source DSN wins.
func ConnString(src config.SourceConfig) string {
	if src.DSN != "" {
		return src.DSN
	}
	port := src.Port
	if port == 0 {
		port = defaultPort
	}

	query := url.Values{}
	if src.Database != "" {
		query.Set("database", src.Database)
	}
	if src.SSL {
		query.Set("encrypt", "true")
	} else {
		query.Set("encrypt", "disable")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(src.Username, src.Password),
		Host:     net.JoinHostPort(src.Host, strconv.Itoa(port)),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Open connects to a Microsoft SQL Server database.
func Open(ctx context.Context, src config.SourceConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", ConnString(src))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return db, nil
}

// QuoteIdentifier quotes name with brackets.
func QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QueryTable reads every row of a table.
func QueryTable(ctx context.Context, db *sql.DB, schema, table string) (*sqlrows.Rows, error) {
	return sqlrows.Query(ctx, db, Convert, sqlrows.SelectAll(QuoteIdentifier, schema, table))
}

// Convert renders UNIQUEIDENTIFIER values, which the driver returns in
// wire byte order, as canonical GUID text.
func Convert(col *sql.ColumnType, v any) (any, error) {
	if !strings.EqualFold(col.DatabaseTypeName(), "UNIQUEIDENTIFIER") {
		return v, nil
	}
	return GUID(v)
}

// GUID converts a driver uniqueidentifier value to text.
func GUID(v any) (string, error) {
	var u mssql.UniqueIdentifier
	if err := u.Scan(v); err != nil {
		return "", fmt.Errorf("invalid uniqueidentifier: %w", err)
	}
	return u.String(), nil
}
