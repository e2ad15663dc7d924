package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/redbco/redb-archive/internal/database/sqlrows"
	"github.com/redbco/redb-archive/pkg/config"
)

const defaultPort = 3306

// DSN builds a driver data source name. An explicit source DSN wins.
func DSN(src config.SourceConfig) string {
	if src.DSN != "" {
		return src.DSN
	}
	port := src.Port
	if port == 0 {
		port = defaultPort
	}

	cfg := gomysql.NewConfig()
	cfg.User = src.Username
	cfg.Passwd = src.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(src.Host, strconv.Itoa(port))
	cfg.DBName = src.Database
	cfg.ParseTime = true
	if src.SSL {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

// Open connects to a MySQL or MariaDB database.
func Open(ctx context.Context, src config.SourceConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(src))
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return db, nil
}

// QuoteIdentifier quotes name with backticks.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QueryTable reads every row of a table.
func QueryTable(ctx context.Context, db *sql.DB, schema, table string) (*sqlrows.Rows, error) {
	return sqlrows.Query(ctx, db, Convert, sqlrows.SelectAll(QuoteIdentifier, schema, table))
}

// Convert turns BIT values into their numeric form; everything else is
// read as the driver returns it.
func Convert(col *sql.ColumnType, v any) (any, error) {
	if !strings.EqualFold(col.DatabaseTypeName(), "BIT") {
		return v, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return v, nil
	}
	return BitValue(b), nil
}

// BitValue decodes the big-endian bytes MySQL returns for BIT columns.
func BitValue(b []byte) uint64 {
	var n uint64
	for _, x := range b {
		n = n<<8 | uint64(x)
	}
	return n
}
