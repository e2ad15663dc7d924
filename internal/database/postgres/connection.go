package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/redb-archive/pkg/config"
)

const defaultPort = 5432

// ConnString builds a postgres:// connection URL. An explicit source DSN wins.
func ConnString(src config.SourceConfig) string {
	if src.DSN != "" {
		return src.DSN
	}
	port := src.Port
	if port == 0 {
		port = defaultPort
	}

	query := url.Values{}
	if src.SSL {
		query.Set("sslmode", "require")
	} else {
		query.Set("sslmode", "disable")
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(src.Username, src.Password),
		Host:     net.JoinHostPort(src.Host, strconv.Itoa(port)),
		Path:     "/" + src.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Connect establishes a connection pool to a PostgreSQL database.
func Connect(ctx context.Context, src config.SourceConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, ConnString(src))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}
