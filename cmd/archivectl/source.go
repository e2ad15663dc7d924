package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/redbco/redb-archive/internal/database/mssql"
	"github.com/redbco/redb-archive/internal/database/mysql"
	"github.com/redbco/redb-archive/internal/database/postgres"
	"github.com/redbco/redb-archive/pkg/archive"
	"github.com/redbco/redb-archive/pkg/config"
	"github.com/redbco/redb-archive/pkg/dbcapabilities"
	"github.com/redbco/redb-archive/pkg/typeimport"
)

// tableRows is a table read from a source database.
type tableRows interface {
	archive.RowSource
	Descriptors(schema, table string) []typeimport.Descriptor
}

type source struct {
	id    dbcapabilities.DatabaseID
	query func(ctx context.Context, schema, table string) (tableRows, error)
	close func()
}

// resolveSource fills the source settings from a URL-style DSN.
func resolveSource(src config.SourceConfig) (config.SourceConfig, error) {
	if !strings.Contains(src.DSN, "://") {
		return src, nil
	}
	details, err := dbcapabilities.ParseConnectionString(src.DSN)
	if err != nil {
		return src, fmt.Errorf("invalid source dsn: %w", err)
	}
	src.DSN = ""
	if src.Type == "" {
		src.Type = details.DatabaseType
	}
	if src.Host == "" {
		src.Host = details.Host
	}
	if src.Port == 0 {
		src.Port = details.Port
	}
	if src.Username == "" {
		src.Username = details.Username
	}
	if src.Password == "" {
		src.Password = details.Password
	}
	if src.Database == "" {
		src.Database = details.DatabaseName
	}
	src.SSL = src.SSL || details.SSL
	return src, nil
}

func openSource(ctx context.Context, src config.SourceConfig) (*source, error) {
	src, err := resolveSource(src)
	if err != nil {
		return nil, err
	}
	id, ok := dbcapabilities.ParseID(src.Type)
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", src.Type)
	}
	if !dbcapabilities.CanExport(id) {
		return nil, fmt.Errorf("exporting from %s is not supported", dbcapabilities.All[id].Name)
	}

	switch id {
	case dbcapabilities.PostgreSQL, dbcapabilities.CockroachDB:
		pool, err := postgres.Connect(ctx, src)
		if err != nil {
			return nil, err
		}
		return &source{
			id: id,
			query: func(ctx context.Context, schema, table string) (tableRows, error) {
				rows, err := postgres.QueryTable(ctx, pool, schema, table)
				if err != nil {
					return nil, err
				}
				return rows, nil
			},
			close: pool.Close,
		}, nil

	case dbcapabilities.MySQL, dbcapabilities.MariaDB:
		db, err := mysql.Open(ctx, src)
		if err != nil {
			return nil, err
		}
		return &source{
			id: id,
			query: func(ctx context.Context, schema, table string) (tableRows, error) {
				rows, err := mysql.QueryTable(ctx, db, schema, table)
				if err != nil {
					return nil, err
				}
				return rows, nil
			},
			close: func() { db.Close() },
		}, nil

	case dbcapabilities.SQLServer:
		db, err := mssql.Open(ctx, src)
		if err != nil {
			return nil, err
		}
		return &source{
			id: id,
			query: func(ctx context.Context, schema, table string) (tableRows, error) {
				rows, err := mssql.QueryTable(ctx, db, schema, table)
				if err != nil {
					return nil, err
				}
				return rows, nil
			},
			close: func() { db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("exporting from %s is not supported", id)
}
