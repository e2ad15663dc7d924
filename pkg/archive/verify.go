package archive

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/container"
	"github.com/redbco/redb-archive/pkg/content"
	"github.com/redbco/redb-archive/pkg/logger"
	"github.com/redbco/redb-archive/pkg/typeimport"
)

// ErrRowCount is returned when a table holds a different number of rows
// than its manifest entry.
var ErrRowCount = errors.New("row count differs from manifest")

// TableResult is the outcome of reading one table back.
type TableResult struct {
	Table content.Table
	Rows  int64
}

// VerifyTables decodes every row of every table, checking each large object
// against its digest. Up to concurrency tables are read at once; the first
// failure cancels the rest.
func VerifyTables(ctx context.Context, main, external container.Store, tables []content.Table, concurrency int, log *logger.Logger) ([]TableResult, error) {
	log = logger.OrNop(log)
	results := make([]TableResult, len(tables))

	group, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}
	for i, t := range tables {
		i, t := i, t
		group.Go(func() error {
			rows, err := verifyTable(ctx, main, external, t, log)
			if err != nil {
				return fmt.Errorf("table %s.%s: %w", t.SchemaName, t.Name, err)
			}
			results[i] = TableResult{Table: t, Rows: rows}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func verifyTable(ctx context.Context, main, external container.Store, t content.Table, log *logger.Logger) (int64, error) {
	dec, err := content.NewDecoder(ctx, main, external, t, log)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	for dec.Next() {
		if err := am.ReleaseRow(dec.Cells()); err != nil {
			log.Warnf("failed to release row %d of %s.%s: %v", dec.Row(), t.SchemaName, t.Name, err)
		}
	}
	if err := dec.Err(); err != nil {
		return dec.Row(), err
	}
	log.Infof("verified %s.%s: %d rows", t.SchemaName, t.Name, dec.Row())
	return dec.Row(), nil
}

// Verify reads the manifest of an archive, rebuilds its tables and checks
// every table against the manifest row counts.
func Verify(ctx context.Context, main, external container.Store, imp *typeimport.Importer, concurrency int, log *logger.Logger) ([]TableResult, error) {
	m, err := ReadManifest(ctx, main)
	if err != nil {
		return nil, err
	}
	tables, err := m.ResolveTables(imp)
	if err != nil {
		return nil, err
	}
	results, err := VerifyTables(ctx, main, external, tables, concurrency, log)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		if want := m.Tables[i].Rows; r.Rows != want {
			return results, fmt.Errorf("table %s.%s: %w: read %d, expected %d", r.Table.SchemaName, r.Table.Name, ErrRowCount, r.Rows, want)
		}
	}
	return results, nil
}
