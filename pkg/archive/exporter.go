package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redbco/redb-archive/pkg/container"
	"github.com/redbco/redb-archive/pkg/content"
	"github.com/redbco/redb-archive/pkg/logger"
	"github.com/redbco/redb-archive/pkg/report"
	"github.com/redbco/redb-archive/pkg/typeimport"
	"github.com/redbco/redb-archive/pkg/valuereader"
)

// RowSource is a forward-only query result.
type RowSource interface {
	Next() bool
	Row() valuereader.Row
	Err() error
	Close() error
}

// Exporter writes tables into an archive and collects their manifest
// entries. ExportTable may be called from several goroutines; each table
// gets its own encoder.
type Exporter struct {
	main     container.Store
	external container.Store
	opts     content.Options
	log      *logger.Logger
	reporter report.Reporter
	reader   *valuereader.Reader

	mu       sync.Mutex
	manifest Manifest
}

func NewExporter(main, external container.Store, opts content.Options, log *logger.Logger, rep report.Reporter) *Exporter {
	log = logger.OrNop(log)
	rep = report.OrNop(rep)
	return &Exporter{
		main:     main,
		external: external,
		opts:     opts,
		log:      log,
		reporter: rep,
		reader:   valuereader.New(log, rep),
		manifest: Manifest{Version: opts.Version},
	}
}

// ExportTable writes every row of rows as table t and closes rows.
func (x *Exporter) ExportTable(ctx context.Context, t content.Table, rows RowSource) (summary content.TableSummary, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close rows of %s.%s: %w", t.SchemaName, t.Name, cerr)
		}
	}()

	enc, err := content.NewEncoder(x.main, x.external, x.opts, x.log, x.reporter)
	if err != nil {
		return content.TableSummary{}, err
	}
	if err := enc.OpenTable(ctx, t); err != nil {
		return content.TableSummary{}, err
	}

	var n int64
	for rows.Next() {
		n++
		cells := x.reader.ReadRow(t, rows.Row(), n)
		if err := enc.WriteRow(ctx, cells); err != nil {
			return content.TableSummary{}, fmt.Errorf("table %s.%s row %d: %w", t.SchemaName, t.Name, n, err)
		}
	}
	if err := rows.Err(); err != nil {
		return content.TableSummary{}, fmt.Errorf("failed to read rows of %s.%s: %w", t.SchemaName, t.Name, err)
	}

	summary, err = enc.CloseTable(ctx)
	if err != nil {
		return content.TableSummary{}, err
	}

	x.mu.Lock()
	x.manifest.Add(NewTableEntry(t, summary))
	x.mu.Unlock()
	return summary, nil
}

// Manifest returns a copy of the entries collected so far.
func (x *Exporter) Manifest() Manifest {
	x.mu.Lock()
	defer x.mu.Unlock()
	m := Manifest{Version: x.manifest.Version}
	m.Tables = append(m.Tables, x.manifest.Tables...)
	return m
}

// Finish writes the manifest. Tables exported afterwards are not listed.
func (x *Exporter) Finish(ctx context.Context) error {
	m := x.Manifest()
	if len(m.Tables) == 0 {
		return errors.New("no tables exported")
	}
	if err := WriteManifest(ctx, x.main, &m); err != nil {
		return err
	}
	x.log.Infof("archive manifest written with %d tables", len(m.Tables))
	return nil
}

// ImportTable builds a table from the column descriptors of a query,
// importing each column type with imp.
func ImportTable(imp *typeimport.Importer, schema, name string, schemaIndex, index int, descs []typeimport.Descriptor) content.Table {
	t := content.Table{SchemaName: schema, Name: name, SchemaIndex: schemaIndex, Index: index}
	for _, d := range descs {
		typ := imp.Registry().Resolve(imp.Import(d))
		t.Columns = append(t.Columns, content.Column{Name: d.Column, Type: typ, Nullable: d.Nullable})
	}
	return t
}

// SliceRows is a RowSource over rows held in memory.
type SliceRows struct {
	rows []valuereader.Values
	pos  int
}

func NewSliceRows(rows ...valuereader.Values) *SliceRows {
	return &SliceRows{rows: rows}
}

func (s *SliceRows) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceRows) Row() valuereader.Row { return s.rows[s.pos-1] }
func (s *SliceRows) Err() error           { return nil }
func (s *SliceRows) Close() error         { return nil }
