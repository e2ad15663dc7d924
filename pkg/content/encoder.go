package content

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/container"
	"github.com/redbco/redb-archive/pkg/logger"
	"github.com/redbco/redb-archive/pkg/report"
)

const (
	cellPrefix      = "c"
	arrayPrefix     = "a"
	structurePrefix = "u"
)

// Encoder writes the tables of one schema, one table at a time. It is not
// safe for concurrent use; use one Encoder per table for parallel exports.
type Encoder struct {
	main     container.Store
	external container.Store
	opts     Options
	log      *logger.Logger
	reporter report.Reporter

	table    *Table
	out      io.WriteCloser
	xml      *xmlWriter
	ledger   *ledger
	row      int64
	lobs     int
	maxArray map[int]int
}

// NewEncoder writes table bodies to main and external large objects to
// external, which defaults to main.
func NewEncoder(main, external container.Store, opts Options, log *logger.Logger, rep report.Reporter) (*Encoder, error) {
	if main == nil {
		return nil, fmt.Errorf("encoder needs a store")
	}
	if _, err := newDigest(opts.DigestAlgorithm); err != nil {
		return nil, err
	}
	if external == nil {
		external = main
	}
	return &Encoder{
		main:     main,
		external: external,
		opts:     opts,
		log:      logger.OrNop(log),
		reporter: report.OrNop(rep),
	}, nil
}

// OpenTable starts the body of t.
func (e *Encoder) OpenTable(ctx context.Context, t Table) error {
	if e.table != nil {
		return ErrTableOpen
	}
	if t.SchemaIndex < 1 || t.Index < 1 {
		return fmt.Errorf("table %s.%s: schema and table indexes start at 1", t.SchemaName, t.Name)
	}

	out, err := e.main.Create(ctx, "", TableXMLPath(t.SchemaIndex, t.Index))
	if err != nil {
		return fmt.Errorf("failed to create table body: %w", err)
	}

	e.table = &t
	e.out = out
	e.xml = newXMLWriter(out, e.opts.Pretty)
	e.ledger = newLedger(e.external, t.SchemaIndex, t.Index, e.opts, e.log)
	e.row = 0
	e.lobs = 0
	e.maxArray = make(map[int]int)
	for i, col := range t.Columns {
		if _, ok := col.Type.(am.ComposedArray); ok {
			e.maxArray[i+1] = 0
		}
	}

	ns := TableNamespace(t.SchemaIndex, t.Index)
	e.xml.declaration(false)
	e.xml.openTag("table", 0,
		attr{"xsi:schemaLocation", ns + " " + tableXSDName(t.Index)},
		attr{"xmlns", ns},
		attr{"xmlns:xsi", xsiNamespace},
	)
	e.log.Debugf("writing table %s.%s to %s", t.SchemaName, t.Name, TableXMLPath(t.SchemaIndex, t.Index))
	return e.xml.err
}

// WriteRow writes one row and releases its cells.
func (e *Encoder) WriteRow(ctx context.Context, cells []am.Cell) error {
	defer func() {
		if err := am.ReleaseRow(cells); err != nil {
			e.log.Warnf("failed to release row %d: %v", e.row, err)
		}
	}()

	if e.table == nil {
		return ErrNoTable
	}
	if len(cells) != len(e.table.Columns) {
		return fmt.Errorf("%w: %d cells for %d columns", ErrRowShape, len(cells), len(e.table.Columns))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.row++
	e.xml.openTag("row", 1)
	for i, cell := range cells {
		at := Coordinates{Schema: e.table.SchemaIndex, Table: e.table.Index, Column: i + 1, Row: e.row}
		if err := e.writeCell(ctx, cellPrefix+strconv.Itoa(i+1), 2, e.table.Columns[i].Type, cell, at); err != nil {
			return err
		}
	}
	e.xml.closeTag("row", 1)
	return e.xml.err
}

// CloseTable finishes the body, the external containers and the schema of
// the open table.
func (e *Encoder) CloseTable(ctx context.Context) (TableSummary, error) {
	if e.table == nil {
		return TableSummary{}, ErrNoTable
	}
	t := e.table
	defer func() { e.table = nil }()

	e.xml.closeTag("table", 0)
	e.xml.write("\n")
	if err := e.xml.flush(); err != nil {
		e.out.Close()
		return TableSummary{}, fmt.Errorf("failed to write table body: %w", err)
	}
	if err := e.out.Close(); err != nil {
		return TableSummary{}, fmt.Errorf("failed to close table body: %w", err)
	}
	if err := e.ledger.close(ctx); err != nil {
		return TableSummary{}, err
	}
	if err := e.writeSchema(ctx, t); err != nil {
		return TableSummary{}, err
	}

	summary := TableSummary{
		Rows:           e.row,
		Lobs:           e.lobs,
		MaxArrayLength: e.maxArray,
		Containers:     e.ledger.finished,
	}
	e.log.Infof("wrote table %s.%s: %d rows, %d large objects", t.SchemaName, t.Name, summary.Rows, summary.Lobs)
	return summary, nil
}

func (e *Encoder) location(at Coordinates) report.Location {
	loc := report.Location{Schema: e.table.SchemaName, Table: e.table.Name, Row: at.Row}
	if at.Column >= 1 && at.Column <= len(e.table.Columns) {
		loc.Column = e.table.Columns[at.Column-1].Name
	}
	return loc
}

func (e *Encoder) writeCell(ctx context.Context, tag string, level int, t am.Type, cell am.Cell, at Coordinates) error {
	switch c := cell.(type) {
	case nil, *am.NullCell:
		return nil
	case *am.SimpleCell:
		return e.writeSimple(ctx, tag, level, t, c, at)
	case *am.BinaryCell:
		return e.writeBinary(ctx, tag, level, t, c, at)
	case *am.ComposedCell:
		return e.writeComposed(tag, level, t, c, at)
	case *am.ArrayCell:
		return e.writeArray(ctx, tag, level, t, c, at)
	}
	return fmt.Errorf("cell %s: unknown cell variant %T", cell.ID(), cell)
}

func (e *Encoder) writeSimple(ctx context.Context, tag string, level int, t am.Type, c *am.SimpleCell, at Coordinates) error {
	data, ok := c.Data()
	if !ok {
		return nil
	}
	if am.IsLarge(t) && int64(len(data)) > e.opts.StringInlineThreshold {
		return e.writeLob(ctx, tag, level, c, at)
	}
	e.xml.inlineElement(tag, level, EncodeText(data))
	return nil
}

func (e *Encoder) writeBinary(ctx context.Context, tag string, level int, t am.Type, c *am.BinaryCell, at Coordinates) error {
	if c.IsNull() {
		return c.Release()
	}
	if am.IsLarge(t) && c.Size() > e.opts.BinaryInlineThreshold {
		return e.writeLob(ctx, tag, level, c, at)
	}
	text, err := hexContent(c)
	if err != nil {
		return &LobError{At: at, File: c.ID(), Op: "read", Err: err}
	}
	e.xml.inlineElement(tag, level, text)
	return nil
}

func hexContent(c *am.BinaryCell) (string, error) {
	r, err := c.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

// writeComposed writes structure fields as u1..uN. Only scalar fields are
// representable; nested structures, arrays and large objects are written
// as absent and reported.
func (e *Encoder) writeComposed(tag string, level int, t am.Type, c *am.ComposedCell, at Coordinates) error {
	var fields []am.StructField
	if st, ok := t.(am.ComposedStructure); ok {
		fields = st.Fields
	}

	e.xml.openTag(tag, level)
	for i, child := range c.Children {
		utag := structurePrefix + strconv.Itoa(i+1)
		var ft am.Type
		if i < len(fields) {
			ft = fields[i].Type
		}

		switch v := child.(type) {
		case nil, *am.NullCell:
		case *am.SimpleCell:
			data, ok := v.Data()
			if !ok {
				continue
			}
			if ft != nil && am.IsLarge(ft) && int64(len(data)) > e.opts.StringInlineThreshold {
				e.structural(at, "large object inside structure")
				continue
			}
			e.xml.inlineElement(utag, level+1, EncodeText(data))
		case *am.BinaryCell:
			if v.IsNull() {
				continue
			}
			if ft == nil || am.IsLarge(ft) {
				e.structural(at, "large object inside structure")
				continue
			}
			text, err := hexContent(v)
			if err != nil {
				return &LobError{At: at, File: v.ID(), Op: "read", Err: err}
			}
			e.xml.inlineElement(utag, level+1, text)
		case *am.ComposedCell:
			e.structural(at, "structure inside structure")
		case *am.ArrayCell:
			e.structural(at, "array inside structure")
		}
	}
	e.xml.closeTag(tag, level)
	return nil
}

func (e *Encoder) structural(at Coordinates, feature string) {
	e.log.Warnf("%s not supported at %s, writing it as absent", feature, at)
	e.reporter.StructuralFeature(e.location(at), feature)
}

// writeArray writes leaves in arrival order, opening and closing index tags
// so that consecutive leaves share their common path prefix.
func (e *Encoder) writeArray(ctx context.Context, tag string, level int, t am.Type, c *am.ArrayCell, at Coordinates) error {
	elem := t
	if arr, ok := t.(am.ComposedArray); ok {
		elem = arr.Element
	}

	e.xml.openTag(tag, level)
	var open []int
	for _, el := range c.Elements() {
		path := el.Path
		if len(path) == 0 {
			e.log.Warnf("array element without index at %s skipped", at)
			continue
		}
		parent := path[:len(path)-1]

		keep := 0
		for keep < len(open) && keep < len(parent) && open[keep] == parent[keep] {
			keep++
		}
		for j := len(open) - 1; j >= keep; j-- {
			e.xml.closeTag(arrayPrefix+strconv.Itoa(open[j]), level+1+j)
		}
		open = open[:keep]
		for j := keep; j < len(parent); j++ {
			e.xml.openTag(arrayPrefix+strconv.Itoa(parent[j]), level+1+j)
			open = append(open, parent[j])
		}

		leafAt := at
		leafAt.Path = append(append([]int(nil), at.Path...), path...)
		leafTag := arrayPrefix + strconv.Itoa(path[len(path)-1])
		if err := e.writeCell(ctx, leafTag, level+len(path), elem, el.Cell, leafAt); err != nil {
			return err
		}
	}
	for j := len(open) - 1; j >= 0; j-- {
		e.xml.closeTag(arrayPrefix+strconv.Itoa(open[j]), level+1+j)
	}
	e.xml.closeTag(tag, level)

	if len(at.Path) == 0 {
		if n := c.MaxIndex(); n > e.maxArray[at.Column] {
			e.maxArray[at.Column] = n
		}
	}
	return nil
}
