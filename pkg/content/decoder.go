package content

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/container"
	"github.com/redbco/redb-archive/pkg/logger"
)

// progressEvery is the number of rows between progress log lines.
const progressEvery = 1000

// node is one element of a cell subtree.
type node struct {
	name     string
	attrs    map[string]string
	text     strings.Builder
	children []*node
}

func (n *node) attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Decoder streams the rows of one table back as cells. Large objects are
// verified against their recorded digest before the row is returned.
type Decoder struct {
	ctx      context.Context
	main     container.Store
	external container.Store
	table    Table
	log      *logger.Logger

	rc    io.ReadCloser
	dec   *xml.Decoder
	row   int64
	cells []am.Cell
	err   error
	done  bool
}

// NewDecoder opens the body of t. External objects are read from external,
// which defaults to main.
func NewDecoder(ctx context.Context, main, external container.Store, t Table, log *logger.Logger) (*Decoder, error) {
	if external == nil {
		external = main
	}
	rc, err := main.Open(ctx, "", TableXMLPath(t.SchemaIndex, t.Index))
	if err != nil {
		return nil, fmt.Errorf("failed to open table body: %w", err)
	}
	return &Decoder{
		ctx:      ctx,
		main:     main,
		external: external,
		table:    t,
		log:      logger.OrNop(log),
		rc:       rc,
		dec:      xml.NewDecoder(rc),
	}, nil
}

// Next advances to the next row. It returns false at the end of the table
// or on error; Err distinguishes the two.
func (d *Decoder) Next() bool {
	if d.done || d.err != nil {
		return false
	}
	if err := d.ctx.Err(); err != nil {
		d.err = err
		return false
	}
	for {
		tok, err := d.dec.Token()
		if err == io.EOF {
			d.finish()
			return false
		}
		if err != nil {
			d.err = fmt.Errorf("%w: %v", ErrMalformedContent, err)
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "table":
				continue
			case "row":
				d.row++
				cells, err := d.readRow()
				if err != nil {
					d.err = err
					return false
				}
				d.cells = cells
				if d.row%progressEvery == 0 {
					d.log.Infof("read %d rows of %s.%s", d.row, d.table.SchemaName, d.table.Name)
				}
				return true
			default:
				d.err = fmt.Errorf("%w: unexpected element <%s>", ErrMalformedContent, t.Name.Local)
				return false
			}
		case xml.EndElement:
			if t.Name.Local == "table" {
				d.finish()
				return false
			}
		}
	}
}

func (d *Decoder) finish() {
	if !d.done {
		d.done = true
		d.log.Debugf("read %d rows of %s.%s", d.row, d.table.SchemaName, d.table.Name)
	}
}

// Cells returns the current row. The caller owns and releases the cells.
func (d *Decoder) Cells() []am.Cell { return d.cells }

// Row is the 1-based index of the current row.
func (d *Decoder) Row() int64 { return d.row }

func (d *Decoder) Err() error { return d.err }

func (d *Decoder) Close() error {
	d.done = true
	return d.rc.Close()
}

func (d *Decoder) readRow() ([]am.Cell, error) {
	cells := make([]am.Cell, len(d.table.Columns))
	for {
		tok, err := d.dec.Token()
		if err != nil {
			am.ReleaseRow(cells)
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedContent, d.row, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			col, ok := elementIndex(t.Name.Local, cellPrefix)
			if !ok || col > len(cells) {
				am.ReleaseRow(cells)
				return nil, fmt.Errorf("%w: row %d: unexpected element <%s>", ErrMalformedContent, d.row, t.Name.Local)
			}
			n, err := d.readNode(t)
			if err != nil {
				am.ReleaseRow(cells)
				return nil, err
			}
			at := Coordinates{Schema: d.table.SchemaIndex, Table: d.table.Index, Column: col, Row: d.row}
			cell, err := d.convert(n, d.table.Columns[col-1].Type, at)
			if err != nil {
				am.ReleaseRow(cells)
				return nil, err
			}
			cells[col-1] = cell
		case xml.EndElement:
			if t.Name.Local != "row" {
				continue
			}
			for i, c := range cells {
				if c == nil {
					cells[i] = am.NewNullCell(d.cellID(i+1, nil))
				}
			}
			return cells, nil
		}
	}
}

// readNode collects the subtree of start.
func (d *Decoder) readNode(start xml.StartElement) (*node, error) {
	n := &node{name: start.Name.Local}
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		if n.attrs == nil {
			n.attrs = make(map[string]string)
		}
		n.attrs[a.Name.Local] = a.Value
	}
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedContent, d.row, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := d.readNode(t)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		case xml.CharData:
			n.text.Write(t)
		case xml.EndElement:
			return n, nil
		}
	}
}

func elementIndex(name, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 1 {
		return 0, false
	}
	return i, true
}

func (d *Decoder) cellID(column int, path []int) string {
	return am.ElementID(am.CellID(d.table.Name, column, d.row), path)
}

func (d *Decoder) convert(n *node, t am.Type, at Coordinates) (am.Cell, error) {
	id := d.cellID(at.Column, at.Path)
	if _, ok := n.attr("file"); ok {
		return d.readLob(n, t, at, id)
	}

	switch v := t.(type) {
	case am.ComposedArray:
		return d.convertArray(n, v, at, id)
	case am.ComposedStructure:
		return d.convertStructure(n, v, id)
	case am.SimpleBinary:
		return hexCell(n.text.String(), id, at)
	}
	return am.NewSimpleCell(id, DecodeText(n.text.String())), nil
}

func hexCell(text, id string, at Coordinates) (am.Cell, error) {
	data, err := hex.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: binary at %s: %v", ErrMalformedContent, at, err)
	}
	if len(data) == 0 {
		return am.NewNullCell(id), nil
	}
	return am.NewBinaryCell(id, am.NewBytesSource(data)), nil
}

// convertArray rebuilds index paths from nested a1..aN elements. An element
// with child elements is an index level, any other element is a leaf.
func (d *Decoder) convertArray(n *node, t am.ComposedArray, at Coordinates, id string) (am.Cell, error) {
	arr := am.NewArrayCell(id)
	var walk func(parent *node, prefix []int) error
	walk = func(parent *node, prefix []int) error {
		for _, child := range parent.children {
			idx, ok := elementIndex(child.name, arrayPrefix)
			if !ok {
				return fmt.Errorf("%w: unexpected element <%s> in array at %s", ErrMalformedContent, child.name, at)
			}
			path := append(append([]int(nil), prefix...), idx)
			if isIndexLevel(child) {
				if err := walk(child, path); err != nil {
					return err
				}
				continue
			}
			leafAt := at
			leafAt.Path = append(append([]int(nil), at.Path...), path...)
			cell, err := d.convert(child, t.Element, leafAt)
			if err != nil {
				return err
			}
			arr.Append(path, cell)
		}
		return nil
	}
	if err := walk(n, nil); err != nil {
		am.Release(arr)
		return nil, err
	}
	return arr, nil
}

// isIndexLevel tells an intermediate array level from a leaf. Leaves may
// have children themselves when they hold structures.
func isIndexLevel(n *node) bool {
	if _, isLob := n.attr("file"); isLob || len(n.children) == 0 {
		return false
	}
	_, ok := elementIndex(n.children[0].name, arrayPrefix)
	return ok
}

func (d *Decoder) convertStructure(n *node, t am.ComposedStructure, id string) (am.Cell, error) {
	size := len(t.Fields)
	for _, child := range n.children {
		if i, ok := elementIndex(child.name, structurePrefix); ok && i > size {
			size = i
		}
	}
	children := make([]am.Cell, size)
	for _, child := range n.children {
		i, ok := elementIndex(child.name, structurePrefix)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected element <%s> in structure %s", ErrMalformedContent, child.name, id)
		}
		childID := id + "." + strconv.Itoa(i)
		var ft am.Type
		if i <= len(t.Fields) {
			ft = t.Fields[i-1].Type
		}
		if _, ok := ft.(am.SimpleBinary); ok {
			cell, err := hexCell(child.text.String(), childID, Coordinates{})
			if err != nil {
				return nil, err
			}
			children[i-1] = cell
			continue
		}
		children[i-1] = am.NewSimpleCell(childID, DecodeText(child.text.String()))
	}
	for i, c := range children {
		if c == nil {
			children[i] = am.NewNullCell(id + "." + strconv.Itoa(i+1))
		}
	}
	return am.NewComposedCell(id, children), nil
}

// locate resolves a file reference to its store and the files holding it.
// A split object yields one location per part.
func (d *Decoder) locate(file string, at Coordinates) (container.Store, []string, error) {
	if strings.HasPrefix(file, "content/") {
		return d.main, []string{file}, nil
	}

	loc := container.Join(ExternalColumnDir(at.Schema, at.Table, at.Column), file)
	if exists(d.ctx, d.external, loc) {
		return d.external, []string{loc}, nil
	}

	dir, name := container.Split(loc)
	base, segDir := container.Split(dir)
	segment, ok := parseSegment(segDir)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", container.ErrNotExist, loc)
	}

	var parts []string
	part := 1
	for seg := segment; ; seg++ {
		found := false
		for {
			p := container.Join(container.Join(base, segmentName(seg)), PartName(name, part))
			if !exists(d.ctx, d.external, p) {
				break
			}
			parts = append(parts, p)
			part++
			found = true
		}
		if !found {
			break
		}
	}
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", container.ErrNotExist, loc)
	}
	return d.external, parts, nil
}

func exists(ctx context.Context, store container.Store, loc string) bool {
	c, name := container.Split(loc)
	r, err := store.Open(ctx, c, name)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// openParts returns one reader over all parts in order.
func openParts(ctx context.Context, store container.Store, parts []string) (io.ReadCloser, error) {
	readers := make([]io.Reader, 0, len(parts))
	closers := make(multiCloser, 0, len(parts))
	for _, p := range parts {
		c, name := container.Split(p)
		r, err := store.Open(ctx, c, name)
		if err != nil {
			closers.Close()
			return nil, err
		}
		readers = append(readers, r)
		closers = append(closers, r)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.MultiReader(readers...), closers}, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// readLob resolves a large object reference. Strings are materialized,
// binaries stay stream-backed. A recorded digest is checked first; for a
// split object it covers the last part only.
func (d *Decoder) readLob(n *node, t am.Type, at Coordinates, id string) (am.Cell, error) {
	file, _ := n.attr("file")
	length := int64(-1)
	if s, ok := n.attr("length"); ok {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: length %q at %s", ErrMalformedContent, s, at)
		}
		length = v
	}
	algorithm, _ := n.attr("digestType")
	expected, _ := n.attr("digest")

	store, parts, err := d.locate(file, at)
	if err != nil {
		return nil, &LobError{At: at, File: file, Op: "locate", Err: err}
	}

	_, binary := t.(am.SimpleBinary)
	var content []byte
	size, err := d.verify(store, parts, algorithm, expected, at, file, !binary, &content)
	if err != nil {
		return nil, err
	}
	if length >= 0 && size != length {
		return nil, &LobError{At: at, File: file, Op: "verify",
			Err: fmt.Errorf("recorded length %d, found %d bytes", length, size)}
	}

	if !binary {
		return am.NewSimpleCell(id, string(content)), nil
	}
	ctx := d.ctx
	return am.NewBinaryCell(id, &am.OpenerSource{
		N: size,
		OpenFunc: func() (io.ReadCloser, error) {
			return openParts(ctx, store, parts)
		},
	}), nil
}

// verify reads the object once, counting its size and checking the digest
// of the whole object, or of the last part for split objects. When keep is
// set the content is returned in *content.
func (d *Decoder) verify(store container.Store, parts []string, algorithm, expected string, at Coordinates, file string, keep bool, content *[]byte) (int64, error) {
	var last hash.Hash
	if expected != "" {
		h, err := newDigest(algorithm)
		if err != nil {
			return 0, &LobError{At: at, File: file, Op: "verify", Err: err}
		}
		last = h
	}

	var total int64
	var buf bytes.Buffer
	for i, p := range parts {
		dw := &digestWriter{w: io.Discard}
		if i == len(parts)-1 {
			dw.h = last
		}
		var dst io.Writer = dw
		if keep {
			dst = io.MultiWriter(dw, &buf)
		}

		c, name := container.Split(p)
		r, err := store.Open(d.ctx, c, name)
		if err != nil {
			return 0, &LobError{At: at, File: p, Op: "open", Err: err}
		}
		_, err = io.Copy(dst, r)
		r.Close()
		if err != nil {
			return 0, &LobError{At: at, File: p, Op: "read", Err: err}
		}
		total += dw.count
	}

	if expected != "" {
		actual := ""
		if last != nil {
			actual = digestHex(last, false)
		}
		if !strings.EqualFold(actual, expected) {
			return 0, &DigestMismatchError{At: at, File: file, Algorithm: algorithm, Expected: expected, Actual: actual}
		}
	}
	if keep {
		*content = buf.Bytes()
	}
	return total, nil
}
