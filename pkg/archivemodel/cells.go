package archivemodel

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Cell is one value of one row. The set of variants is closed.
type Cell interface {
	ID() string
	isCell()
}

// CellID builds the stable identifier table.column.row.
func CellID(table string, column int, row int64) string {
	return table + "." + strconv.Itoa(column) + "." + strconv.FormatInt(row, 10)
}

// ElementID extends a cell identifier with an array index path.
func ElementID(id string, path []int) string {
	if len(path) == 0 {
		return id
	}
	var b strings.Builder
	b.WriteString(id)
	for _, p := range path {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

// NullCell is an SQL NULL.
type NullCell struct {
	id string
}

// NewNullCell returns a NULL cell.
func NewNullCell(id string) *NullCell { return &NullCell{id: id} }

func (c *NullCell) ID() string { return c.id }
func (*NullCell) isCell()      {}

// SimpleCell holds the canonical text of a scalar value. A SimpleCell may
// carry no data, which is how date/time NULLs are read.
type SimpleCell struct {
	id    string
	data  string
	valid bool
}

// NewSimpleCell returns a cell holding data.
func NewSimpleCell(id, data string) *SimpleCell {
	return &SimpleCell{id: id, data: data, valid: true}
}

// NewEmptySimpleCell returns a simple cell without data.
func NewEmptySimpleCell(id string) *SimpleCell { return &SimpleCell{id: id} }

func (c *SimpleCell) ID() string { return c.id }
func (*SimpleCell) isCell()      {}

// Data returns the text and whether any is present.
func (c *SimpleCell) Data() (string, bool) { return c.data, c.valid }

// ByteSize is the UTF-8 length of the data, or -1 without data.
func (c *SimpleCell) ByteSize() int64 {
	if !c.valid {
		return -1
	}
	return int64(len(c.data))
}

// RuneCount is the character length of the data, or -1 without data.
func (c *SimpleCell) RuneCount() int {
	if !c.valid {
		return -1
	}
	return utf8.RuneCountInString(c.data)
}

// BinarySource is a re-openable byte stream of known size.
type BinarySource interface {
	Size() int64
	Open() (io.ReadCloser, error)
	Release() error
}

// BinaryCell is octet data reached through a BinarySource. Size <= 0 is NULL.
type BinaryCell struct {
	id       string
	source   BinarySource
	released bool
}

// NewBinaryCell wraps src. A nil src is a NULL binary.
func NewBinaryCell(id string, src BinarySource) *BinaryCell {
	return &BinaryCell{id: id, source: src}
}

func (c *BinaryCell) ID() string { return c.id }
func (*BinaryCell) isCell()      {}

// Size is the byte length of the content, or 0 when there is none.
func (c *BinaryCell) Size() int64 {
	if c.source == nil {
		return 0
	}
	return c.source.Size()
}

// IsNull reports whether the cell is equivalent to NullCell.
func (c *BinaryCell) IsNull() bool { return c.Size() <= 0 }

// Open returns a fresh stream over the content.
func (c *BinaryCell) Open() (io.ReadCloser, error) {
	if c.released {
		return nil, fmt.Errorf("binary cell %s: %w", c.id, ErrReleased)
	}
	if c.source == nil {
		return io.NopCloser(strings.NewReader("")), nil
	}
	return c.source.Open()
}

// Release frees the source. Calling it again is a no-op.
func (c *BinaryCell) Release() error {
	if c.released || c.source == nil {
		c.released = true
		return nil
	}
	c.released = true
	return c.source.Release()
}

// ComposedCell holds one child per structure field.
type ComposedCell struct {
	id       string
	Children []Cell
}

// NewComposedCell returns a structure value.
func NewComposedCell(id string, children []Cell) *ComposedCell {
	return &ComposedCell{id: id, Children: children}
}

func (c *ComposedCell) ID() string { return c.id }
func (*ComposedCell) isCell()      {}

// ArrayElement is one leaf of an array with its 1-based index path.
type ArrayElement struct {
	Path []int
	Cell Cell
}

// ArrayCell holds array leaves in arrival order.
type ArrayCell struct {
	id       string
	elements []ArrayElement
}

// NewArrayCell returns an empty array value.
func NewArrayCell(id string) *ArrayCell { return &ArrayCell{id: id} }

func (c *ArrayCell) ID() string { return c.id }
func (*ArrayCell) isCell()      {}

// Append adds a leaf at path. The path is copied.
func (c *ArrayCell) Append(path []int, cell Cell) {
	p := make([]int, len(path))
	copy(p, path)
	c.elements = append(c.elements, ArrayElement{Path: p, Cell: cell})
}

// Elements returns the leaves in arrival order.
func (c *ArrayCell) Elements() []ArrayElement { return c.elements }

// Len is the number of leaves.
func (c *ArrayCell) Len() int { return len(c.elements) }

// MaxIndex is the largest first-level index, 0 for an empty array.
func (c *ArrayCell) MaxIndex() int {
	highest := 0
	for _, e := range c.elements {
		if len(e.Path) > 0 && e.Path[0] > highest {
			highest = e.Path[0]
		}
	}
	return highest
}

// ErrReleased is returned when reading a cell whose resources were released.
var ErrReleased = errors.New("cell resources released")

// ApparentSize returns the byte size of c without reading stream content.
// NULL values are -1.
func ApparentSize(c Cell) int64 {
	switch v := c.(type) {
	case *SimpleCell:
		return v.ByteSize()
	case *BinaryCell:
		if v.IsNull() {
			return -1
		}
		return v.Size()
	case *ComposedCell:
		return sumSizes(v.Children)
	case *ArrayCell:
		children := make([]Cell, 0, len(v.elements))
		for _, e := range v.elements {
			children = append(children, e.Cell)
		}
		return sumSizes(children)
	}
	return -1
}

func sumSizes(cells []Cell) int64 {
	var total int64
	seen := false
	for _, c := range cells {
		if s := ApparentSize(c); s >= 0 {
			total += s
			seen = true
		}
	}
	if !seen {
		return -1
	}
	return total
}

// Release frees every stream held by c and its children.
func Release(c Cell) error {
	switch v := c.(type) {
	case *BinaryCell:
		return v.Release()
	case *ComposedCell:
		var errs []error
		for _, child := range v.Children {
			if err := Release(child); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	case *ArrayCell:
		var errs []error
		for _, e := range v.elements {
			if err := Release(e.Cell); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

// ReleaseRow releases every cell of a row.
func ReleaseRow(cells []Cell) error {
	var errs []error
	for _, c := range cells {
		if c == nil {
			continue
		}
		if err := Release(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
