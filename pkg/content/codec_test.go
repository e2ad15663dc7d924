package content

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/container"
	"github.com/redbco/redb-archive/pkg/report"
)

var (
	clobType = am.SimpleString{Names: am.Names{Original: "text", SQL99: "CHARACTER LARGE OBJECT", SQL2008: "CHARACTER LARGE OBJECT"}, Large: true}
	blobType = am.SimpleBinary{Names: am.Names{Original: "bytea", SQL99: "BINARY LARGE OBJECT", SQL2008: "BINARY LARGE OBJECT"}, Large: true}
	intType  = am.SimpleNumericExact{Names: am.Names{Original: "int4", SQL99: "INTEGER", SQL2008: "INTEGER"}, Precision: 10}
)

func testTable(cols ...Column) Table {
	return Table{SchemaName: "public", Name: "docs", SchemaIndex: 1, Index: 1, Columns: cols}
}

func id(column int, row int64) string {
	return am.CellID("docs", column, row)
}

func blob(column int, row int64, data []byte) *am.BinaryCell {
	return am.NewBinaryCell(id(column, row), am.NewBytesSource(data))
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func encode(t *testing.T, main, ext container.Store, opts Options, rep report.Reporter, table Table, rows ...[]am.Cell) TableSummary {
	t.Helper()
	ctx := context.Background()
	enc, err := NewEncoder(main, ext, opts, nil, rep)
	require.NoError(t, err)
	require.NoError(t, enc.OpenTable(ctx, table))
	for _, row := range rows {
		require.NoError(t, enc.WriteRow(ctx, row))
	}
	summary, err := enc.CloseTable(ctx)
	require.NoError(t, err)
	return summary
}

func decode(t *testing.T, main, ext container.Store, table Table) ([][]am.Cell, error) {
	t.Helper()
	dec, err := NewDecoder(context.Background(), main, ext, table, nil)
	require.NoError(t, err)
	defer dec.Close()
	var rows [][]am.Cell
	for dec.Next() {
		rows = append(rows, dec.Cells())
	}
	return rows, dec.Err()
}

func body(t *testing.T, store *container.MemStore) string {
	t.Helper()
	data, ok := store.Bytes(TableXMLPath(1, 1))
	require.True(t, ok)
	return string(data)
}

func schemaText(t *testing.T, store *container.MemStore) string {
	t.Helper()
	data, ok := store.Bytes(TableXSDPath(1, 1))
	require.True(t, ok)
	return string(data)
}

func text(t *testing.T, c am.Cell) string {
	t.Helper()
	s, ok := c.(*am.SimpleCell)
	require.True(t, ok, "got %T", c)
	data, valid := s.Data()
	require.True(t, valid)
	return data
}

func content(t *testing.T, c am.Cell) []byte {
	t.Helper()
	b, ok := c.(*am.BinaryCell)
	require.True(t, ok, "got %T", c)
	r, err := b.Open()
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func TestInlineThresholdBoundary(t *testing.T) {
	main := container.NewMemStore()
	opts := DefaultOptions()
	table := testTable(Column{Name: "body", Type: clobType}, Column{Name: "data", Type: blobType})

	atString := strings.Repeat("x", 4000)
	overString := strings.Repeat("y", 4001)
	atBinary := pattern(2000)
	overBinary := pattern(2001)

	summary := encode(t, main, nil, opts, nil, table,
		[]am.Cell{am.NewSimpleCell(id(1, 1), atString), blob(2, 1, atBinary)},
		[]am.Cell{am.NewSimpleCell(id(1, 2), overString), blob(2, 2, overBinary)},
	)
	assert.Equal(t, int64(2), summary.Rows)
	assert.Equal(t, 2, summary.Lobs)
	assert.Empty(t, summary.Containers)

	xml := body(t, main)
	assert.Contains(t, xml, "<c1>"+atString+"</c1>")
	assert.Contains(t, xml, "<c2>"+hex.EncodeToString(atBinary)+"</c2>")
	assert.Contains(t, xml, `<c1 file="content/schema1/table1/lob1/record2.txt" length="4001" digestType="MD5" digest="`)
	assert.Contains(t, xml, `<c2 file="content/schema1/table1/lob2/record2.bin" length="2001" digestType="MD5" digest="`)

	stored, ok := main.Bytes("content/schema1/table1/lob1/record2.txt")
	require.True(t, ok)
	assert.Equal(t, overString, string(stored))
	sum := md5.Sum([]byte(overString))
	assert.Contains(t, xml, `digest="`+strings.ToUpper(hex.EncodeToString(sum[:]))+`"`)

	rows, err := decode(t, main, nil, table)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, atString, text(t, rows[0][0]))
	assert.Equal(t, atBinary, content(t, rows[0][1]))
	assert.Equal(t, overString, text(t, rows[1][0]))
	assert.Equal(t, overBinary, content(t, rows[1][1]))
}

func TestNonLargeColumnsStayInline(t *testing.T) {
	main := container.NewMemStore()
	varchar := am.SimpleString{Names: am.Names{Original: "varchar", SQL2008: "CHARACTER VARYING(10000)"}, Length: 10000}
	table := testTable(Column{Name: "v", Type: varchar})
	long := strings.Repeat("z", 9000)

	summary := encode(t, main, nil, DefaultOptions(), nil, table, []am.Cell{am.NewSimpleCell(id(1, 1), long)})
	assert.Equal(t, 0, summary.Lobs)
	assert.Contains(t, body(t, main), "<c1>"+long+"</c1>")
}

func TestExternalContainerRotationByCount(t *testing.T) {
	main := container.NewMemStore()
	ext := container.NewMemStore()
	opts := DefaultOptions()
	opts.ExternalLobs = true
	opts.ContainerMaxObjects = 2
	opts.BinaryInlineThreshold = 10
	table := testTable(Column{Name: "data", Type: blobType})

	var rows [][]am.Cell
	var want [][]byte
	for r := int64(1); r <= 3; r++ {
		data := bytes.Repeat([]byte{byte(r)}, 20)
		want = append(want, data)
		rows = append(rows, []am.Cell{blob(1, r, data)})
	}
	summary := encode(t, main, ext, opts, nil, table, rows...)

	assert.Equal(t, []string{"s1_t1_c1/seg_0", "s1_t1_c1/seg_1"}, ext.Containers())
	assert.Equal(t, []string{"s1_t1_c1/seg_0", "s1_t1_c1/seg_1"}, summary.Containers)
	assert.Equal(t, []string{"t1_c1_r1.bin", "t1_c1_r2.bin"}, ext.Files("s1_t1_c1/seg_0"))
	assert.Equal(t, []string{"t1_c1_r3.bin"}, ext.Files("s1_t1_c1/seg_1"))
	assert.True(t, ext.Finished("s1_t1_c1/seg_0"))
	assert.True(t, ext.Finished("s1_t1_c1/seg_1"))

	xml := body(t, main)
	assert.Contains(t, xml, `file="seg_0/t1_c1_r2.bin"`)
	assert.Contains(t, xml, `file="seg_1/t1_c1_r3.bin"`)

	got, err := decode(t, main, ext, table)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range got {
		assert.Equal(t, want[i], content(t, got[i][0]))
	}
}

func TestExternalObjectSplitAcrossContainers(t *testing.T) {
	main := container.NewMemStore()
	ext := container.NewMemStore()
	opts := DefaultOptions()
	opts.ExternalLobs = true
	opts.ContainerBudget = 100
	opts.BinaryInlineThreshold = 10
	table := testTable(Column{Name: "data", Type: blobType})

	big := pattern(250)
	small := pattern(20)
	summary := encode(t, main, ext, opts, nil, table,
		[]am.Cell{blob(1, 1, big)},
		[]am.Cell{blob(1, 2, small)},
	)

	assert.Equal(t, []string{"t1_c1_r1.bin_part001"}, ext.Files("s1_t1_c1/seg_0"))
	assert.Equal(t, []string{"t1_c1_r1.bin_part002"}, ext.Files("s1_t1_c1/seg_1"))
	assert.Equal(t, []string{"t1_c1_r1.bin_part003", "t1_c1_r2.bin"}, ext.Files("s1_t1_c1/seg_2"))
	assert.Len(t, summary.Containers, 3)

	last := md5.Sum(big[200:])
	xml := body(t, main)
	assert.Contains(t, xml, `<c1 file="seg_0/t1_c1_r1.bin" length="250" digestType="MD5" digest="`+strings.ToUpper(hex.EncodeToString(last[:]))+`"/>`)
	assert.Contains(t, xml, `file="seg_2/t1_c1_r2.bin"`)

	got, err := decode(t, main, ext, table)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, big, content(t, got[0][0]))
	assert.Equal(t, small, content(t, got[1][0]))
}

func TestDigestVerification(t *testing.T) {
	main := container.NewMemStore()
	ext := container.NewMemStore()
	opts := DefaultOptions()
	opts.ExternalLobs = true
	opts.DigestAlgorithm = "SHA-256"
	table := testTable(Column{Name: "data", Type: blobType})

	data := pattern(10 << 20)
	encode(t, main, ext, opts, nil, table, []am.Cell{blob(1, 1, data)})

	sum := sha256.Sum256(data)
	want := strings.ToUpper(hex.EncodeToString(sum[:]))
	assert.Contains(t, body(t, main), `digestType="SHA-256" digest="`+want+`"`)

	got, err := decode(t, main, ext, table)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, bytes.Equal(data, content(t, got[0][0])))

	loc := "s1_t1_c1/seg_0/t1_c1_r1.bin"
	stored, ok := ext.Bytes(loc)
	require.True(t, ok)
	tampered := append([]byte(nil), stored...)
	tampered[len(tampered)/2] ^= 0xFF
	ext.Put(loc, tampered)

	_, err = decode(t, main, ext, table)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDigestMismatch)
	var mismatch *DigestMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, want, mismatch.Expected)
	assert.NotEqual(t, mismatch.Expected, mismatch.Actual)
}

func TestNoDigest(t *testing.T) {
	main := container.NewMemStore()
	opts := DefaultOptions()
	opts.DigestAlgorithm = ""
	opts.StringInlineThreshold = 1
	table := testTable(Column{Name: "body", Type: clobType})

	encode(t, main, nil, opts, nil, table, []am.Cell{am.NewSimpleCell(id(1, 1), "hello")})
	xml := body(t, main)
	assert.Contains(t, xml, `<c1 file="content/schema1/table1/lob1/record1.txt" length="5"/>`)
	assert.NotContains(t, xml, "digestType")

	rows, err := decode(t, main, nil, table)
	require.NoError(t, err)
	assert.Equal(t, "hello", text(t, rows[0][0]))
}

func TestLowerCaseDigest(t *testing.T) {
	main := container.NewMemStore()
	opts := DefaultOptions()
	opts.LowerCaseDigest = true
	opts.StringInlineThreshold = 1
	table := testTable(Column{Name: "body", Type: clobType})

	encode(t, main, nil, opts, nil, table, []am.Cell{am.NewSimpleCell(id(1, 1), "hello")})
	sum := md5.Sum([]byte("hello"))
	assert.Contains(t, body(t, main), `digest="`+hex.EncodeToString(sum[:])+`"`)

	_, err := decode(t, main, nil, table)
	require.NoError(t, err)
}

func TestArrayShape(t *testing.T) {
	main := container.NewMemStore()
	arrType := am.ComposedArray{Names: am.Names{Original: "_int4", SQL2008: "INTEGER ARRAY"}, Element: intType}
	table := testTable(Column{Name: "values", Type: arrType, Nullable: true})

	empty := am.NewArrayCell(id(1, 1))
	three := am.NewArrayCell(id(1, 2))
	for i := 1; i <= 3; i++ {
		three.Append([]int{i}, am.NewSimpleCell(am.ElementID(id(1, 2), []int{i}), strings.Repeat("7", i)))
	}
	one := am.NewArrayCell(id(1, 3))
	one.Append([]int{1}, am.NewSimpleCell(am.ElementID(id(1, 3), []int{1}), "42"))

	summary := encode(t, main, nil, DefaultOptions(), nil, table,
		[]am.Cell{empty}, []am.Cell{three}, []am.Cell{one})
	assert.Equal(t, map[int]int{1: 3}, summary.MaxArrayLength)

	xsd := schemaText(t, main)
	assert.Contains(t, xsd, `name="a3" type="xs:integer"`)
	assert.NotContains(t, xsd, `name="a4"`)

	rows := strings.Split(body(t, main), "<row>")[1:]
	require.Len(t, rows, 3)
	assert.Equal(t, 0, strings.Count(rows[0], "<a"))
	assert.Equal(t, 3, strings.Count(rows[1], "<a"))
	assert.Equal(t, 1, strings.Count(rows[2], "<a"))

	got, err := decode(t, main, nil, table)
	require.NoError(t, err)
	require.Len(t, got, 3)
	lengths := make([]int, 0, 3)
	for _, row := range got {
		arr, ok := row[0].(*am.ArrayCell)
		require.True(t, ok)
		lengths = append(lengths, arr.Len())
	}
	assert.Equal(t, []int{0, 3, 1}, lengths)
	second := got[1][0].(*am.ArrayCell).Elements()
	assert.Equal(t, []int{2}, second[1].Path)
	assert.Equal(t, "77", text(t, second[1].Cell))
}

func TestMultiDimensionalArray(t *testing.T) {
	main := container.NewMemStore()
	table := testTable(Column{Name: "grid", Type: am.ComposedArray{Element: intType}})

	grid := am.NewArrayCell(id(1, 1))
	for i := 1; i <= 2; i++ {
		for j := 1; j <= 2; j++ {
			grid.Append([]int{i, j}, am.NewSimpleCell("", strings.Repeat("1", i+j)))
		}
	}
	summary := encode(t, main, nil, DefaultOptions(), nil, table, []am.Cell{grid})
	assert.Equal(t, 2, summary.MaxArrayLength[1])
	assert.Contains(t, body(t, main), "<c1><a1><a1>11</a1><a2>111</a2></a1><a2><a1>111</a1><a2>1111</a2></a2></c1>")

	got, err := decode(t, main, nil, table)
	require.NoError(t, err)
	arr := got[0][0].(*am.ArrayCell)
	require.Equal(t, 4, arr.Len())
	assert.Equal(t, []int{2, 1}, arr.Elements()[2].Path)
	assert.Equal(t, "111", text(t, arr.Elements()[2].Cell))
}

func TestEmptyBinaryIsNull(t *testing.T) {
	main := container.NewMemStore()
	varbinary := am.SimpleBinary{Names: am.Names{Original: "varbinary", SQL2008: "BINARY VARYING(10)"}, Length: 10}
	table := testTable(Column{Name: "b", Type: varbinary, Nullable: true})

	encode(t, main, nil, DefaultOptions(), nil, table,
		[]am.Cell{blob(1, 1, nil)},
		[]am.Cell{am.NewNullCell(id(1, 2))},
		[]am.Cell{blob(1, 3, []byte{0xAB})},
	)
	rows := strings.Split(body(t, main), "<row>")[1:]
	require.Len(t, rows, 3)
	assert.Equal(t, rows[0], rows[1])
	assert.NotContains(t, rows[0], "<c1")
	assert.Contains(t, rows[2], "<c1>ab</c1>")
	assert.Contains(t, schemaText(t, main), `minOccurs="0" name="c1" type="xs:hexBinary"`)

	got, err := decode(t, main, nil, table)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.IsType(t, &am.NullCell{}, got[0][0])
	assert.IsType(t, &am.NullCell{}, got[1][0])
	assert.Equal(t, []byte{0xAB}, content(t, got[2][0]))
}

func TestTextEscapingRoundTrip(t *testing.T) {
	main := container.NewMemStore()
	unsupported := am.Unsupported{Names: am.Names{Original: "geometry", SQL2008: "CHARACTER VARYING(2147483647)"}}
	table := testTable(
		Column{Name: "v", Type: am.SimpleString{Length: 100}},
		Column{Name: "g", Type: unsupported},
	)
	values := []string{"a  b\\c <d> & 'e'\r\n", "POINT(1  2)\x01"}

	encode(t, main, nil, DefaultOptions(), nil, table,
		[]am.Cell{am.NewSimpleCell(id(1, 1), values[0]), am.NewSimpleCell(id(2, 1), values[1])})
	assert.Contains(t, body(t, main), `a\u0020\u0020b\u005Cc &lt;d&gt; &amp; &apos;e&apos;\u000D`)

	got, err := decode(t, main, nil, table)
	require.NoError(t, err)
	assert.Equal(t, values[0], text(t, got[0][0]))
	assert.Equal(t, values[1], text(t, got[0][1]))
}

func TestStructureColumn(t *testing.T) {
	main := container.NewMemStore()
	collector := report.NewCollector(nil, 10)
	addr := am.ComposedStructure{
		Names:  am.Names{Original: "address"},
		Schema: "public",
		Fields: []am.StructField{
			{Name: "street", Type: am.SimpleString{Length: 50}},
			{Name: "zip", Type: intType},
			{Name: "geo", Type: am.ComposedStructure{Names: am.Names{Original: "point"}, Schema: "public"}},
		},
	}
	table := testTable(Column{Name: "home", Type: addr})

	cell := am.NewComposedCell(id(1, 1), []am.Cell{
		am.NewSimpleCell("", "Main  St"),
		am.NewSimpleCell("", "8000"),
		am.NewComposedCell("", []am.Cell{am.NewSimpleCell("", "1")}),
	})
	encode(t, main, nil, DefaultOptions(), collector, table, []am.Cell{cell})

	assert.Contains(t, body(t, main), `<c1><u1>Main\u0020\u0020St</u1><u2>8000</u2></c1>`)
	assert.Equal(t, 2, collector.Count(report.CategoryStructuralFeature))

	got, err := decode(t, main, nil, table)
	require.NoError(t, err)
	composed, ok := got[0][0].(*am.ComposedCell)
	require.True(t, ok)
	require.Len(t, composed.Children, 3)
	assert.Equal(t, "Main  St", text(t, composed.Children[0]))
	assert.Equal(t, "8000", text(t, composed.Children[1]))
	assert.IsType(t, &am.NullCell{}, composed.Children[2])
}

func TestEncoderStateErrors(t *testing.T) {
	ctx := context.Background()
	main := container.NewMemStore()
	table := testTable(Column{Name: "v", Type: intType})

	enc, err := NewEncoder(main, nil, DefaultOptions(), nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, enc.WriteRow(ctx, []am.Cell{am.NewNullCell("")}), ErrNoTable)
	_, err = enc.CloseTable(ctx)
	assert.ErrorIs(t, err, ErrNoTable)

	require.NoError(t, enc.OpenTable(ctx, table))
	assert.ErrorIs(t, enc.OpenTable(ctx, table), ErrTableOpen)
	assert.ErrorIs(t, enc.WriteRow(ctx, []am.Cell{am.NewNullCell(""), am.NewNullCell("")}), ErrRowShape)
	_, err = enc.CloseTable(ctx)
	require.NoError(t, err)

	bad := table
	bad.Index = 0
	assert.Error(t, enc.OpenTable(ctx, bad))

	_, err = NewEncoder(main, nil, Options{DigestAlgorithm: "SHA-512"}, nil, nil)
	assert.Error(t, err)
}

func TestDecoderMissingObject(t *testing.T) {
	main := container.NewMemStore()
	opts := DefaultOptions()
	opts.StringInlineThreshold = 1
	table := testTable(Column{Name: "body", Type: clobType})
	encode(t, main, nil, opts, nil, table, []am.Cell{am.NewSimpleCell(id(1, 1), "hello")})

	main.Put(TableXMLPath(1, 1), []byte(strings.Replace(body(t, main), "record1.txt", "record9.txt", 1)))
	_, err := decode(t, main, nil, table)
	var lobErr *LobError
	require.ErrorAs(t, err, &lobErr)
	assert.ErrorIs(t, err, container.ErrNotExist)
}

func TestDecoderMalformedBody(t *testing.T) {
	main := container.NewMemStore()
	table := testTable(Column{Name: "v", Type: intType})
	main.Put(TableXMLPath(1, 1), []byte(`<table><row><x1>1</x1></row></table>`))

	_, err := decode(t, main, nil, table)
	assert.ErrorIs(t, err, ErrMalformedContent)
}

func TestSchemaDocument(t *testing.T) {
	main := container.NewMemStore()
	table := testTable(
		Column{Name: "id", Type: intType},
		Column{Name: "body", Type: clobType, Nullable: true},
		Column{Name: "at", Type: am.SimpleDateTime{Names: am.Names{SQL2008: "TIMESTAMP"}, TimePart: true}},
		Column{Name: "t", Type: am.SimpleDateTime{Names: am.Names{SQL2008: "TIME"}, TimePart: true}},
		Column{Name: "d", Type: am.SimpleDateTime{Names: am.Names{SQL2008: "DATE"}}},
		Column{Name: "r", Type: am.SimpleNumericApproximate{Names: am.Names{SQL2008: "REAL"}, Precision: 24}},
	)
	encode(t, main, nil, DefaultOptions(), nil, table)

	xsd := schemaText(t, main)
	ns := TableNamespace(1, 1)
	assert.Equal(t, "http://www.admin.ch/xmlns/siard/2/schema1/table1.xsd", ns)
	assert.Contains(t, xsd, `targetNamespace="`+ns+`"`)
	assert.Contains(t, xsd, `<xs:element name="c1" type="xs:integer"/>`)
	assert.Contains(t, xsd, `<xs:element minOccurs="0" name="c2" type="clobType"/>`)
	assert.Contains(t, xsd, `name="c3" type="dateTimeType"`)
	assert.Contains(t, xsd, `name="c4" type="timeType"`)
	assert.Contains(t, xsd, `name="c5" type="dateType"`)
	assert.Contains(t, xsd, `name="c6" type="xs:float"`)
	assert.Contains(t, xsd, `<xs:enumeration value="SHA-256"/>`)

	xml := body(t, main)
	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, `xsi:schemaLocation="`+ns+` table1.xsd"`)

	rows, err := decode(t, main, nil, table)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestZipStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/archive.zip"
	w, err := container.CreateZip(path, false, t.TempDir(), nil)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.StringInlineThreshold = 3
	table := testTable(Column{Name: "body", Type: clobType})
	encode(t, w, nil, opts, nil, table,
		[]am.Cell{am.NewSimpleCell(id(1, 1), "large enough")},
		[]am.Cell{am.NewSimpleCell(id(1, 2), "ok")},
	)
	require.NoError(t, w.Close())

	r, err := container.OpenZip(path, nil)
	require.NoError(t, err)
	defer r.Close()
	rows, err := decode(t, r, nil, table)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "large enough", text(t, rows[0][0]))
	assert.Equal(t, "ok", text(t, rows[1][0]))
}
