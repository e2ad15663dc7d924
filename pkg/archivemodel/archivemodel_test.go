package archivemodel

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardName(t *testing.T) {
	assert.Equal(t, "BOOLEAN", StandardName("BOOLEAN"))
	assert.Equal(t, "CHARACTER VARYING(10)", StandardName("CHARACTER VARYING", 10))
	assert.Equal(t, "DECIMAL(10,2)", StandardName("DECIMAL", 10, 2))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same string", SimpleString{Length: 10}, SimpleString{Names: Names{Original: "varchar"}, Length: 10}, true},
		{"large flag differs", SimpleString{Length: 10}, SimpleString{Length: 10, Large: true}, false},
		{"exact scale differs", SimpleNumericExact{Precision: 10, Scale: 2}, SimpleNumericExact{Precision: 10}, false},
		{"variant differs", SimpleBoolean{}, SimpleBinary{Length: 1}, false},
		{"datetime zone", SimpleDateTime{TimePart: true}, SimpleDateTime{TimePart: true, TimeZone: true}, false},
		{"array element", ComposedArray{Element: SimpleString{Length: 1}}, ComposedArray{Element: SimpleString{Length: 1}}, true},
		{
			"structure identity is case-insensitive",
			ComposedStructure{Names: Names{Original: "Address"}, Schema: "Public"},
			ComposedStructure{Names: Names{Original: "ADDRESS"}, Schema: "public"},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible(SimpleBinary{}, NewNullCell("t.1.1")))
	assert.True(t, Compatible(SimpleString{}, NewSimpleCell("t.1.1", "x")))
	assert.False(t, Compatible(SimpleString{}, NewBinaryCell("t.1.1", nil)))
	assert.True(t, Compatible(ComposedArray{Element: SimpleBoolean{}}, NewArrayCell("t.1.1")))
	assert.False(t, Compatible(ComposedStructure{}, NewArrayCell("t.1.1")))
}

func TestWithOriginalName(t *testing.T) {
	got := WithOriginalName(SimpleNumericExact{Precision: 5}, "int2")
	assert.Equal(t, "int2", got.TypeNames().Original)
	assert.Equal(t, 5, got.(SimpleNumericExact).Precision)
}

func TestCellIdentifiers(t *testing.T) {
	id := CellID("orders", 3, 17)
	assert.Equal(t, "orders.3.17", id)
	assert.Equal(t, "orders.3.17.2.1", ElementID(id, []int{2, 1}))
}

func TestApparentSize(t *testing.T) {
	arr := NewArrayCell("t.1.1")
	arr.Append([]int{1}, NewSimpleCell("a", "héllo"))
	arr.Append([]int{2}, NewNullCell("b"))

	assert.Equal(t, int64(-1), ApparentSize(NewNullCell("x")))
	assert.Equal(t, int64(-1), ApparentSize(NewEmptySimpleCell("x")))
	assert.Equal(t, int64(6), ApparentSize(NewSimpleCell("x", "héllo")))
	assert.Equal(t, int64(3), ApparentSize(NewBinaryCell("x", NewBytesSource([]byte{1, 2, 3}))))
	assert.Equal(t, int64(-1), ApparentSize(NewBinaryCell("x", NewBytesSource(nil))))
	assert.Equal(t, int64(6), ApparentSize(arr))
}

type countingSource struct {
	BytesSource
	releases int
}

func (c *countingSource) Release() error {
	c.releases++
	return nil
}

func TestReleaseIsExactlyOnce(t *testing.T) {
	src := &countingSource{BytesSource: BytesSource{data: []byte("abc")}}
	cell := NewBinaryCell("t.1.1", src)
	composed := NewComposedCell("t.2.1", []Cell{cell})

	require.NoError(t, Release(composed))
	require.NoError(t, Release(composed))
	assert.Equal(t, 1, src.releases)

	_, err := cell.Open()
	assert.True(t, errors.Is(err, ErrReleased))
}

func TestSpoolRemovesFileOnRelease(t *testing.T) {
	src, err := Spool(strings.NewReader("spooled content"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(15), src.Size())

	rc, err := src.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "spooled content", string(data))

	require.NoError(t, src.Release())
	require.NoError(t, src.Release())
	_, err = os.Stat(src.path)
	assert.True(t, os.IsNotExist(err))
}

func TestStructureRegistry(t *testing.T) {
	reg := NewStructureRegistry()

	t.Run("reserve then complete", func(t *testing.T) {
		ph := reg.Reserve("public", "address")
		assert.True(t, ph.IsPlaceholder())
		assert.Equal(t, []string{"public.address"}, reg.Pending())

		fields := []StructField{
			{Name: "street", Type: SimpleString{Length: 100}},
			{Name: "zip", Type: SimpleString{Length: 10}},
		}
		require.NoError(t, reg.Complete("PUBLIC", "Address", fields))
		assert.Empty(t, reg.Pending())

		def, state, ok := reg.Lookup("public", "ADDRESS")
		require.True(t, ok)
		assert.Equal(t, StateComplete, state)
		assert.Len(t, def.Fields, 2)
	})

	t.Run("conflicting completion", func(t *testing.T) {
		err := reg.Complete("public", "address", []StructField{{Name: "other", Type: SimpleBoolean{}}})
		assert.True(t, errors.Is(err, ErrStructureConflict))
	})

	t.Run("lookup any schema", func(t *testing.T) {
		def, ok := reg.LookupAny("Address")
		require.True(t, ok)
		assert.Equal(t, "public", def.Schema)
	})

	t.Run("resolve placeholder reference in array", func(t *testing.T) {
		ref := ComposedArray{Element: ComposedStructure{Names: Names{Original: "address"}, Schema: "public"}}
		resolved := reg.Resolve(ref).(ComposedArray)
		assert.Len(t, resolved.Element.(ComposedStructure).Fields, 2)
	})

	t.Run("recursive structure stays a reference", func(t *testing.T) {
		node := ComposedStructure{Names: Names{Original: "node"}, Schema: "public"}
		require.NoError(t, reg.Complete("public", "node", []StructField{
			{Name: "value", Type: SimpleNumericExact{Precision: 10}},
			{Name: "next", Type: node},
		}))
		resolved := reg.Resolve(node).(ComposedStructure)
		require.Len(t, resolved.Fields, 2)
		assert.True(t, resolved.Fields[1].Type.(ComposedStructure).IsPlaceholder())
	})

	t.Run("concurrent readers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok := reg.LookupAny("address")
				assert.True(t, ok)
			}()
		}
		wg.Wait()
	})
}
