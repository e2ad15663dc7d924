package content

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	namespaceBase = "http://www.admin.ch/xmlns/siard/"
	// Both supported archive versions share the version 2 namespace.
	namespaceVersion = "2"
	xsiNamespace     = "http://www.w3.org/2001/XMLSchema-instance"

	clobExtension = "txt"
	blobExtension = "bin"
)

// TableDir is the folder holding a table's body, schema and inline objects.
func TableDir(schema, table int) string {
	return fmt.Sprintf("content/schema%d/table%d", schema, table)
}

// TableXMLPath is the location of a table body inside the main archive.
func TableXMLPath(schema, table int) string {
	return fmt.Sprintf("%s/table%d.xml", TableDir(schema, table), table)
}

// TableXSDPath is the location of a table schema inside the main archive.
func TableXSDPath(schema, table int) string {
	return fmt.Sprintf("%s/table%d.xsd", TableDir(schema, table), table)
}

// TableNamespace is the target namespace of a table's schema.
func TableNamespace(schema, table int) string {
	return fmt.Sprintf("%s%s/schema%d/table%d.xsd", namespaceBase, namespaceVersion, schema, table)
}

func tableXSDName(table int) string {
	return fmt.Sprintf("table%d.xsd", table)
}

func lobExtension(binary bool) string {
	if binary {
		return blobExtension
	}
	return clobExtension
}

// arraySuffix distinguishes objects stored for individual array elements.
func arraySuffix(path []int) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return "_a" + strings.Join(parts, "_")
}

// InternalLobPath is where a large object lives when it stays in the main archive.
func InternalLobPath(schema, table, column int, row int64, path []int, binary bool) string {
	return fmt.Sprintf("%s/lob%d/record%d%s.%s", TableDir(schema, table), column, row, arraySuffix(path), lobExtension(binary))
}

// ExternalColumnDir groups the external containers of one column.
func ExternalColumnDir(schema, table, column int) string {
	return fmt.Sprintf("s%d_t%d_c%d", schema, table, column)
}

// ExternalContainer names the segment-th external container of a column.
func ExternalContainer(schema, table, column, segment int) string {
	return fmt.Sprintf("%s/%s", ExternalColumnDir(schema, table, column), segmentName(segment))
}

func segmentName(segment int) string {
	return "seg_" + strconv.Itoa(segment)
}

// ExternalLobName is the file name of an external object inside its container.
func ExternalLobName(table, column int, row int64, path []int, binary bool) string {
	return fmt.Sprintf("t%d_c%d_r%d%s.%s", table, column, row, arraySuffix(path), lobExtension(binary))
}

// PartName is the name of one part of a split object, parts counting from 1.
func PartName(name string, part int) string {
	return fmt.Sprintf("%s_part%03d", name, part)
}

// parseSegment extracts N from a "seg_N" path element.
func parseSegment(dir string) (int, bool) {
	rest, ok := strings.CutPrefix(dir, "seg_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
