package content

import (
	am "github.com/redbco/redb-archive/pkg/archivemodel"
)

// Column is one column of a table in archive order.
type Column struct {
	Name     string
	Type     am.Type
	Nullable bool
}

// Table addresses one table of the archive. Indexes are 1-based.
type Table struct {
	SchemaName  string
	Name        string
	SchemaIndex int
	Index       int
	Columns     []Column
}

// TableSummary describes a table once it has been written.
type TableSummary struct {
	Rows int64
	Lobs int
	// MaxArrayLength holds, per 1-based column index, the largest first-level
	// array index seen. Only array columns appear.
	MaxArrayLength map[int]int
	// Containers lists the external containers finished for this table.
	Containers []string
}
