package dbcapabilities

import (
	"sort"
	"strings"
)

// DatabaseID is the canonical identifier for a source database family.
type DatabaseID string

const (
	PostgreSQL  DatabaseID = "postgres"
	CockroachDB DatabaseID = "cockroach"
	MySQL       DatabaseID = "mysql"
	MariaDB     DatabaseID = "mariadb"
	SQLServer   DatabaseID = "mssql"
	Oracle      DatabaseID = "oracle"
)

// Capability describes one database family.
type Capability struct {
	// Human-friendly product name, e.g. "PostgreSQL".
	Name string `json:"name"`

	ID DatabaseID `json:"id"`

	DefaultPort int `json:"defaultPort"`

	// System databases, first one is used when a URL names no database.
	SystemDatabases []string `json:"systemDatabases,omitempty"`

	// Aliases and URL schemes that map to this ID.
	Aliases []string `json:"aliases,omitempty"`

	// Export is set when a row reader exists for the family. Families
	// without one still have a type dialect.
	Export bool `json:"export"`
}

// All is a registry of capabilities keyed by the canonical database ID.
var All = map[DatabaseID]Capability{
	PostgreSQL: {
		Name:            "PostgreSQL",
		ID:              PostgreSQL,
		DefaultPort:     5432,
		SystemDatabases: []string{"postgres"},
		Aliases:         []string{"postgresql", "pgsql", "pgx"},
		Export:          true,
	},
	CockroachDB: {
		Name:            "CockroachDB",
		ID:              CockroachDB,
		DefaultPort:     26257,
		SystemDatabases: []string{"system"},
		Aliases:         []string{"cockroachdb", "crdb"},
		Export:          true,
	},
	MySQL: {
		Name:            "MySQL",
		ID:              MySQL,
		DefaultPort:     3306,
		SystemDatabases: []string{"mysql"},
		Aliases:         []string{"aurora-mysql"},
		Export:          true,
	},
	MariaDB: {
		Name:            "MariaDB",
		ID:              MariaDB,
		DefaultPort:     3306,
		SystemDatabases: []string{"mysql"},
		Export:          true,
	},
	SQLServer: {
		Name:            "Microsoft SQL Server",
		ID:              SQLServer,
		DefaultPort:     1433,
		SystemDatabases: []string{"master"},
		Aliases:         []string{"sqlserver", "azure-sql"},
		Export:          true,
	},
	Oracle: {
		Name:            "Oracle Database",
		ID:              Oracle,
		DefaultPort:     1521,
		SystemDatabases: []string{"CDB$ROOT"},
		Aliases:         []string{"oracledb"},
	},
}

var aliasIndex = map[string]DatabaseID{}

func init() {
	for id, c := range All {
		aliasIndex[string(id)] = id
		for _, a := range c.Aliases {
			aliasIndex[strings.ToLower(a)] = id
		}
	}
}

// ParseID maps a free-form name (ID, alias or URL scheme) to its DatabaseID.
func ParseID(name string) (DatabaseID, bool) {
	id, ok := aliasIndex[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// Get returns capabilities for the given ID and a boolean indicating existence.
func Get(id DatabaseID) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// IDs returns all known database IDs in sorted order.
func IDs() []DatabaseID {
	out := make([]DatabaseID, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanExport reports whether rows can be read from the family.
func CanExport(id DatabaseID) bool {
	c, ok := Get(id)
	return ok && c.Export
}

func (c Capability) isSystemDatabase(name string) bool {
	for _, s := range c.SystemDatabases {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}
