package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/dbcapabilities"
	"github.com/redbco/redb-archive/pkg/report"
	"github.com/redbco/redb-archive/pkg/typeimport"
)

var (
	typeDialect string
	typeCode    int
	typeSize    int
	typeScale   int
	typeSQL99   bool
)

// typesCmd represents the types command
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Inspect the type mapping",
	Long:  `Commands for classifying database column types and parsing archived type names.`,
}

// typesImportCmd represents the types import command
var typesImportCmd = &cobra.Command{
	Use:   "import [type-name]",
	Short: "Classify a database column type",
	Long:  `Classify a column type as a driver reports it (type code, vendor name, size and scale) into an archive type.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep := report.NewCollector(log, 1)
		imp := typeimport.NewImporter(dialectFor(typeDialect), nil, log, rep)
		t := imp.Import(typeimport.Descriptor{
			Column:   "column",
			Code:     am.SQLType(typeCode),
			TypeName: args[0],
			Size:     typeSize,
			Scale:    typeScale,
			Radix:    10,
		})
		printType(cmd.OutOrStdout(), t)
		if rep.Count(report.CategoryUnsupportedType) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "note: type is not supported and is archived as text")
		}
		return nil
	},
}

// typesParseCmd represents the types parse command
var typesParseCmd = &cobra.Command{
	Use:   "parse [standard-name]",
	Short: "Parse an archived type name",
	Long:  `Parse a SQL:2008 (or, with --sql99, SQL:1999) type name as written in an archive back into an archive type.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imp := typeimport.NewImporter(nil, nil, log, nil)
		var t am.Type
		var err error
		if typeSQL99 {
			t, err = imp.ParseSQL99(args[0], "")
		} else {
			t, err = imp.ParseSQL2008(args[0], "")
		}
		if err != nil {
			return err
		}
		printType(cmd.OutOrStdout(), t)
		return nil
	},
}

func dialectFor(name string) *typeimport.Dialect {
	if name == "" {
		return nil
	}
	id, ok := dbcapabilities.ParseID(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown database type %q, using default rules\n", name)
		return nil
	}
	return typeimport.DialectFor(id)
}

func printType(w io.Writer, t am.Type) {
	n := t.TypeNames()
	fmt.Fprintf(w, "kind:      %s\n", am.KindOf(t))
	fmt.Fprintf(w, "SQL:2008:  %s\n", n.SQL2008)
	fmt.Fprintf(w, "SQL:1999:  %s\n", n.SQL99)
	fmt.Fprintf(w, "original:  %s\n", n.Original)
	if arr, ok := t.(am.ComposedArray); ok {
		fmt.Fprintf(w, "element:   %s\n", am.Describe(arr.Element))
	}
	if st, ok := t.(am.ComposedStructure); ok {
		for _, f := range st.Fields {
			fmt.Fprintf(w, "field:     %s %s\n", f.Name, am.Describe(f.Type))
		}
	}
}

func init() {
	typesImportCmd.Flags().StringVar(&typeDialect, "db", "", "Database type whose naming rules apply (postgres, mysql, mssql, oracle)")
	typesImportCmd.Flags().IntVar(&typeCode, "code", int(am.TypeOther), "Driver type code")
	typesImportCmd.Flags().IntVar(&typeSize, "size", 0, "Column size or precision")
	typesImportCmd.Flags().IntVar(&typeScale, "scale", 0, "Column scale")

	typesParseCmd.Flags().BoolVar(&typeSQL99, "sql99", false, "Parse the SQL:1999 convention")
}
