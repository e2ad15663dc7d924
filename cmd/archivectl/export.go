package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-archive/pkg/archive"
	"github.com/redbco/redb-archive/pkg/content"
	"github.com/redbco/redb-archive/pkg/report"
	"github.com/redbco/redb-archive/pkg/typeimport"
)

var (
	exportSchema      string
	exportTables      []string
	exportSchemaIndex int
	maxSamples        int
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tables into an archive",
	Long: `Read tables from the configured source database and write them into the archive at output.path.
Tables are numbered in the order given, starting at 1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(exportTables) == 0 {
			return fmt.Errorf("at least one --table is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runExport(ctx, cmd)
	},
}

func runExport(ctx context.Context, cmd *cobra.Command) error {
	src, err := openSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer src.close()

	st, err := createStores(ctx, cfg)
	if err != nil {
		return err
	}

	rep := report.NewCollector(log, maxSamples)
	imp := typeimport.NewImporter(typeimport.DialectFor(src.id), nil, log, rep)
	x := archive.NewExporter(st.main, st.external, content.OptionsFromConfig(cfg.Codec), log, rep)

	for i, name := range exportTables {
		rows, err := src.query(ctx, exportSchema, name)
		if err != nil {
			st.close()
			return fmt.Errorf("table %s: %w", name, err)
		}
		table := archive.ImportTable(imp, exportSchema, name, exportSchemaIndex, i+1, rows.Descriptors(exportSchema, name))
		summary, err := x.ExportTable(ctx, table, rows)
		if err != nil {
			st.close()
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s.%s: %d rows, %d large objects\n", exportSchema, name, summary.Rows, summary.Lobs)
	}
	if pending := imp.Registry().Pending(); len(pending) > 0 {
		log.Warnf("structured types without definition: %v", pending)
	}

	if err := x.Finish(ctx); err != nil {
		st.close()
		return err
	}
	if err := st.close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "status: %s %s\n", rep.Status(), rep.Summary())
	for _, f := range rep.Findings() {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s: %s\n", f.Category, f.Location, f.Message)
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportSchema, "schema", "", "Schema holding the tables")
	exportCmd.Flags().StringArrayVar(&exportTables, "table", nil, "Table to export, repeatable")
	exportCmd.Flags().IntVar(&exportSchemaIndex, "schema-index", 1, "Archive position of the schema")
	exportCmd.Flags().IntVar(&maxSamples, "max-samples", 20, "Findings kept per category")
}
