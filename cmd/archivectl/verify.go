package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-archive/pkg/archive"
	"github.com/redbco/redb-archive/pkg/typeimport"
)

var verifyConcurrency int

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an archive",
	Long: `Read back every table listed in the archive manifest at output.path, checking each large object
against its recorded digest and each table against its recorded row count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.close()

		imp := typeimport.NewImporter(nil, nil, log, nil)
		results, err := archive.Verify(ctx, st.main, st.external, imp, verifyConcurrency, log)
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s: %d rows\n", r.Table.SchemaName, r.Table.Name, r.Rows)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "verified %d tables\n", len(results))
		return nil
	},
}

func init() {
	verifyCmd.Flags().IntVar(&verifyConcurrency, "concurrency", 4, "Tables verified in parallel")
}
