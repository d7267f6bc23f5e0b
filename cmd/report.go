package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/clinic-pipeline/internal/export"
	"github.com/sells-group/clinic-pipeline/internal/quality"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the completeness report of the stored dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, ledger, err := loadState(ctx, st)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		rep := quality.Build(ds, ledger, nil)

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrapf(err, "report: create %s", output)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		return export.WriteReport(w, rep, format)
	},
}

func init() {
	reportCmd.Flags().String("format", export.FormatJSON, "report format (json, yaml)")
	reportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
