package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/export"
	"github.com/sells-group/clinic-pipeline/internal/quality"
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the reconciled dataset to a .csv or .xlsx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]
		activeOnly, _ := cmd.Flags().GetBool("active-only")
		opts := export.Options{ActiveOnly: activeOnly}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, ledger, err := loadState(ctx, st)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			f, err := os.Create(path)
			if err != nil {
				return eris.Wrapf(err, "export: create %s", path)
			}
			if err := export.WriteCSV(f, ds, ledger, opts); err != nil {
				f.Close() //nolint:errcheck
				return err
			}
			if err := f.Close(); err != nil {
				return eris.Wrapf(err, "export: close %s", path)
			}
		case ".xlsx":
			if err := export.WriteXLSX(path, ds, ledger, quality.Build(ds, ledger, nil), opts); err != nil {
				return err
			}
		default:
			return eris.Errorf("export: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
		}

		zap.L().Info("export complete",
			zap.String("path", path),
			zap.Int("clinics", len(ds.Clinics)),
			zap.Bool("active_only", activeOnly),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().Bool("active-only", false, "skip deactivated duplicates")
	rootCmd.AddCommand(exportCmd)
}
