package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/ingest"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/store"
)

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import clinic records from a collector CSV or XLSX export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		read, err := ingest.ReadFile(ctx, importPath)
		if err != nil {
			return eris.Wrap(err, "import")
		}
		for _, re := range read.Skipped {
			zap.L().Warn("import: row skipped", zap.String("file", importPath), zap.String("reason", re.Error()))
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := importClinics(ctx, st, read.Clinics, time.Now().UTC(), dryRun)
		if err != nil {
			return err
		}
		for _, re := range sum.Rejected {
			zap.L().Warn("import: row rejected", zap.String("file", importPath), zap.String("reason", re.Error()))
		}

		zap.L().Info("import complete",
			zap.String("file", importPath),
			zap.Bool("dry_run", dryRun),
			zap.Int("read", len(read.Clinics)),
			zap.Int("skipped", len(read.Skipped)),
			zap.Int("added", sum.Added),
			zap.Int("updated", sum.Updated),
			zap.Int("rejected", len(sum.Rejected)),
			zap.Int("replaced", len(sum.Replaced)),
		)
		return nil
	},
}

// importClinics folds clinics into the stored dataset. Imputation records
// for values the import replaced are dropped so those values read as
// original. A dry run writes nothing.
func importClinics(ctx context.Context, st store.Store, clinics []*model.Clinic, now time.Time, dryRun bool) (ingest.Summary, error) {
	ds, ledger, err := loadState(ctx, st)
	if err != nil {
		return ingest.Summary{}, eris.Wrap(err, "import")
	}

	sum := ingest.Apply(ds, clinics, now)
	forgotten := sum.ForgetReplaced(ledger)
	if dryRun {
		return sum, nil
	}

	if err := st.SaveDataset(ctx, ds); err != nil {
		return sum, eris.Wrap(err, "import: save dataset")
	}
	if forgotten > 0 {
		if err := st.SaveProvenance(ctx, ledger.Entries()); err != nil {
			return sum, eris.Wrap(err, "import: save provenance")
		}
	}
	return sum, nil
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to .csv or .xlsx export (required)")
	importCmd.Flags().Bool("dry-run", false, "parse and fold the file without saving")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
