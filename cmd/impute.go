package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/clean"
	"github.com/sells-group/clinic-pipeline/internal/impute"
	"github.com/sells-group/clinic-pipeline/internal/quality"
	"github.com/sells-group/clinic-pipeline/internal/store"
)

var imputeCmd = &cobra.Command{
	Use:   "impute",
	Short: "Fill missing zip, clinic type, and ratings without matching or merging",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, err := st.LoadDataset(ctx)
		if err != nil {
			return eris.Wrap(err, "impute: load dataset")
		}
		ledger, err := store.LoadLedger(ctx, st)
		if err != nil {
			return eris.Wrap(err, "impute: load provenance")
		}
		if dryRun {
			ds = ds.Clone()
		}
		ds.SortByID()

		runnable, held := clean.Quarantine(ds, clean.Validate(ds))
		if len(held) > 0 {
			zap.L().Warn("impute: invalid clinics held back", zap.Int64s("clinic_ids", held))
		}

		opts := pipelineOptions(cfg.Reconcile, dryRun)
		runID := uuid.NewString()
		res, err := impute.New(opts.Impute).Run(ctx, runnable, ledger, runID)
		if err != nil {
			return eris.Wrap(err, "impute")
		}
		quality.Recompute(runnable)

		if !dryRun {
			if err := st.SaveDataset(ctx, ds); err != nil {
				return eris.Wrap(err, "impute: save dataset")
			}
			if err := st.SaveProvenance(ctx, ledger.Entries()); err != nil {
				return eris.Wrap(err, "impute: save provenance")
			}
		}

		zap.L().Info("impute complete",
			zap.String("run_id", runID),
			zap.Bool("dry_run", dryRun),
			zap.Int("filled", res.Total()),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	imputeCmd.Flags().Bool("dry-run", false, "report what would be filled without writing")
	rootCmd.AddCommand(imputeCmd)
}
