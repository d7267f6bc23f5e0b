package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/clinic-pipeline/internal/clean"
	"github.com/sells-group/clinic-pipeline/internal/match"
	"github.com/sells-group/clinic-pipeline/internal/quality"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "List duplicate groups in the stored dataset without merging them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, err := st.LoadDataset(ctx)
		if err != nil {
			return eris.Wrap(err, "match: load dataset")
		}

		// Work on a copy: matching here must not rewrite stored values.
		work := ds.Clone()
		work.SortByID()
		runnable, _ := clean.Quarantine(work, clean.Validate(work))
		if cfg.Reconcile.Standardize {
			clean.StandardizeAll(runnable)
		}
		quality.AssignInitialScores(runnable)

		opts := pipelineOptions(cfg.Reconcile, true)
		groups, err := match.NewMatcher(opts.Match).FindGroups(ctx, runnable.Clinics)
		if err != nil {
			return eris.Wrap(err, "match")
		}
		if groups == nil {
			groups = []match.Group{}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
