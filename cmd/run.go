package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile the stored dataset: validate, merge duplicates, impute, report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		rc := cfg.Reconcile
		if cmd.Flags().Changed("strict") {
			rc.StrictValidation, _ = cmd.Flags().GetBool("strict")
		}
		if cmd.Flags().Changed("no-standardize") {
			noStd, _ := cmd.Flags().GetBool("no-standardize")
			rc.Standardize = !noStd
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := pipeline.New(pipelineOptions(rc, dryRun))
		res, err := p.RunStored(ctx, st)
		if res != nil {
			formatRunSummary(os.Stdout, res)
		}
		if err != nil {
			return eris.Wrap(err, "run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", res.Run.ID),
			zap.Bool("dry_run", dryRun),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "compute every stage without writing results")
	runCmd.Flags().Bool("strict", false, "abort the run on any invalid input value")
	runCmd.Flags().Bool("no-standardize", false, "skip phone/name/zip standardization")
	rootCmd.AddCommand(runCmd)
}

// formatRunSummary writes the headline numbers of a run to out.
func formatRunSummary(out io.Writer, res *pipeline.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.Run.ID)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", res.Run.Status)
	if res.Run.DryRun {
		_, _ = fmt.Fprintf(w, "Mode:\tdry run (nothing written)\n")
	}
	if res.Run.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:\t%s\n", res.Run.Error)
	}
	_, _ = fmt.Fprintf(w, "Invalid values:\t%d\n", len(res.Issues))
	_, _ = fmt.Fprintf(w, "Quarantined clinics:\t%d\n", len(res.Quarantined))
	_, _ = fmt.Fprintf(w, "Duplicate groups:\t%d\n", len(res.Groups))
	_, _ = fmt.Fprintf(w, "Groups merged:\t%d\n", res.Merge.GroupsMerged)
	_, _ = fmt.Fprintf(w, "Records deactivated:\t%d\n", res.Merge.RecordsDeactivated)
	_, _ = fmt.Fprintf(w, "Conflicts:\t%d\n", len(res.Merge.Conflicts))
	if res.Impute != nil {
		_, _ = fmt.Fprintf(w, "Fields imputed:\t%d\n", res.Impute.Total())
		_, _ = fmt.Fprintf(w, "Unresolved:\t%d\n", len(res.Impute.Unresolved))
	}
	if res.Report != nil {
		_, _ = fmt.Fprintf(w, "Clinics:\t%d (%d active, %d inactive)\n", res.Report.Total, res.Report.Active, res.Report.Inactive)
		for _, f := range res.Report.FieldNames() {
			fc := res.Report.Fields[f]
			_, _ = fmt.Fprintf(w, "  %s:\t%.1f%% (%d original, %d imputed)\n", f, fc.Percent, fc.Original, fc.Imputed)
		}
	}
	_ = w.Flush()
}
