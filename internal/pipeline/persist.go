package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/store"
)

// RunStored loads the dataset and provenance ledger from st, runs the
// pipeline, and writes the reconciled dataset, the ledger, and the run
// record back. A dry run writes nothing.
func (p *Pipeline) RunStored(ctx context.Context, st store.Store) (*Result, error) {
	ds, err := st.LoadDataset(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load dataset")
	}
	ledger, err := store.LoadLedger(ctx, st)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load provenance")
	}

	res, runErr := p.Run(ctx, ds, ledger)
	if p.opts.DryRun {
		return res, runErr
	}

	if runErr != nil {
		p.saveRun(ctx, st, res)
		return res, runErr
	}

	if err := st.SaveDataset(ctx, res.Dataset); err != nil {
		return res, p.saveFailed(ctx, st, res, eris.Wrap(err, "pipeline: save dataset"))
	}
	if err := st.SaveProvenance(ctx, ledger.Entries()); err != nil {
		return res, p.saveFailed(ctx, st, res, eris.Wrap(err, "pipeline: save provenance"))
	}
	p.saveRun(ctx, st, res)
	zap.L().Info("pipeline: results saved",
		zap.String("run_id", res.Run.ID),
		zap.Int("clinics", len(res.Dataset.Clinics)),
		zap.Int("provenance_entries", ledger.Len()),
	)
	return res, nil
}

// saveFailed marks the run failed after a write error and records it.
func (p *Pipeline) saveFailed(ctx context.Context, st store.Store, res *Result, err error) error {
	p.fail(res, err) //nolint:errcheck
	p.saveRun(ctx, st, res)
	return err
}

// saveRun records the run. Failures are logged; the run outcome stands.
func (p *Pipeline) saveRun(ctx context.Context, st store.Store, res *Result) {
	if res == nil {
		return
	}
	if err := st.SaveRun(context.WithoutCancel(ctx), &res.Run); err != nil {
		zap.L().Error("pipeline: save run record", zap.String("run_id", res.Run.ID), zap.Error(err))
	}
}
