// Package pipeline runs the reconciliation stages over a dataset in their
// required order: validate, standardize, score, match, merge, impute,
// recompute.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/clean"
	"github.com/sells-group/clinic-pipeline/internal/impute"
	"github.com/sells-group/clinic-pipeline/internal/match"
	"github.com/sells-group/clinic-pipeline/internal/merge"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
	"github.com/sells-group/clinic-pipeline/internal/quality"
)

// Phase names.
const (
	PhaseValidate     = "1_validate"
	PhaseStandardize  = "2_standardize"
	PhaseInitialScore = "3_initial_score"
	PhaseMatch        = "4_match"
	PhaseMerge        = "5_merge"
	PhaseImpute       = "6_impute"
	PhaseQuality      = "7_quality"
)

// Options configures a pipeline run.
type Options struct {
	Match            match.Config
	Impute           impute.Config
	Standardize      bool
	StrictValidation bool
	DryRun           bool
}

// Result is the outcome of a run.
type Result struct {
	Run         model.Run
	Dataset     *model.Dataset
	Issues      []clean.Issue
	Quarantined []int64
	Groups      []match.Group
	Merge       merge.Report
	Impute      *impute.Result
	Report      *quality.Report
}

// Pipeline reconciles a dataset.
type Pipeline struct {
	opts     Options
	matcher  *match.Matcher
	resolver *merge.Resolver
	imputer  *impute.Imputer
	newRunID func() string
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		opts:     opts,
		matcher:  match.NewMatcher(opts.Match),
		resolver: merge.NewResolver(),
		imputer:  impute.New(opts.Impute),
		newRunID: uuid.NewString,
	}
}

// Options returns the pipeline options.
func (p *Pipeline) Options() Options { return p.opts }

// Run executes every stage over ds. Each stage completes before the next
// reads the dataset. Clinics with validation issues are held out of the
// run unless StrictValidation is set, in which case the run fails. In
// dry-run mode ds and ledger are left untouched and the result carries
// the computed copy.
//
// The run fails if any stage introduces an invariant violation that was
// not present in the input.
func (p *Pipeline) Run(ctx context.Context, ds *model.Dataset, ledger *provenance.Ledger) (*Result, error) {
	if ledger == nil {
		ledger = provenance.NewLedger()
	}
	work := ds
	if p.opts.DryRun {
		work = ds.Clone()
		scratch := provenance.NewLedger()
		scratch.Load(ledger.Entries())
		ledger = scratch
	}
	work.SortByID()

	res := &Result{
		Run: model.Run{
			ID:        p.newRunID(),
			Status:    model.RunStatusRunning,
			DryRun:    p.opts.DryRun,
			StartedAt: time.Now().UTC(),
		},
		Dataset: work,
	}
	log := zap.L().With(zap.String("run_id", res.Run.ID), zap.Bool("dry_run", p.opts.DryRun))
	log.Info("pipeline: starting reconciliation", zap.Int("clinics", len(work.Clinics)))

	baseline := violationKeys(work.CheckInvariants())
	if len(baseline) > 0 {
		log.Warn("pipeline: input already violates invariants", zap.Int("violations", len(baseline)))
	}

	trackPhase := func(name string, fn func() (map[string]any, error)) error {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "pipeline: %s", name)
		}
		start := time.Now()
		meta, err := fn()
		pr := model.PhaseResult{
			Name:     name,
			Duration: time.Since(start).Milliseconds(),
			Metadata: meta,
		}
		if err != nil {
			pr.Status = model.PhaseStatusFailed
			pr.Error = err.Error()
			log.Error("pipeline: phase failed", zap.String("phase", name), zap.Int64("duration_ms", pr.Duration), zap.Error(err))
		} else {
			pr.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", pr.Duration))
		}
		res.Run.Phases = append(res.Run.Phases, pr)
		return err
	}

	runnable := work
	steps := []struct {
		name string
		fn   func() (map[string]any, error)
	}{
		{PhaseValidate, func() (map[string]any, error) {
			res.Issues = clean.Validate(work)
			if len(res.Issues) > 0 && p.opts.StrictValidation {
				return map[string]any{"issues": len(res.Issues)},
					eris.Errorf("pipeline: %d invalid values (first: %s)", len(res.Issues), res.Issues[0])
			}
			runnable, res.Quarantined = clean.Quarantine(work, res.Issues)
			for _, is := range res.Issues {
				log.Warn("pipeline: invalid input held back", zap.String("issue", is.String()))
			}
			return map[string]any{"issues": len(res.Issues), "quarantined": len(res.Quarantined)}, nil
		}},
		{PhaseStandardize, func() (map[string]any, error) {
			if !p.opts.Standardize {
				return map[string]any{"skipped": true}, nil
			}
			return map[string]any{"changed": clean.StandardizeAll(runnable)}, nil
		}},
		{PhaseInitialScore, func() (map[string]any, error) {
			return map[string]any{"assigned": quality.AssignInitialScores(runnable)}, nil
		}},
		{PhaseMatch, func() (map[string]any, error) {
			groups, err := p.matcher.FindGroups(ctx, runnable.Clinics)
			if err != nil {
				return nil, err
			}
			res.Groups = groups
			return map[string]any{"groups": len(groups)}, nil
		}},
		{PhaseMerge, func() (map[string]any, error) {
			// Groups only name runnable clinics, but children held back by
			// validation still follow their owner.
			res.Merge = p.resolver.Resolve(work, res.Groups, ledger)
			return map[string]any{
				"groups_merged":       res.Merge.GroupsMerged,
				"records_deactivated": res.Merge.RecordsDeactivated,
				"children_reassigned": res.Merge.ChildrenReassigned(),
				"conflicts":           len(res.Merge.Conflicts),
			}, nil
		}},
		{PhaseImpute, func() (map[string]any, error) {
			ir, err := p.imputer.Run(ctx, runnable, ledger, res.Run.ID)
			if err != nil {
				return nil, err
			}
			res.Impute = ir
			return map[string]any{"filled": ir.Total(), "unresolved": len(ir.Unresolved)}, nil
		}},
		{PhaseQuality, func() (map[string]any, error) {
			changed := quality.Recompute(runnable)
			res.Report = quality.Build(runnable, ledger, res.Impute.Unresolved)
			res.Report.RunID = res.Run.ID
			return map[string]any{"derived_changed": changed}, nil
		}},
	}

	for _, s := range steps {
		if err := trackPhase(s.name, s.fn); err != nil {
			return res, p.fail(res, err)
		}
	}

	if introduced := newViolations(baseline, work.CheckInvariants()); len(introduced) > 0 {
		for _, v := range introduced {
			log.Error("pipeline: invariant violated", zap.String("kind", string(v.Kind)), zap.String("detail", v.Detail))
		}
		return res, p.fail(res, eris.Errorf("pipeline: run introduced %d invariant violations", len(introduced)))
	}

	finished := time.Now().UTC()
	res.Run.Status = model.RunStatusComplete
	res.Run.FinishedAt = &finished
	log.Info("pipeline: reconciliation complete",
		zap.Int("groups_merged", res.Merge.GroupsMerged),
		zap.Int("fields_imputed", res.Impute.Total()),
		zap.Int("quarantined", len(res.Quarantined)),
	)
	return res, nil
}

func (p *Pipeline) fail(res *Result, err error) error {
	finished := time.Now().UTC()
	res.Run.Status = model.RunStatusFailed
	res.Run.FinishedAt = &finished
	res.Run.Error = err.Error()
	return err
}

func violationKeys(vs []model.Violation) map[string]bool {
	keys := make(map[string]bool, len(vs))
	for _, v := range vs {
		keys[v.Key()] = true
	}
	return keys
}

func newViolations(baseline map[string]bool, after []model.Violation) []model.Violation {
	var out []model.Violation
	for _, v := range after {
		if !baseline[v.Key()] {
			out = append(out, v)
		}
	}
	return out
}
