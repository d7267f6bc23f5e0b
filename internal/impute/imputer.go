package impute

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// Config holds imputation parameters.
type Config struct {
	ZipK                 int
	ZipMaxDistanceMeters float64
	RatingK              int
	TypeK                int
	RatingOffset         float64
	IncludeInactive      bool
	DefaultClinicType    string
	Workers              int
}

// DefaultConfig returns the standard imputation parameters.
func DefaultConfig() Config {
	return Config{
		ZipK:                 3,
		ZipMaxDistanceMeters: 5000,
		RatingK:              5,
		TypeK:                3,
		RatingOffset:         0.1,
		IncludeInactive:      true,
		DefaultClinicType:    model.TypePrimaryCare,
		Workers:              runtime.NumCPU(),
	}
}

// Unresolved is a field left empty because its whole chain missed.
type Unresolved struct {
	ClinicID int64     `json:"clinic_id" yaml:"clinic_id"`
	Field    string    `json:"field" yaml:"field"`
	Reason   string    `json:"reason" yaml:"reason"`
	Attempts []Attempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// Result summarizes an imputation run.
type Result struct {
	Filled     map[string]int            `json:"filled"`
	Methods    map[string]map[string]int `json:"methods"`
	Unresolved []Unresolved              `json:"unresolved,omitempty"`
	Entries    []provenance.Entry        `json:"-"`
}

// Total returns the number of fields filled.
func (r *Result) Total() int {
	n := 0
	for _, v := range r.Filled {
		n += v
	}
	return n
}

// field describes one imputable field.
type field struct {
	name  string
	chain Chain
	apply func(c *model.Clinic, p Proposal)
}

func fields() []field {
	return []field{
		{
			name:  model.FieldZipCode,
			chain: ZipChain(),
			apply: func(c *model.Clinic, p Proposal) { c.ZipCode = p.Value },
		},
		{
			name:  model.FieldClinicType,
			chain: TypeChain(),
			apply: func(c *model.Clinic, p Proposal) { c.ClinicType = p.Value },
		},
		{
			name:  model.FieldGoogleRating,
			chain: RatingChain(model.SourceGoogle),
			apply: func(c *model.Clinic, p Proposal) { c.GoogleRating = model.Float(p.Rating) },
		},
		{
			name:  model.FieldYelpRating,
			chain: RatingChain(model.SourceYelp),
			apply: func(c *model.Clinic, p Proposal) { c.YelpRating = model.Float(p.Rating) },
		},
	}
}

func (p Proposal) formatted(fieldName string) string {
	switch fieldName {
	case model.FieldGoogleRating, model.FieldYelpRating:
		return strconv.FormatFloat(p.Rating, 'f', RatingPrecision, 64)
	default:
		return p.Value
	}
}

// Imputer runs the per-field chains over a dataset.
type Imputer struct {
	cfg Config
	now func() time.Time
}

// New creates an Imputer.
func New(cfg Config) *Imputer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Imputer{cfg: cfg, now: time.Now}
}

// Run fills empty fields in zip, type, Google rating, Yelp rating order.
// Each field pass reads a snapshot taken before the pass, computes all
// proposals in parallel, then applies them in clinic ID order. Populated
// fields are never changed. Every filled value is recorded in ledger
// under runID; a nil ledger is replaced by an empty one.
func (im *Imputer) Run(ctx context.Context, ds *model.Dataset, ledger *provenance.Ledger, runID string) (*Result, error) {
	if ledger == nil {
		ledger = provenance.NewLedger()
	}
	res := &Result{
		Filled:  make(map[string]int),
		Methods: make(map[string]map[string]int),
	}

	var population []*model.Clinic
	for _, c := range ds.Clinics {
		if c.IsActive || im.cfg.IncludeInactive {
			population = append(population, c)
		}
	}

	for _, f := range fields() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "impute: %s pass", f.name)
		}
		if err := im.runField(ctx, f, population, ledger, runID, res); err != nil {
			return nil, err
		}
	}

	zap.L().Info("impute: run complete",
		zap.String("run_id", runID),
		zap.Int("clinics", len(population)),
		zap.Int("filled", res.Total()),
		zap.Int("unresolved", len(res.Unresolved)),
	)
	return res, nil
}

type outcome struct {
	proposal Proposal
	attempts []Attempt
	ok       bool
}

func (im *Imputer) runField(ctx context.Context, f field, population []*model.Clinic, ledger *provenance.Ledger, runID string, res *Result) error {
	records := make([]Record, len(population))
	var targets []int
	for i, c := range population {
		records[i] = NewRecord(c, ledger)
		if !c.FieldPresent(f.name) {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	snap := NewSnapshot(im.cfg, records)

	outcomes := make([]outcome, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.cfg.Workers)
	for ti, idx := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, attempts, ok := f.chain.Resolve(records[idx], snap)
			outcomes[ti] = outcome{proposal: p, attempts: attempts, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrapf(err, "impute: %s proposals", f.name)
	}

	now := im.now().UTC()
	filled := 0
	for ti, idx := range targets {
		c := population[idx]
		o := outcomes[ti]
		if !o.ok {
			u := Unresolved{ClinicID: c.ID, Field: f.name, Attempts: o.attempts}
			if n := len(o.attempts); n > 0 {
				u.Reason = o.attempts[n-1].Reason
			}
			res.Unresolved = append(res.Unresolved, u)
			continue
		}

		f.apply(c, o.proposal)
		c.UpdatedAt = now
		filled++

		entry := provenance.Entry{
			ClinicID:       c.ID,
			Field:          f.name,
			Method:         o.proposal.Method,
			Value:          o.proposal.formatted(f.name),
			DistanceMeters: o.proposal.DistanceMeters,
			NeighborCount:  o.proposal.NeighborCount,
			Confidence:     o.proposal.Confidence,
			RunID:          runID,
			RecordedAt:     now,
		}
		ledger.Record(entry)
		res.Entries = append(res.Entries, entry)
		if res.Methods[f.name] == nil {
			res.Methods[f.name] = make(map[string]int)
		}
		res.Methods[f.name][o.proposal.Method]++
	}
	res.Filled[f.name] += filled

	zap.L().Debug("impute: field pass complete",
		zap.String("field", f.name),
		zap.Int("targets", len(targets)),
		zap.Int("filled", filled),
		zap.Int("unresolved", len(targets)-filled),
	)
	return nil
}
