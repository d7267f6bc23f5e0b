package quality

import (
	"sort"
	"time"

	"github.com/sells-group/clinic-pipeline/internal/impute"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// Extra fields reported for completeness alongside the imputation targets.
const (
	FieldPhone          = "phone"
	FieldWebsite        = "website"
	FieldCoordinates    = "coordinates"
	FieldCombinedRating = "combined_rating"
)

// FieldCompleteness counts how many clinics have a field populated and
// whether the values were observed or imputed.
type FieldCompleteness struct {
	Populated int     `json:"populated" yaml:"populated"`
	Percent   float64 `json:"percent" yaml:"percent"`
	Original  int     `json:"original" yaml:"original"`
	Imputed   int     `json:"imputed" yaml:"imputed"`
}

// Report is the completeness report of a dataset.
type Report struct {
	RunID               string                       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	GeneratedAt         time.Time                    `json:"generated_at" yaml:"generated_at"`
	Total               int                          `json:"total" yaml:"total"`
	Active              int                          `json:"active" yaml:"active"`
	Inactive            int                          `json:"inactive" yaml:"inactive"`
	Fields              map[string]FieldCompleteness `json:"fields" yaml:"fields"`
	Methods             map[string]map[string]int    `json:"methods" yaml:"methods"`
	DataSources         map[string]int               `json:"data_sources" yaml:"data_sources"`
	RatingCategories    map[string]int               `json:"rating_categories" yaml:"rating_categories"`
	AverageQualityScore float64                      `json:"average_quality_score" yaml:"average_quality_score"`
	Unresolved          []impute.Unresolved          `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// FieldNames returns the report's field keys in display order.
func (r *Report) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for _, f := range append(model.TargetFields(), FieldPhone, FieldWebsite, FieldCoordinates, FieldCombinedRating) {
		if _, ok := r.Fields[f]; ok {
			names = append(names, f)
		}
	}
	return names
}

// Build computes the completeness report over every clinic. ledger may be
// nil, in which case every present value counts as original.
func Build(ds *model.Dataset, ledger *provenance.Ledger, unresolved []impute.Unresolved) *Report {
	if ledger == nil {
		ledger = provenance.NewLedger()
	}
	rep := &Report{
		GeneratedAt:      time.Now().UTC(),
		Total:            len(ds.Clinics),
		Fields:           make(map[string]FieldCompleteness),
		Methods:          ledger.MethodCounts(),
		DataSources:      make(map[string]int),
		RatingCategories: make(map[string]int),
		Unresolved:       append([]impute.Unresolved(nil), unresolved...),
	}

	extra := map[string]func(*model.Clinic) bool{
		FieldPhone:          func(c *model.Clinic) bool { return !model.IsEmptyString(c.Phone) },
		FieldWebsite:        func(c *model.Clinic) bool { return !model.IsEmptyString(c.Website) },
		FieldCoordinates:    (*model.Clinic).HasCoordinates,
		FieldCombinedRating: func(c *model.Clinic) bool { return c.CombinedRating != nil },
	}

	var scoreSum, scored int
	for _, c := range ds.Clinics {
		if c.IsActive {
			rep.Active++
		} else {
			rep.Inactive++
		}
		rep.DataSources[string(c.DataSource)]++
		rep.RatingCategories[string(c.RatingCategory)]++
		if c.DataQualityScore != nil {
			scoreSum += *c.DataQualityScore
			scored++
		}

		for _, f := range model.TargetFields() {
			fc := rep.Fields[f]
			switch ledger.Status(c.ID, f, c.FieldPresent(f)) {
			case provenance.StatusEmpty:
			case provenance.StatusOriginal:
				fc.Populated++
				fc.Original++
			default:
				fc.Populated++
				fc.Imputed++
			}
			rep.Fields[f] = fc
		}
		for f, present := range extra {
			fc := rep.Fields[f]
			if present(c) {
				fc.Populated++
				fc.Original++
			}
			rep.Fields[f] = fc
		}
	}

	for f, fc := range rep.Fields {
		if rep.Total > 0 {
			fc.Percent = model.Round(100*float64(fc.Populated)/float64(rep.Total), 1)
		}
		rep.Fields[f] = fc
	}
	if scored > 0 {
		rep.AverageQualityScore = model.Round(float64(scoreSum)/float64(scored), 1)
	}
	sort.Slice(rep.Unresolved, func(i, j int) bool {
		if rep.Unresolved[i].ClinicID != rep.Unresolved[j].ClinicID {
			return rep.Unresolved[i].ClinicID < rep.Unresolved[j].ClinicID
		}
		return rep.Unresolved[i].Field < rep.Unresolved[j].Field
	})
	return rep
}

// FieldStatus tags each target field of c as original, imputed:<method>
// or empty.
func FieldStatus(c *model.Clinic, ledger *provenance.Ledger) map[string]string {
	if ledger == nil {
		ledger = provenance.NewLedger()
	}
	out := make(map[string]string, len(model.TargetFields()))
	for _, f := range model.TargetFields() {
		out[f] = ledger.Status(c.ID, f, c.FieldPresent(f))
	}
	return out
}
