package impute

import (
	"strings"

	"github.com/sells-group/clinic-pipeline/internal/geo"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// Record is a read-only view of a clinic taken at the start of a field pass.
type Record struct {
	ID         int64
	Active     bool
	Name       string
	Categories []string
	Point      geo.Point
	HasGeo     bool
	Zip        string // "" when empty or a placeholder
	Type       string // "" when empty or a placeholder
	City       string // lowercased
	Google     *float64
	Yelp       *float64

	// Observed ratings are present and were not produced by imputation.
	GoogleObserved bool
	YelpObserved   bool
}

// Rating returns the record's rating for source.
func (r Record) Rating(source string) *float64 {
	if source == model.SourceGoogle {
		return r.Google
	}
	return r.Yelp
}

// Observed reports whether the rating for source was observed, not imputed.
func (r Record) Observed(source string) bool {
	if source == model.SourceGoogle {
		return r.GoogleObserved
	}
	return r.YelpObserved
}

// NewRecord captures a clinic. Imputed ratings are detected via ledger,
// which may be nil.
func NewRecord(c *model.Clinic, ledger *provenance.Ledger) Record {
	r := Record{
		ID:         c.ID,
		Active:     c.IsActive,
		Name:       c.Name,
		Categories: append([]string(nil), c.Categories...),
		City:       strings.ToLower(strings.TrimSpace(c.City)),
	}
	if p, ok := geo.FromPtr(c.Latitude, c.Longitude); ok && p.Valid() {
		r.Point, r.HasGeo = p, true
	}
	if !model.IsEmptyString(c.ZipCode) {
		r.Zip = strings.TrimSpace(c.ZipCode)
	}
	if !model.IsEmptyString(c.ClinicType) {
		r.Type = strings.TrimSpace(c.ClinicType)
	}
	if c.GoogleRating != nil {
		v := *c.GoogleRating
		r.Google = &v
		r.GoogleObserved = ledger == nil || !ledger.IsImputed(c.ID, model.FieldGoogleRating)
	}
	if c.YelpRating != nil {
		v := *c.YelpRating
		r.Yelp = &v
		r.YelpObserved = ledger == nil || !ledger.IsImputed(c.ID, model.FieldYelpRating)
	}
	return r
}

// Snapshot is the immutable population a field pass reads from.
type Snapshot struct {
	cfg     Config
	records []Record
}

// NewSnapshot builds a snapshot over records.
func NewSnapshot(cfg Config, records []Record) *Snapshot {
	return &Snapshot{cfg: cfg, records: records}
}

// Config returns the imputation parameters.
func (s *Snapshot) Config() Config { return s.cfg }

// Records returns the population.
func (s *Snapshot) Records() []Record { return s.records }

// candidates returns positions of records other than self that satisfy keep.
func (s *Snapshot) candidates(self int64, keep func(Record) bool) ([]geo.Candidate, map[int64]Record) {
	var out []geo.Candidate
	byID := make(map[int64]Record)
	for _, r := range s.records {
		if r.ID == self || !r.HasGeo || !keep(r) {
			continue
		}
		out = append(out, geo.Candidate{ID: r.ID, Point: r.Point})
		byID[r.ID] = r
	}
	return out, byID
}
