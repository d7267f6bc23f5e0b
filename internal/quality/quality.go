// Package quality recomputes derived clinic fields, assigns initial
// completeness scores, and builds the completeness report.
package quality

import (
	"github.com/sells-group/clinic-pipeline/internal/model"
)

// score weights for InitialScore; they sum to 100.
var scoreWeights = []struct {
	points  int
	present func(c *model.Clinic) bool
}{
	{10, func(c *model.Clinic) bool { return !model.IsEmptyString(c.Name) }},
	{10, func(c *model.Clinic) bool { return !model.IsEmptyString(c.Address) }},
	{10, func(c *model.Clinic) bool { return !model.IsEmptyString(c.Phone) }},
	{10, (*model.Clinic).HasCoordinates},
	{15, func(c *model.Clinic) bool { return c.GooglePlaceID != "" }},
	{15, func(c *model.Clinic) bool { return c.YelpBusinessID != "" }},
	{10, func(c *model.Clinic) bool { return c.GoogleRating != nil }},
	{10, func(c *model.Clinic) bool { return c.YelpRating != nil }},
	{5, func(c *model.Clinic) bool { return !model.IsEmptyString(c.Website) }},
	{5, func(c *model.Clinic) bool { return !model.IsEmptyString(c.ClinicType) }},
}

// InitialScore computes the 0-100 completeness score of a record as
// observed at ingest.
func InitialScore(c *model.Clinic) int {
	total := 0
	for _, w := range scoreWeights {
		if w.present(c) {
			total += w.points
		}
	}
	return total
}

// AssignInitialScores sets DataQualityScore on clinics that have none and
// returns how many were set. Existing scores are never replaced.
func AssignInitialScores(ds *model.Dataset) int {
	n := 0
	for _, c := range ds.Clinics {
		if c.DataQualityScore != nil {
			continue
		}
		s := InitialScore(c)
		c.DataQualityScore = &s
		n++
	}
	return n
}

// Recompute refreshes derived fields on every clinic and sentiment on every
// review. It returns the number of clinics whose derived fields changed.
func Recompute(ds *model.Dataset) int {
	changed := 0
	for _, c := range ds.Clinics {
		if model.ApplyDerived(c) {
			changed++
		}
	}
	for _, r := range ds.Reviews {
		r.Enrich()
	}
	return changed
}
