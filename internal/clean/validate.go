// Package clean validates ingested clinics and standardizes their
// descriptive fields before reconciliation.
package clean

import (
	"fmt"
	"math"

	"github.com/sells-group/clinic-pipeline/internal/geo"
	"github.com/sells-group/clinic-pipeline/internal/model"
)

// IssueKind classifies an input-invalid record.
type IssueKind string

const (
	IssueInvalidCoordinates  IssueKind = "invalid_coordinates"
	IssuePartialCoordinates  IssueKind = "partial_coordinates"
	IssueRatingOutOfRange    IssueKind = "rating_out_of_range"
	IssueNegativeReviewCount IssueKind = "negative_review_count"
	IssueQualityOutOfRange   IssueKind = "quality_score_out_of_range"
	IssueReviewRating        IssueKind = "review_rating_out_of_range"
)

// Issue is one invalid value. ReviewID is set for review-level issues.
type Issue struct {
	ClinicID int64     `json:"clinic_id" yaml:"clinic_id"`
	ReviewID int64     `json:"review_id,omitempty" yaml:"review_id,omitempty"`
	Kind     IssueKind `json:"kind" yaml:"kind"`
	Field    string    `json:"field" yaml:"field"`
	Detail   string    `json:"detail" yaml:"detail"`
}

func (i Issue) String() string {
	if i.ReviewID != 0 {
		return fmt.Sprintf("review %d (clinic %d): %s: %s", i.ReviewID, i.ClinicID, i.Kind, i.Detail)
	}
	return fmt.Sprintf("clinic %d: %s: %s", i.ClinicID, i.Kind, i.Detail)
}

// Validate lists every out-of-domain value in the dataset. Values are
// reported, never clamped.
func Validate(ds *model.Dataset) []Issue {
	var issues []Issue
	for _, c := range ds.Clinics {
		issues = append(issues, ValidateClinic(c)...)
	}
	for _, r := range ds.Reviews {
		if !validRating(r.Rating) {
			issues = append(issues, Issue{
				ClinicID: r.ClinicID,
				ReviewID: r.ID,
				Kind:     IssueReviewRating,
				Field:    "rating",
				Detail:   fmt.Sprintf("rating %.2f outside [%.0f, %.0f]", r.Rating, model.MinRating, model.MaxRating),
			})
		}
	}
	sortIssues(issues)
	return issues
}

// ValidateClinic checks one clinic.
func ValidateClinic(c *model.Clinic) []Issue {
	var issues []Issue
	add := func(kind IssueKind, field, detail string) {
		issues = append(issues, Issue{ClinicID: c.ID, Kind: kind, Field: field, Detail: detail})
	}

	switch {
	case c.Latitude == nil && c.Longitude == nil:
	case c.Latitude == nil || c.Longitude == nil:
		add(IssuePartialCoordinates, "coordinates", "only one of latitude/longitude is set")
	default:
		if err := (geo.Point{Lat: *c.Latitude, Lon: *c.Longitude}).Validate(); err != nil {
			add(IssueInvalidCoordinates, "coordinates", err.Error())
		}
	}

	for field, r := range map[string]*float64{
		model.FieldGoogleRating: c.GoogleRating,
		model.FieldYelpRating:   c.YelpRating,
	} {
		if r != nil && !validRating(*r) {
			add(IssueRatingOutOfRange, field, fmt.Sprintf("rating %.2f outside [%.0f, %.0f]", *r, model.MinRating, model.MaxRating))
		}
	}

	for field, n := range map[string]*int{
		"google_review_count": c.GoogleReviewCount,
		"yelp_review_count":   c.YelpReviewCount,
	} {
		if n != nil && *n < 0 {
			add(IssueNegativeReviewCount, field, fmt.Sprintf("review count %d is negative", *n))
		}
	}

	if q := c.DataQualityScore; q != nil && (*q < 0 || *q > 100) {
		add(IssueQualityOutOfRange, "data_quality_score", fmt.Sprintf("score %d outside [0, 100]", *q))
	}

	sortIssues(issues)
	return issues
}

func validRating(r float64) bool {
	return !math.IsNaN(r) && r >= model.MinRating && r <= model.MaxRating
}
