// Package model defines the clinic entity, its child records, and the
// derived-field rules shared by every pipeline stage.
package model

import (
	"strings"
	"time"
)

// DataSource labels which directory sources contributed to a clinic.
type DataSource string

const (
	DataSourceBoth       DataSource = "Both"
	DataSourceGoogleOnly DataSource = "Google Only"
	DataSourceYelpOnly   DataSource = "Yelp Only"
	DataSourceUnknown    DataSource = "Unknown"
)

// RatingCategory buckets the combined rating. Categories are rank ordered.
type RatingCategory string

const (
	RatingExcellent RatingCategory = "Excellent (4.0+)"
	RatingGood      RatingCategory = "Good (3.5-4.0)"
	RatingMedium    RatingCategory = "Medium (2.5-3.5)"
	RatingLow       RatingCategory = "Low (0-2.5)"
	RatingUnknown   RatingCategory = "Unknown"
)

// Rank returns the ordinal position of the category, higher is better.
// Unknown ranks below every rated category.
func (c RatingCategory) Rank() int {
	switch c {
	case RatingExcellent:
		return 4
	case RatingGood:
		return 3
	case RatingMedium:
		return 2
	case RatingLow:
		return 1
	default:
		return 0
	}
}

// ReviewVolumeCategory buckets the combined review count.
type ReviewVolumeCategory string

const (
	ReviewVolumeVeryHigh ReviewVolumeCategory = "Very High (100+)"
	ReviewVolumeHigh     ReviewVolumeCategory = "High (51-100)"
	ReviewVolumeMedium   ReviewVolumeCategory = "Medium (11-50)"
	ReviewVolumeLow      ReviewVolumeCategory = "Low (0-10)"
)

// Known clinic types.
const (
	TypeUrgentCare      = "urgent_care"
	TypeDental          = "dental"
	TypePediatric       = "pediatric"
	TypeSpecialty       = "specialty"
	TypeMentalHealth    = "mental_health"
	TypeWomensHealth    = "womens_health"
	TypePhysicalTherapy = "physical_therapy"
	TypePrimaryCare     = "primary_care"
)

// Rating bounds shared by both sources.
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Source systems a clinic identifier can come from.
const (
	SourceGoogle = "google"
	SourceYelp   = "yelp"
)

// Clinic is one clinic record. Source identifiers are optional but globally
// unique when present. DataQualityScore is written once at ingest.
type Clinic struct {
	ID             int64  `json:"id" db:"id"`
	GooglePlaceID  string `json:"google_place_id,omitempty" db:"google_place_id"`
	YelpBusinessID string `json:"yelp_business_id,omitempty" db:"yelp_business_id"`

	// Descriptive
	Name    string `json:"name" db:"name"`
	Address string `json:"address,omitempty" db:"address"`
	City    string `json:"city,omitempty" db:"city"`
	State   string `json:"state,omitempty" db:"state"`
	ZipCode string `json:"zip_code,omitempty" db:"zip_code"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Website string `json:"website,omitempty" db:"website"`

	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	ClinicType string   `json:"clinic_type,omitempty" db:"clinic_type"`
	Categories []string `json:"categories,omitempty" db:"categories"`

	// Per-source metrics
	GoogleRating      *float64 `json:"google_rating,omitempty" db:"google_rating"`
	GoogleReviewCount *int     `json:"google_review_count,omitempty" db:"google_review_count"`
	YelpRating        *float64 `json:"yelp_rating,omitempty" db:"yelp_rating"`
	YelpReviewCount   *int     `json:"yelp_review_count,omitempty" db:"yelp_review_count"`

	// Derived
	CombinedRating       *float64             `json:"combined_rating,omitempty" db:"combined_rating"`
	CombinedReviewCount  *int                 `json:"combined_review_count,omitempty" db:"combined_review_count"`
	DataSource           DataSource           `json:"data_source,omitempty" db:"data_source"`
	RatingCategory       RatingCategory       `json:"rating_category,omitempty" db:"rating_category"`
	ReviewVolumeCategory ReviewVolumeCategory `json:"review_volume_category,omitempty" db:"review_volume_category"`

	IsActive         bool   `json:"is_active" db:"is_active"`
	MergedInto       *int64 `json:"merged_into,omitempty" db:"merged_into"`
	DataQualityScore *int   `json:"data_quality_score,omitempty" db:"data_quality_score"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (c *Clinic) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// SourceID returns the identifier the clinic holds for the given source system.
func (c *Clinic) SourceID(source string) string {
	switch source {
	case SourceGoogle:
		return c.GooglePlaceID
	case SourceYelp:
		return c.YelpBusinessID
	default:
		return ""
	}
}

// SetSourceID sets the identifier for the given source system.
func (c *Clinic) SetSourceID(source, id string) {
	switch source {
	case SourceGoogle:
		c.GooglePlaceID = id
	case SourceYelp:
		c.YelpBusinessID = id
	}
}

// HasBothSources reports whether the clinic carries an identifier from each source.
func (c *Clinic) HasBothSources() bool {
	return c.GooglePlaceID != "" && c.YelpBusinessID != ""
}

// Sources lists the source systems in a fixed order.
func Sources() []string {
	return []string{SourceGoogle, SourceYelp}
}

var emptySentinels = map[string]bool{
	"unknown": true,
	"none":    true,
	"null":    true,
	"n/a":     true,
	"nan":     true,
}

// IsEmptyString reports whether s is blank or a placeholder such as
// "unknown", "none" or "null" (case-insensitive).
func IsEmptyString(s string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	return t == "" || emptySentinels[t]
}

// Clone returns a deep copy of the clinic.
func (c *Clinic) Clone() *Clinic {
	cp := *c
	cp.Latitude = cloneFloat(c.Latitude)
	cp.Longitude = cloneFloat(c.Longitude)
	cp.GoogleRating = cloneFloat(c.GoogleRating)
	cp.YelpRating = cloneFloat(c.YelpRating)
	cp.CombinedRating = cloneFloat(c.CombinedRating)
	cp.GoogleReviewCount = cloneInt(c.GoogleReviewCount)
	cp.YelpReviewCount = cloneInt(c.YelpReviewCount)
	cp.CombinedReviewCount = cloneInt(c.CombinedReviewCount)
	cp.DataQualityScore = cloneInt(c.DataQualityScore)
	if c.MergedInto != nil {
		v := *c.MergedInto
		cp.MergedInto = &v
	}
	if c.Categories != nil {
		cp.Categories = append([]string(nil), c.Categories...)
	}
	return &cp
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
