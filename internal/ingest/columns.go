// Package ingest reads collector exports (CSV or XLSX) into clinic records
// and folds them into a dataset.
package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

// Canonical column names. Exports written by the export package use these.
const (
	ColID                = "id"
	ColGooglePlaceID     = "google_place_id"
	ColYelpBusinessID    = "yelp_business_id"
	ColName              = "name"
	ColAddress           = "address"
	ColCity              = "city"
	ColState             = "state"
	ColZipCode           = "zip_code"
	ColPhone             = "phone"
	ColWebsite           = "website"
	ColLatitude          = "latitude"
	ColLongitude         = "longitude"
	ColClinicType        = "clinic_type"
	ColCategories        = "categories"
	ColGoogleRating      = "google_rating"
	ColGoogleReviewCount = "google_review_count"
	ColYelpRating        = "yelp_rating"
	ColYelpReviewCount   = "yelp_review_count"
	ColIsActive          = "is_active"
	ColDataQualityScore  = "data_quality_score"
	ColCreatedAt         = "created_at"
	ColUpdatedAt         = "updated_at"
)

// aliases maps normalized header spellings seen in collector exports to
// canonical column names.
var aliases = map[string]string{
	"place_id":       ColGooglePlaceID,
	"google_id":      ColGooglePlaceID,
	"yelp_id":        ColYelpBusinessID,
	"business_id":    ColYelpBusinessID,
	"clinic_name":    ColName,
	"street":         ColAddress,
	"street_address": ColAddress,
	"zip":            ColZipCode,
	"zipcode":        ColZipCode,
	"postal_code":    ColZipCode,
	"phone_number":   ColPhone,
	"url":            ColWebsite,
	"lat":            ColLatitude,
	"lng":            ColLongitude,
	"lon":            ColLongitude,
	"type":           ColClinicType,
	"category":       ColCategories,
	"google_reviews": ColGoogleReviewCount,
	"yelp_reviews":   ColYelpReviewCount,
	"active":         ColIsActive,
	"quality_score":  ColDataQualityScore,
	"last_updated":   ColUpdatedAt,
}

var headerSepRe = regexp.MustCompile(`[^a-z0-9]+`)

// canonicalColumn maps a raw header cell to a canonical column name.
// "Google Rating", "google-rating" and "GOOGLE_RATING" all map to
// google_rating.
func canonicalColumn(h string) string {
	k := strings.Trim(headerSepRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_"), "_")
	if c, ok := aliases[k]; ok {
		return c
	}
	return k
}

// header indexes canonical column names to cell positions.
type header map[string]int

func parseHeader(cells []string) (header, error) {
	h := make(header, len(cells))
	for i, cell := range cells {
		col := canonicalColumn(cell)
		if col == "" {
			continue
		}
		if _, dup := h[col]; dup {
			return nil, eris.Errorf("ingest: duplicate column %q", col)
		}
		h[col] = i
	}
	if _, ok := h[ColName]; !ok {
		return nil, eris.New("ingest: header has no name column")
	}
	return h, nil
}

func (h header) get(cells []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(cells) {
		return ""
	}
	v := strings.TrimSpace(cells[i])
	if model.IsEmptyString(v) {
		return ""
	}
	return v
}

// RowError describes an input row that could not be read.
type RowError struct {
	Line   int    `json:"line"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s %q: %s", e.Line, e.Column, e.Value, e.Reason)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var categorySepRe = regexp.MustCompile(`\s*[;|,]\s*`)

// parseClinic builds a clinic from one data row. Values are taken as
// given; range checks happen in the clean stage.
func parseClinic(h header, cells []string, line int) (*model.Clinic, *RowError) {
	c := &model.Clinic{
		GooglePlaceID:  h.get(cells, ColGooglePlaceID),
		YelpBusinessID: h.get(cells, ColYelpBusinessID),
		Name:           h.get(cells, ColName),
		Address:        h.get(cells, ColAddress),
		City:           h.get(cells, ColCity),
		State:          h.get(cells, ColState),
		ZipCode:        h.get(cells, ColZipCode),
		Phone:          h.get(cells, ColPhone),
		Website:        h.get(cells, ColWebsite),
		ClinicType:     h.get(cells, ColClinicType),
		IsActive:       true,
	}
	if c.Name == "" {
		return nil, &RowError{Line: line, Column: ColName, Reason: "name is required"}
	}

	fail := func(col, v string, err error) *RowError {
		return &RowError{Line: line, Column: col, Value: v, Reason: err.Error()}
	}

	if v := h.get(cells, ColID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, &RowError{Line: line, Column: ColID, Value: v, Reason: "not a positive integer"}
		}
		c.ID = id
	}

	floats := []struct {
		col string
		dst **float64
	}{
		{ColLatitude, &c.Latitude},
		{ColLongitude, &c.Longitude},
		{ColGoogleRating, &c.GoogleRating},
		{ColYelpRating, &c.YelpRating},
	}
	for _, f := range floats {
		v := h.get(cells, f.col)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fail(f.col, v, eris.New("not a number"))
		}
		*f.dst = &n
	}

	ints := []struct {
		col string
		dst **int
	}{
		{ColGoogleReviewCount, &c.GoogleReviewCount},
		{ColYelpReviewCount, &c.YelpReviewCount},
		{ColDataQualityScore, &c.DataQualityScore},
	}
	for _, f := range ints {
		v := h.get(cells, f.col)
		if v == "" {
			continue
		}
		// Spreadsheets often store counts as floats ("120.0").
		n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil || n != float64(int(n)) {
			return nil, fail(f.col, v, eris.New("not an integer"))
		}
		i := int(n)
		*f.dst = &i
	}

	if v := h.get(cells, ColIsActive); v != "" {
		active, err := parseBool(v)
		if err != nil {
			return nil, fail(ColIsActive, v, err)
		}
		c.IsActive = active
	}

	if v := h.get(cells, ColCategories); v != "" {
		for _, cat := range categorySepRe.Split(v, -1) {
			if cat != "" {
				c.Categories = append(c.Categories, cat)
			}
		}
	}

	for _, f := range []struct {
		col string
		dst *time.Time
	}{
		{ColCreatedAt, &c.CreatedAt},
		{ColUpdatedAt, &c.UpdatedAt},
	} {
		v := h.get(cells, f.col)
		if v == "" {
			continue
		}
		t, err := parseTime(v)
		if err != nil {
			return nil, fail(f.col, v, err)
		}
		*f.dst = t
	}

	return c, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return false, eris.New("not a boolean")
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.New("unrecognized time format")
}
