package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalColumn(t *testing.T) {
	tests := map[string]string{
		"Google Rating":  ColGoogleRating,
		"google-rating":  ColGoogleRating,
		" GOOGLE_RATING": ColGoogleRating,
		"ZIP":            ColZipCode,
		"Postal Code":    ColZipCode,
		"Lng":            ColLongitude,
		"Place ID":       ColGooglePlaceID,
		"Last Updated":   ColUpdatedAt,
		"Data Source":    "data_source",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, canonicalColumn(in), in)
	}
}

func TestParseClinic(t *testing.T) {
	h, err := parseHeader([]string{"id", "name", "google_review_count", "is_active", "data_quality_score", "created_at"})
	require.NoError(t, err)

	c, rowErr := parseClinic(h, []string{"12", "Acme Urgent Care", "1,204", "no", "80.0", "2025-01-02T03:04:05Z"}, 2)
	require.Nil(t, rowErr)
	assert.Equal(t, int64(12), c.ID)
	assert.Equal(t, 1204, *c.GoogleReviewCount)
	assert.False(t, c.IsActive)
	assert.Equal(t, 80, *c.DataQualityScore)
	assert.Equal(t, 2025, c.CreatedAt.Year())

	tests := []struct {
		name   string
		cells  []string
		column string
	}{
		{"negative id", []string{"-1", "A"}, ColID},
		{"fractional count", []string{"1", "A", "2.5"}, ColGoogleReviewCount},
		{"bad bool", []string{"1", "A", "", "maybe"}, ColIsActive},
		{"bad time", []string{"1", "A", "", "", "", "yesterday"}, ColCreatedAt},
		{"missing name", []string{"1", "unknown"}, ColName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rowErr := parseClinic(h, tt.cells, 5)
			require.NotNil(t, rowErr)
			assert.Equal(t, tt.column, rowErr.Column)
			assert.Equal(t, 5, rowErr.Line)
			assert.Contains(t, rowErr.Error(), "line 5")
		})
	}
}
