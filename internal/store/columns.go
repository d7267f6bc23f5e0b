package store

import (
	"time"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// scannable is satisfied by *sql.Row, *sql.Rows, and pgx.Row.
type scannable interface {
	Scan(dest ...any) error
}

var clinicColumns = []string{
	"id", "google_place_id", "yelp_business_id",
	"name", "address", "city", "state", "zip_code", "phone", "website",
	"latitude", "longitude", "clinic_type", "categories",
	"google_rating", "google_review_count", "yelp_rating", "yelp_review_count",
	"combined_rating", "combined_review_count", "data_source", "rating_category", "review_volume_category",
	"is_active", "merged_into", "data_quality_score",
	"created_at", "updated_at",
}

var reviewColumns = []string{
	"id", "clinic_id", "source", "rating", "text", "author",
	"published_at", "sentiment_label", "sentiment_score",
}

var visibilityColumns = []string{"id", "clinic_id", "date", "query", "rank", "score"}

var provenanceColumns = []string{
	"clinic_id", "field", "method", "value", "distance_meters",
	"neighbor_count", "confidence", "run_id", "recorded_at",
}

// nullable maps the empty string to NULL so source-identifier uniqueness
// ignores clinics without one.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// clinicValues returns c in clinicColumns order. categories is the
// driver-specific encoding of c.Categories.
func clinicValues(c *model.Clinic, categories any) []any {
	return []any{
		c.ID, nullable(c.GooglePlaceID), nullable(c.YelpBusinessID),
		c.Name, c.Address, c.City, c.State, c.ZipCode, c.Phone, c.Website,
		c.Latitude, c.Longitude, c.ClinicType, categories,
		c.GoogleRating, c.GoogleReviewCount, c.YelpRating, c.YelpReviewCount,
		c.CombinedRating, c.CombinedReviewCount,
		string(c.DataSource), string(c.RatingCategory), string(c.ReviewVolumeCategory),
		c.IsActive, c.MergedInto, c.DataQualityScore,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	}
}

// scanClinic reads one row selected with clinicColumns. categories is a
// driver-specific destination the caller decodes afterwards.
func scanClinic(row scannable, categories any) (*model.Clinic, error) {
	var (
		c                                 model.Clinic
		google, yelp                      *string
		source, ratingCat, volumeCategory string
	)
	err := row.Scan(
		&c.ID, &google, &yelp,
		&c.Name, &c.Address, &c.City, &c.State, &c.ZipCode, &c.Phone, &c.Website,
		&c.Latitude, &c.Longitude, &c.ClinicType, categories,
		&c.GoogleRating, &c.GoogleReviewCount, &c.YelpRating, &c.YelpReviewCount,
		&c.CombinedRating, &c.CombinedReviewCount, &source, &ratingCat, &volumeCategory,
		&c.IsActive, &c.MergedInto, &c.DataQualityScore,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if google != nil {
		c.GooglePlaceID = *google
	}
	if yelp != nil {
		c.YelpBusinessID = *yelp
	}
	c.DataSource = model.DataSource(source)
	c.RatingCategory = model.RatingCategory(ratingCat)
	c.ReviewVolumeCategory = model.ReviewVolumeCategory(volumeCategory)
	return &c, nil
}

func reviewValues(r *model.Review) []any {
	return []any{
		r.ID, r.ClinicID, r.Source, r.Rating, r.Text, r.Author,
		r.PublishedAt.UTC(), r.SentimentLabel, r.SentimentScore,
	}
}

func scanReview(row scannable) (*model.Review, error) {
	var r model.Review
	err := row.Scan(&r.ID, &r.ClinicID, &r.Source, &r.Rating, &r.Text, &r.Author,
		&r.PublishedAt, &r.SentimentLabel, &r.SentimentScore)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func visibilityValues(v *model.VisibilityScore) []any {
	return []any{v.ID, v.ClinicID, v.Date.UTC(), v.Query, v.Rank, v.Score}
}

func scanVisibility(row scannable) (*model.VisibilityScore, error) {
	var v model.VisibilityScore
	if err := row.Scan(&v.ID, &v.ClinicID, &v.Date, &v.Query, &v.Rank, &v.Score); err != nil {
		return nil, err
	}
	return &v, nil
}

func provenanceValues(e provenance.Entry) []any {
	return []any{
		e.ClinicID, e.Field, e.Method, e.Value, e.DistanceMeters,
		e.NeighborCount, e.Confidence, e.RunID, e.RecordedAt.UTC(),
	}
}

func scanProvenance(row scannable) (provenance.Entry, error) {
	var e provenance.Entry
	err := row.Scan(&e.ClinicID, &e.Field, &e.Method, &e.Value, &e.DistanceMeters,
		&e.NeighborCount, &e.Confidence, &e.RunID, &e.RecordedAt)
	return e, err
}

// finishedAt normalizes an optional run end time for storage.
func finishedAt(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
