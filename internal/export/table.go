// Package export writes the reconciled dataset and its completeness report
// in analyst-friendly formats.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/clinic-pipeline/internal/ingest"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
	"github.com/sells-group/clinic-pipeline/internal/quality"
)

// Options selects which clinics are written.
type Options struct {
	ActiveOnly bool
}

// clinicColumns are the ingest columns followed by derived fields and one
// provenance status column per imputed field. A file written here reads
// back through ingest unchanged.
var clinicColumns = []string{
	ingest.ColID,
	ingest.ColGooglePlaceID,
	ingest.ColYelpBusinessID,
	ingest.ColName,
	ingest.ColAddress,
	ingest.ColCity,
	ingest.ColState,
	ingest.ColZipCode,
	ingest.ColPhone,
	ingest.ColWebsite,
	ingest.ColLatitude,
	ingest.ColLongitude,
	ingest.ColClinicType,
	ingest.ColCategories,
	ingest.ColGoogleRating,
	ingest.ColGoogleReviewCount,
	ingest.ColYelpRating,
	ingest.ColYelpReviewCount,
	"combined_rating",
	"combined_review_count",
	"data_source",
	"rating_category",
	"review_volume_category",
	ingest.ColIsActive,
	"merged_into",
	ingest.ColDataQualityScore,
	ingest.ColCreatedAt,
	ingest.ColUpdatedAt,
	"zip_code_status",
	"clinic_type_status",
	"google_rating_status",
	"yelp_rating_status",
}

// Columns returns the header written by the clinic exporters.
func Columns() []string {
	return append([]string(nil), clinicColumns...)
}

// rows renders the selected clinics as string cells in Columns order.
func rows(ds *model.Dataset, ledger *provenance.Ledger, opts Options) [][]string {
	out := make([][]string, 0, len(ds.Clinics))
	for _, c := range ds.Clinics {
		if opts.ActiveOnly && !c.IsActive {
			continue
		}
		status := quality.FieldStatus(c, ledger)
		out = append(out, []string{
			strconv.FormatInt(c.ID, 10),
			c.GooglePlaceID,
			c.YelpBusinessID,
			c.Name,
			c.Address,
			c.City,
			c.State,
			c.ZipCode,
			c.Phone,
			c.Website,
			formatFloat(c.Latitude, -1),
			formatFloat(c.Longitude, -1),
			c.ClinicType,
			strings.Join(c.Categories, "; "),
			formatFloat(c.GoogleRating, 1),
			formatInt(c.GoogleReviewCount),
			formatFloat(c.YelpRating, 1),
			formatInt(c.YelpReviewCount),
			formatFloat(c.CombinedRating, model.CombinedRatingPrecision),
			formatInt(c.CombinedReviewCount),
			string(c.DataSource),
			string(c.RatingCategory),
			string(c.ReviewVolumeCategory),
			strconv.FormatBool(c.IsActive),
			formatID(c.MergedInto),
			formatInt(c.DataQualityScore),
			formatTime(c.CreatedAt),
			formatTime(c.UpdatedAt),
			status[model.FieldZipCode],
			status[model.FieldClinicType],
			status[model.FieldGoogleRating],
			status[model.FieldYelpRating],
		})
	}
	return out
}

// formatFloat renders v with prec decimals; prec < 0 keeps full precision.
func formatFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatID(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
