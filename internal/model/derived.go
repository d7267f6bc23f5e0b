package model

import "math"

// CombinedRatingPrecision is the number of decimals kept on the combined rating.
const CombinedRatingPrecision = 2

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// CombinedRating averages the ratings present on the clinic. A single
// present rating is returned as is; nil when neither source has one.
func CombinedRating(c *Clinic) *float64 {
	var sum float64
	var n int
	for _, r := range []*float64{c.GoogleRating, c.YelpRating} {
		if r != nil {
			sum += *r
			n++
		}
	}
	if n == 0 {
		return nil
	}
	v := Round(sum/float64(n), CombinedRatingPrecision)
	return &v
}

// CombinedReviewCount sums the review counts present on the clinic.
func CombinedReviewCount(c *Clinic) *int {
	if c.GoogleReviewCount == nil && c.YelpReviewCount == nil {
		return nil
	}
	total := 0
	if c.GoogleReviewCount != nil {
		total += *c.GoogleReviewCount
	}
	if c.YelpReviewCount != nil {
		total += *c.YelpReviewCount
	}
	return &total
}

// DataSourceFor labels the clinic by which source identifiers it holds.
func DataSourceFor(c *Clinic) DataSource {
	switch {
	case c.GooglePlaceID != "" && c.YelpBusinessID != "":
		return DataSourceBoth
	case c.GooglePlaceID != "":
		return DataSourceGoogleOnly
	case c.YelpBusinessID != "":
		return DataSourceYelpOnly
	default:
		return DataSourceUnknown
	}
}

// RatingCategoryFor buckets a combined rating.
func RatingCategoryFor(rating *float64) RatingCategory {
	if rating == nil {
		return RatingUnknown
	}
	switch r := *rating; {
	case r >= 4.0:
		return RatingExcellent
	case r >= 3.5:
		return RatingGood
	case r >= 2.5:
		return RatingMedium
	default:
		return RatingLow
	}
}

// ReviewVolumeFor buckets a combined review count. A missing count is Low.
func ReviewVolumeFor(count *int) ReviewVolumeCategory {
	n := 0
	if count != nil {
		n = *count
	}
	switch {
	case n >= 100:
		return ReviewVolumeVeryHigh
	case n >= 50:
		return ReviewVolumeHigh
	case n >= 10:
		return ReviewVolumeMedium
	default:
		return ReviewVolumeLow
	}
}

// ApplyDerived recomputes every derived field from the raw values and
// reports whether anything changed.
func ApplyDerived(c *Clinic) bool {
	combined := CombinedRating(c)
	reviews := CombinedReviewCount(c)
	source := DataSourceFor(c)
	category := RatingCategoryFor(combined)
	volume := ReviewVolumeFor(reviews)

	changed := !equalFloat(c.CombinedRating, combined) ||
		!equalInt(c.CombinedReviewCount, reviews) ||
		c.DataSource != source ||
		c.RatingCategory != category ||
		c.ReviewVolumeCategory != volume

	c.CombinedRating = combined
	c.CombinedReviewCount = reviews
	c.DataSource = source
	c.RatingCategory = category
	c.ReviewVolumeCategory = volume
	return changed
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
