package match

import (
	"github.com/sells-group/clinic-pipeline/internal/geo"
	"github.com/sells-group/clinic-pipeline/internal/model"
)

// Points awarded per matching signal.
const (
	PhonePoints    = 40
	LocationPoints = 35
	NamePoints     = 15
	AddressPoints  = 10
)

// Reasons recorded on a Result.
const (
	ReasonPhone    = "phone"
	ReasonLocation = "location"
	ReasonName     = "name"
	ReasonAddress  = "address"
)

// Config controls pair scoring and grouping.
type Config struct {
	Threshold               int     // minimum points for a duplicate pair
	NameSimilarityThreshold float64 // similarity at/above which NamePoints are awarded
	CoordinateRadiusMeters  float64 // distance at/below which LocationPoints are awarded
	Workers                 int     // parallel scoring workers; <= 0 means 1
}

// DefaultConfig returns the standard scoring parameters.
func DefaultConfig() Config {
	return Config{
		Threshold:               50,
		NameSimilarityThreshold: 0.75,
		CoordinateRadiusMeters:  50,
		Workers:                 1,
	}
}

// Result is the score for one unordered pair. LeftID is always the smaller ID.
type Result struct {
	LeftID         int64    `json:"left_id"`
	RightID        int64    `json:"right_id"`
	Points         int      `json:"points"`
	Reasons        []string `json:"reasons,omitempty"`
	NameSimilarity float64  `json:"name_similarity"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// IsMatch reports whether the pair reached threshold.
func (r Result) IsMatch(threshold int) bool {
	return r.Points >= threshold
}

// features are the normalized comparison inputs for one clinic.
type features struct {
	id     int64
	phone  string
	name   string
	street string
	unit   string
	point  geo.Point
	hasGeo bool
}

func extract(c *model.Clinic) features {
	f := features{
		id:    c.ID,
		phone: NormalizePhone(c.Phone),
		name:  NormalizeName(c.Name),
	}
	f.street, f.unit = splitAddress(c.Address)
	if p, ok := geo.FromPtr(c.Latitude, c.Longitude); ok && p.Valid() {
		f.point = p
		f.hasGeo = true
	}
	return f
}

// Score evaluates every signal for a and b and sums the points. Each check
// runs independently, so Score(a, b) equals Score(b, a).
func Score(a, b *model.Clinic, cfg Config) Result {
	return scoreFeatures(extract(a), extract(b), cfg)
}

func scoreFeatures(a, b features, cfg Config) Result {
	if b.id < a.id {
		a, b = b, a
	}
	r := Result{LeftID: a.id, RightID: b.id}

	if a.phone != "" && a.phone == b.phone {
		r.Points += PhonePoints
		r.Reasons = append(r.Reasons, ReasonPhone)
	}

	if a.hasGeo && b.hasGeo {
		d := geo.Haversine(a.point, b.point)
		r.DistanceMeters = &d
		if d <= cfg.CoordinateRadiusMeters {
			r.Points += LocationPoints
			r.Reasons = append(r.Reasons, ReasonLocation)
		}
	}

	r.NameSimilarity = similarity(a.name, b.name)
	if r.NameSimilarity >= cfg.NameSimilarityThreshold {
		r.Points += NamePoints
		r.Reasons = append(r.Reasons, ReasonName)
	}

	if sameAddress(a, b) {
		r.Points += AddressPoints
		r.Reasons = append(r.Reasons, ReasonAddress)
	}

	return r
}

// sameAddress requires equal street lines. Units must agree when both sides
// carry one; a missing unit is treated as unknown.
func sameAddress(a, b features) bool {
	if a.street == "" || a.street != b.street {
		return false
	}
	return a.unit == "" || b.unit == "" || a.unit == b.unit
}
