package model

import "strconv"

// Field names used by imputation, provenance and the completeness report.
const (
	FieldZipCode      = "zip_code"
	FieldClinicType   = "clinic_type"
	FieldGoogleRating = "google_rating"
	FieldYelpRating   = "yelp_rating"
)

// TargetFields are the fields tracked by provenance, in pass order.
func TargetFields() []string {
	return []string{FieldZipCode, FieldClinicType, FieldGoogleRating, FieldYelpRating}
}

// FieldPresent reports whether the named target field holds a usable value.
func (c *Clinic) FieldPresent(field string) bool {
	switch field {
	case FieldZipCode:
		return !IsEmptyString(c.ZipCode)
	case FieldClinicType:
		return !IsEmptyString(c.ClinicType)
	case FieldGoogleRating:
		return c.GoogleRating != nil
	case FieldYelpRating:
		return c.YelpRating != nil
	default:
		return false
	}
}

// FieldValue renders the named target field as text, "" when absent.
func (c *Clinic) FieldValue(field string) string {
	var r *float64
	switch field {
	case FieldZipCode:
		return c.ZipCode
	case FieldClinicType:
		return c.ClinicType
	case FieldGoogleRating:
		r = c.GoogleRating
	case FieldYelpRating:
		r = c.YelpRating
	}
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}
