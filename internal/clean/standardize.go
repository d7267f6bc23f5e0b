package clean

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/clinic-pipeline/internal/match"
	"github.com/sells-group/clinic-pipeline/internal/model"
)

var zipRe = regexp.MustCompile(`^(\d{5})(?:[-\s]?\d{4})?$`)

// FormatPhone renders a US number as "(XXX) XXX-XXXX". Numbers that do not
// normalize to ten digits are returned trimmed but otherwise unchanged.
func FormatPhone(phone string) string {
	digits := match.NormalizePhone(phone)
	if len(digits) != 10 {
		return strings.TrimSpace(phone)
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

// FormatZip reduces ZIP+4 and similar forms to the five-digit ZIP.
// Unrecognized values are returned trimmed.
func FormatZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if m := zipRe.FindStringSubmatch(zip); m != nil {
		return m[1]
	}
	return zip
}

// FormatName title-cases names written entirely in capitals and collapses
// whitespace. Mixed-case names keep their casing.
func FormatName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if !isAllCaps(name) {
		return name
	}
	return cases.Title(language.English).String(strings.ToLower(name))
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if unicode.IsLower(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

// Standardize normalizes descriptive fields in place and returns the names
// of the fields it changed. Placeholder values are left for imputation.
func Standardize(c *model.Clinic) []string {
	var changed []string
	set := func(field string, dst *string, v string) {
		if *dst != v {
			*dst = v
			changed = append(changed, field)
		}
	}

	set("name", &c.Name, FormatName(c.Name))
	if !model.IsEmptyString(c.Phone) {
		set("phone", &c.Phone, FormatPhone(c.Phone))
	}
	if !model.IsEmptyString(c.ZipCode) {
		set("zip_code", &c.ZipCode, FormatZip(c.ZipCode))
	}
	set("address", &c.Address, strings.Join(strings.Fields(c.Address), " "))
	set("city", &c.City, strings.TrimSpace(c.City))
	set("state", &c.State, strings.ToUpper(strings.TrimSpace(c.State)))
	set("website", &c.Website, strings.TrimSpace(c.Website))
	return changed
}

// StandardizeAll standardizes every clinic and returns how many changed.
func StandardizeAll(ds *model.Dataset) int {
	n := 0
	for _, c := range ds.Clinics {
		if len(Standardize(c)) > 0 {
			n++
		}
	}
	return n
}
