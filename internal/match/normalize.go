// Package match scores pairs of clinic records for identity and groups
// duplicates into connected components.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// noiseWords carry no identity signal in clinic names.
var noiseWords = map[string]bool{
	"clinic": true, "clinics": true, "medical": true, "center": true, "centre": true,
	"healthcare": true, "health": true, "care": true, "urgent": true, "hospital": true, "group": true,
	"practice": true, "associates": true, "physicians": true,
	"llc": true, "inc": true, "pc": true, "pllc": true, "ltd": true, "corp": true,
	"md": true, "dds": true, "the": true, "of": true, "at": true, "and": true,
}

// streetAbbreviations expands address abbreviations to their full form.
var streetAbbreviations = map[string]string{
	"st": "street", "str": "street",
	"ave": "avenue", "av": "avenue",
	"blvd": "boulevard",
	"dr":   "drive",
	"rd":   "road",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
	"pkwy": "parkway",
	"hwy":  "highway",
	"sq":   "square",
	"ter":  "terrace",
	"cir":  "circle",
	"n":    "north", "s": "south", "e": "east", "w": "west",
	"ne": "northeast", "nw": "northwest", "se": "southeast", "sw": "southwest",
}

// unitDesignators introduce a secondary unit that follows the street line.
var unitDesignators = map[string]bool{
	"suite": true, "ste": true, "unit": true, "apt": true, "apartment": true,
	"floor": true, "fl": true, "room": true, "rm": true, "bldg": true, "building": true,
}

var (
	nonAlnumRe   = regexp.MustCompile(`[^\p{L}\p{N}\s#]+`)
	nonDigitRe   = regexp.MustCompile(`\D`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// foldAccents strips combining marks so "Clínica" and "Clinica" compare equal.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName lowercases, folds accents, strips punctuation and removes
// noise words such as "clinic", "medical" or "llc".
//
//	"Northwestern Memorial Hospital & Medical Center" -> "northwestern memorial"
//	"Dr. Smith's Family Practice, LLC"                -> "dr smiths family"
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.ToLower(foldAccents(name))
	name = strings.NewReplacer("'", "", "’", "", "&", " ").Replace(name)
	name = nonAlnumRe.ReplaceAllString(name, " ")
	name = strings.ReplaceAll(name, "#", " ")

	words := strings.Fields(name)
	kept := words[:0]
	for _, w := range words {
		if !noiseWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// NormalizeAddress reduces a street address to a canonical street line
// plus an optional "#<unit>" suffix. Lines after the first comma are dropped
// unless they carry a secondary unit. Abbreviations are expanded
// (St -> street, E -> east) and every unit designator folds to "#".
//
//	"251 E. Huron St., Suite 100, Chicago, IL" -> "251 east huron street #100"
//	"251 East Huron Street #100"               -> "251 east huron street #100"
//	"251 East Huron Street"                    -> "251 east huron street"
func NormalizeAddress(address string) string {
	street, unit := splitAddress(address)
	if unit == "" {
		return street
	}
	if street == "" {
		return "#" + unit
	}
	return street + " #" + unit
}

// splitAddress returns the normalized street line and secondary unit number.
func splitAddress(address string) (street, unit string) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ""
	}
	parts := strings.Split(address, ",")
	street, unit = normalizeAddressLine(parts[0])
	for _, part := range parts[1:] {
		if unit != "" {
			break
		}
		if _, u := normalizeAddressLine(part); u != "" {
			unit = u
		}
	}
	return street, unit
}

// normalizeAddressLine expands abbreviations in one comma-separated line and
// pulls out the number that follows a unit designator.
func normalizeAddressLine(line string) (street, unit string) {
	line = strings.ToLower(foldAccents(line))
	line = nonAlnumRe.ReplaceAllString(line, " ")
	line = strings.ReplaceAll(line, "#", " # ")

	words := strings.Fields(line)
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		w := words[i]
		if w == "#" || unitDesignators[w] {
			if i+1 < len(words) && words[i+1] == "#" {
				i++
			}
			if i+1 < len(words) && unit == "" {
				unit = words[i+1]
			}
			i++
			continue
		}
		if full, ok := streetAbbreviations[w]; ok {
			w = full
		}
		out = append(out, w)
	}
	return multiSpaceRe.ReplaceAllString(strings.Join(out, " "), " "), unit
}

// NormalizePhone keeps digits only and drops a leading US country code.
// Numbers with fewer than seven digits normalize to "".
//
//	"+1 (312) 926-2000" -> "3129262000"
func NormalizePhone(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) < 7 {
		return ""
	}
	return digits
}
