package match

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// NameSimilarity returns a 0..1 similarity between two clinic names after
// normalization. It is the larger of the character-level Levenshtein ratio
// and the token-set ratio 2|A∩B|/(|A|+|B|). A short name that is a subset of
// a longer one only scores high when the extra tokens are few. Empty names
// score 0.
func NameSimilarity(a, b string) float64 {
	return similarity(NormalizeName(a), NormalizeName(b))
}

func similarity(na, nb string) float64 {
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	lev := levenshteinRatio(na, nb)
	tok := tokenSetRatio(na, nb)
	if tok > lev {
		return tok
	}
	return lev
}

func levenshteinRatio(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// tokenSetRatio is the Dice coefficient 2|A ∩ B| / (|A| + |B|) over
// distinct tokens.
func tokenSetRatio(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for tok := range ta {
		if tb[tok] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
