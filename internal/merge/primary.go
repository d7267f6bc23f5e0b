// Package merge collapses matched duplicate groups into one active clinic
// and moves child records onto the survivor.
package merge

import (
	"sort"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

// SelectPrimary picks the surviving record of a group. Precedence:
//  1. holds both source identifiers
//  2. higher DataQualityScore (missing scores rank lowest)
//  3. earlier CreatedAt
//  4. lower ID
func SelectPrimary(members []*model.Clinic) *model.Clinic {
	if len(members) == 0 {
		return nil
	}
	sorted := append([]*model.Clinic(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return outranks(sorted[i], sorted[j])
	})
	return sorted[0]
}

func outranks(a, b *model.Clinic) bool {
	if a.HasBothSources() != b.HasBothSources() {
		return a.HasBothSources()
	}
	qa, qb := qualityOf(a), qualityOf(b)
	if qa != qb {
		return qa > qb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		// Zero timestamps sort last.
		if a.CreatedAt.IsZero() || b.CreatedAt.IsZero() {
			return !a.CreatedAt.IsZero()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func qualityOf(c *model.Clinic) int {
	if c.DataQualityScore == nil {
		return -1
	}
	return *c.DataQualityScore
}
