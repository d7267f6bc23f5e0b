package ingest

import (
	"fmt"
	"time"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// Summary counts what Apply did. Rejected lines are 1-based positions in
// the incoming slice.
type Summary struct {
	Added    int        `json:"added"`
	Updated  int        `json:"updated"`
	Rejected []RowError `json:"rejected,omitempty"`
	// Replaced lists, per updated clinic, the target fields whose value the
	// import changed or cleared.
	Replaced map[int64][]string `json:"replaced,omitempty"`
}

// ForgetReplaced drops ledger entries for every replaced field, since those
// values now come from the import rather than imputation. It returns the
// number of entries removed.
func (s Summary) ForgetReplaced(l *provenance.Ledger) int {
	n := 0
	for id, fields := range s.Replaced {
		for _, f := range fields {
			if l.Delete(id, f) {
				n++
			}
		}
	}
	return n
}

// replacedFields returns the target fields whose value differs between the
// stored and the incoming clinic.
func replacedFields(old, c *model.Clinic) []string {
	var out []string
	for _, f := range model.TargetFields() {
		if old.FieldValue(f) != c.FieldValue(f) {
			out = append(out, f)
		}
	}
	return out
}

// Apply folds incoming clinics into ds by ID. Rows without an ID get the
// next free one. An existing clinic keeps its CreatedAt and its data
// quality score; the target fields it changes are listed in
// Summary.Replaced. A row whose source identifier is already held by a
// different clinic is rejected so identifiers stay unique.
func Apply(ds *model.Dataset, incoming []*model.Clinic, now time.Time) Summary {
	var sum Summary

	byID := ds.ByID()
	var nextID int64
	owners := map[string]map[string]int64{model.SourceGoogle: {}, model.SourceYelp: {}}
	for _, c := range ds.Clinics {
		if c.ID > nextID {
			nextID = c.ID
		}
		for _, src := range model.Sources() {
			if id := c.SourceID(src); id != "" {
				owners[src][id] = c.ID
			}
		}
	}

	for i, c := range incoming {
		c = c.Clone()
		if c.ID == 0 {
			nextID++
			c.ID = nextID
		} else if c.ID > nextID {
			nextID = c.ID
		}

		if rej := sourceClash(owners, c, i); rej != nil {
			sum.Rejected = append(sum.Rejected, *rej)
			continue
		}

		existing, ok := byID[c.ID]
		if ok {
			for _, src := range model.Sources() {
				if id := existing.SourceID(src); id != "" {
					delete(owners[src], id)
				}
			}
			if !existing.CreatedAt.IsZero() {
				c.CreatedAt = existing.CreatedAt
			}
			if existing.DataQualityScore != nil {
				c.DataQualityScore = existing.DataQualityScore
			}
			c.MergedInto = existing.MergedInto
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		model.ApplyDerived(c)

		for _, src := range model.Sources() {
			if id := c.SourceID(src); id != "" {
				owners[src][id] = c.ID
			}
		}
		if ok {
			if fields := replacedFields(existing, c); len(fields) > 0 {
				if sum.Replaced == nil {
					sum.Replaced = make(map[int64][]string)
				}
				sum.Replaced[c.ID] = fields
			}
			*existing = *c
			sum.Updated++
			continue
		}
		ds.Clinics = append(ds.Clinics, c)
		byID[c.ID] = c
		sum.Added++
	}
	ds.SortByID()
	return sum
}

func sourceClash(owners map[string]map[string]int64, c *model.Clinic, row int) *RowError {
	for _, src := range model.Sources() {
		id := c.SourceID(src)
		if id == "" {
			continue
		}
		if owner, ok := owners[src][id]; ok && owner != c.ID {
			return &RowError{
				Line:   row + 1,
				Column: src,
				Value:  id,
				Reason: fmt.Sprintf("already held by clinic %d", owner),
			}
		}
	}
	return nil
}
