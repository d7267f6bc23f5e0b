package merge

import (
	"slices"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

// sourceIndex maps "source:id" to the active clinics holding it.
type sourceIndex map[string]map[int64]bool

func sourceKey(src, id string) string { return src + ":" + id }

func activeSourceIndex(ds *model.Dataset) sourceIndex {
	idx := make(sourceIndex)
	for _, c := range ds.Clinics {
		if c.IsActive {
			idx.claim(c)
		}
	}
	return idx
}

func (idx sourceIndex) claim(c *model.Clinic) {
	for _, src := range model.Sources() {
		v := c.SourceID(src)
		if v == "" {
			continue
		}
		k := sourceKey(src, v)
		if idx[k] == nil {
			idx[k] = make(map[int64]bool)
		}
		idx[k][c.ID] = true
	}
}

func (idx sourceIndex) release(c *model.Clinic) {
	for _, src := range model.Sources() {
		if v := c.SourceID(src); v != "" {
			delete(idx[sourceKey(src, v)], c.ID)
		}
	}
}

// collision reports an identifier on staged that an active clinic outside
// the group already holds.
func (idx sourceIndex) collision(staged *model.Clinic, group []int64) *Conflict {
	for _, src := range model.Sources() {
		v := staged.SourceID(src)
		if v == "" {
			continue
		}
		var outside []int64
		for id := range idx[sourceKey(src, v)] {
			if !slices.Contains(group, id) {
				outside = append(outside, id)
			}
		}
		if len(outside) > 0 {
			ids := append([]int64{staged.ID}, outside...)
			slices.Sort(ids)
			return &Conflict{
				ClinicIDs: ids,
				Source:    src,
				Values:    []string{v},
				Reason:    ReasonActiveIDCollision,
			}
		}
	}
	return nil
}
