package merge

import (
	"sort"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

// Conflict reasons.
const (
	ReasonMultipleSourceIDs = "multiple-source-ids"
	ReasonActiveIDCollision = "active-id-collision"
	ReasonMissingMember     = "missing-member"
)

// Conflict flags a group that cannot be merged automatically and needs
// manual review.
type Conflict struct {
	ClinicIDs []int64  `json:"clinic_ids"`
	Source    string   `json:"source,omitempty"`
	Values    []string `json:"values,omitempty"`
	Reason    string   `json:"reason"`
}

// DetectConflicts returns a conflict when two members of a group hold an
// identifier for the same source system. Merging them would mean dropping
// one identifier, so the group is left for review.
func DetectConflicts(members []*model.Clinic) *Conflict {
	for _, src := range model.Sources() {
		var ids []int64
		var values []string
		for _, c := range members {
			if v := c.SourceID(src); v != "" {
				ids = append(ids, c.ID)
				values = append(values, v)
			}
		}
		if len(ids) > 1 {
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			sort.Strings(values)
			return &Conflict{
				ClinicIDs: ids,
				Source:    src,
				Values:    values,
				Reason:    ReasonMultipleSourceIDs,
			}
		}
	}
	return nil
}
