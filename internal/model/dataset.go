package model

import (
	"fmt"
	"sort"
)

// Dataset is a snapshot of every clinic (active and inactive) and its
// child records. Pipeline stages own it exclusively for the duration of a run.
type Dataset struct {
	Clinics    []*Clinic          `json:"clinics"`
	Reviews    []*Review          `json:"reviews,omitempty"`
	Visibility []*VisibilityScore `json:"visibility,omitempty"`
}

// ByID indexes clinics by ID.
func (d *Dataset) ByID() map[int64]*Clinic {
	m := make(map[int64]*Clinic, len(d.Clinics))
	for _, c := range d.Clinics {
		m[c.ID] = c
	}
	return m
}

// Active returns the active clinics in ID order.
func (d *Dataset) Active() []*Clinic {
	var out []*Clinic
	for _, c := range d.Clinics {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SortByID orders clinics and children by ID so stages iterate deterministically.
func (d *Dataset) SortByID() {
	sort.Slice(d.Clinics, func(i, j int) bool { return d.Clinics[i].ID < d.Clinics[j].ID })
	sort.Slice(d.Reviews, func(i, j int) bool { return d.Reviews[i].ID < d.Reviews[j].ID })
	sort.Slice(d.Visibility, func(i, j int) bool { return d.Visibility[i].ID < d.Visibility[j].ID })
}

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Clinics:    make([]*Clinic, len(d.Clinics)),
		Reviews:    make([]*Review, len(d.Reviews)),
		Visibility: make([]*VisibilityScore, len(d.Visibility)),
	}
	for i, c := range d.Clinics {
		out.Clinics[i] = c.Clone()
	}
	for i, r := range d.Reviews {
		cp := *r
		if r.SentimentScore != nil {
			s := *r.SentimentScore
			cp.SentimentScore = &s
		}
		out.Reviews[i] = &cp
	}
	for i, v := range d.Visibility {
		cp := *v
		out.Visibility[i] = &cp
	}
	return out
}

// ViolationKind names an invariant of the dataset.
type ViolationKind string

const (
	ViolationDuplicateClinicID    ViolationKind = "duplicate_clinic_id"
	ViolationDuplicateSourceID    ViolationKind = "duplicate_source_id"
	ViolationMissingChildOwner    ViolationKind = "missing_child_owner"
	ViolationInactiveChildOwner   ViolationKind = "inactive_child_owner"
	ViolationNegativeQualityScore ViolationKind = "quality_score_out_of_range"
)

// Violation describes one broken invariant.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	ClinicIDs []int64       `json:"clinic_ids,omitempty"`
	ChildID   int64         `json:"child_id,omitempty"`
	Detail    string        `json:"detail"`
}

// Key identifies the violation independent of slice ordering.
func (v Violation) Key() string {
	return fmt.Sprintf("%s|%v|%d|%s", v.Kind, v.ClinicIDs, v.ChildID, v.Detail)
}

// CheckInvariants lists every violated dataset invariant: unique clinic IDs,
// unique source identifiers across all clinics, and children owned by an
// existing, active clinic.
func (d *Dataset) CheckInvariants() []Violation {
	var out []Violation

	seen := make(map[int64]bool, len(d.Clinics))
	owners := map[string]map[string][]int64{
		SourceGoogle: {},
		SourceYelp:   {},
	}
	for _, c := range d.Clinics {
		if seen[c.ID] {
			out = append(out, Violation{
				Kind:      ViolationDuplicateClinicID,
				ClinicIDs: []int64{c.ID},
				Detail:    fmt.Sprintf("clinic id %d appears more than once", c.ID),
			})
		}
		seen[c.ID] = true
		for _, src := range Sources() {
			if id := c.SourceID(src); id != "" {
				owners[src][id] = append(owners[src][id], c.ID)
			}
		}
		if c.DataQualityScore != nil && (*c.DataQualityScore < 0 || *c.DataQualityScore > 100) {
			out = append(out, Violation{
				Kind:      ViolationNegativeQualityScore,
				ClinicIDs: []int64{c.ID},
				Detail:    fmt.Sprintf("data quality score %d outside 0-100", *c.DataQualityScore),
			})
		}
	}

	for _, src := range Sources() {
		ids := make([]string, 0, len(owners[src]))
		for id := range owners[src] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			holders := owners[src][id]
			if len(holders) < 2 {
				continue
			}
			sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })
			out = append(out, Violation{
				Kind:      ViolationDuplicateSourceID,
				ClinicIDs: holders,
				Detail:    fmt.Sprintf("%s id %q held by %d clinics", src, id, len(holders)),
			})
		}
	}

	byID := d.ByID()
	checkOwner := func(kind string, childID, clinicID int64) {
		owner, ok := byID[clinicID]
		switch {
		case !ok:
			out = append(out, Violation{
				Kind:      ViolationMissingChildOwner,
				ClinicIDs: []int64{clinicID},
				ChildID:   childID,
				Detail:    fmt.Sprintf("%s %d references missing clinic %d", kind, childID, clinicID),
			})
		case !owner.IsActive:
			out = append(out, Violation{
				Kind:      ViolationInactiveChildOwner,
				ClinicIDs: []int64{clinicID},
				ChildID:   childID,
				Detail:    fmt.Sprintf("%s %d references inactive clinic %d", kind, childID, clinicID),
			})
		}
	}
	for _, r := range d.Reviews {
		checkOwner("review", r.ID, r.ClinicID)
	}
	for _, v := range d.Visibility {
		checkOwner("visibility score", v.ID, v.ClinicID)
	}

	return out
}
