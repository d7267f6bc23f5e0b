package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInvariants_Clean(t *testing.T) {
	ds := &Dataset{
		Clinics: []*Clinic{
			{ID: 1, GooglePlaceID: "g1", IsActive: true},
			{ID: 2, YelpBusinessID: "y1", IsActive: true},
		},
		Reviews:    []*Review{{ID: 10, ClinicID: 1}},
		Visibility: []*VisibilityScore{{ID: 20, ClinicID: 2}},
	}
	assert.Empty(t, ds.CheckInvariants())
}

func TestCheckInvariants_DuplicateSourceID(t *testing.T) {
	ds := &Dataset{Clinics: []*Clinic{
		{ID: 2, GooglePlaceID: "g1", IsActive: true},
		{ID: 1, GooglePlaceID: "g1", IsActive: false},
	}}
	v := ds.CheckInvariants()
	require.Len(t, v, 1)
	assert.Equal(t, ViolationDuplicateSourceID, v[0].Kind)
	assert.Equal(t, []int64{1, 2}, v[0].ClinicIDs)
}

func TestCheckInvariants_ChildOwners(t *testing.T) {
	ds := &Dataset{
		Clinics: []*Clinic{
			{ID: 1, IsActive: true},
			{ID: 2, IsActive: false},
		},
		Reviews:    []*Review{{ID: 10, ClinicID: 2}, {ID: 11, ClinicID: 99}},
		Visibility: []*VisibilityScore{{ID: 20, ClinicID: 1}},
	}
	v := ds.CheckInvariants()
	require.Len(t, v, 2)
	assert.Equal(t, ViolationInactiveChildOwner, v[0].Kind)
	assert.Equal(t, ViolationMissingChildOwner, v[1].Kind)
	assert.Equal(t, int64(11), v[1].ChildID)
}

func TestDatasetClone_IsDeep(t *testing.T) {
	ds := &Dataset{
		Clinics: []*Clinic{{ID: 1, GoogleRating: Float(4.0), Categories: []string{"Dentist"}}},
		Reviews: []*Review{{ID: 1, ClinicID: 1}},
	}
	cp := ds.Clone()
	*cp.Clinics[0].GoogleRating = 1.0
	cp.Clinics[0].Categories[0] = "x"
	cp.Reviews[0].ClinicID = 5

	assert.InDelta(t, 4.0, *ds.Clinics[0].GoogleRating, 1e-9)
	assert.Equal(t, "Dentist", ds.Clinics[0].Categories[0])
	assert.Equal(t, int64(1), ds.Reviews[0].ClinicID)
}

func TestActive_SortedByID(t *testing.T) {
	ds := &Dataset{Clinics: []*Clinic{
		{ID: 3, IsActive: true},
		{ID: 1, IsActive: true},
		{ID: 2, IsActive: false},
	}}
	active := ds.Active()
	require.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].ID)
	assert.Equal(t, int64(3), active[1].ID)
}
