package clean

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

func TestValidateClinic(t *testing.T) {
	tests := []struct {
		name   string
		clinic *model.Clinic
		kinds  []IssueKind
	}{
		{"valid", &model.Clinic{ID: 1, Latitude: model.Float(41.9), Longitude: model.Float(-87.6), GoogleRating: model.Float(4.2)}, nil},
		{"no coordinates", &model.Clinic{ID: 1}, nil},
		{"latitude out of range", &model.Clinic{ID: 1, Latitude: model.Float(91), Longitude: model.Float(0)}, []IssueKind{IssueInvalidCoordinates}},
		{"nan longitude", &model.Clinic{ID: 1, Latitude: model.Float(41), Longitude: model.Float(math.NaN())}, []IssueKind{IssueInvalidCoordinates}},
		{"partial coordinates", &model.Clinic{ID: 1, Latitude: model.Float(41)}, []IssueKind{IssuePartialCoordinates}},
		{"rating above five", &model.Clinic{ID: 1, YelpRating: model.Float(5.5)}, []IssueKind{IssueRatingOutOfRange}},
		{"rating zero", &model.Clinic{ID: 1, GoogleRating: model.Float(0)}, []IssueKind{IssueRatingOutOfRange}},
		{"negative review count", &model.Clinic{ID: 1, GoogleReviewCount: model.Int(-3)}, []IssueKind{IssueNegativeReviewCount}},
		{"quality out of range", &model.Clinic{ID: 1, DataQualityScore: model.Int(120)}, []IssueKind{IssueQualityOutOfRange}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := ValidateClinic(tt.clinic)
			var kinds []IssueKind
			for _, is := range issues {
				kinds = append(kinds, is.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestValidate_OrderedAcrossFields(t *testing.T) {
	ds := &model.Dataset{
		Clinics: []*model.Clinic{
			{ID: 2, GoogleRating: model.Float(6), YelpRating: model.Float(-1)},
			{ID: 1, YelpReviewCount: model.Int(-1)},
		},
		Reviews: []*model.Review{{ID: 9, ClinicID: 1, Rating: 0}},
	}

	issues := Validate(ds)
	require.Len(t, issues, 4)
	assert.Equal(t, IssueNegativeReviewCount, issues[0].Kind)
	assert.Equal(t, IssueReviewRating, issues[1].Kind)
	assert.Equal(t, int64(9), issues[1].ReviewID)
	assert.Contains(t, issues[1].String(), "review 9")
	assert.Equal(t, int64(2), issues[2].ClinicID)
	assert.Equal(t, model.FieldGoogleRating, issues[2].Field)
	assert.Equal(t, model.FieldYelpRating, issues[3].Field)
}

func TestQuarantine(t *testing.T) {
	ds := &model.Dataset{
		Clinics: []*model.Clinic{{ID: 1}, {ID: 2}, {ID: 3}},
		Reviews: []*model.Review{
			{ID: 10, ClinicID: 1, Rating: 4},
			{ID: 11, ClinicID: 2, Rating: 4},
			{ID: 12, ClinicID: 3, Rating: 9},
		},
		Visibility: []*model.VisibilityScore{{ID: 20, ClinicID: 2}, {ID: 21, ClinicID: 3}},
	}
	issues := []Issue{
		{ClinicID: 2, Kind: IssueRatingOutOfRange},
		{ClinicID: 3, ReviewID: 12, Kind: IssueReviewRating},
	}

	runnable, held := Quarantine(ds, issues)

	assert.Equal(t, []int64{2}, held)
	require.Len(t, runnable.Clinics, 2)
	assert.Equal(t, int64(1), runnable.Clinics[0].ID)
	assert.Equal(t, int64(3), runnable.Clinics[1].ID)
	require.Len(t, runnable.Reviews, 1)
	assert.Equal(t, int64(10), runnable.Reviews[0].ID)
	require.Len(t, runnable.Visibility, 1)
	assert.Equal(t, int64(21), runnable.Visibility[0].ID)
	assert.Len(t, ds.Clinics, 3)
}
