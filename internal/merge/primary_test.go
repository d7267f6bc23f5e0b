package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

func TestSelectPrimary(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(24 * time.Hour)

	tests := []struct {
		name    string
		members []*model.Clinic
		want    int64
	}{
		{
			name: "both sources wins over quality",
			members: []*model.Clinic{
				{ID: 1, GooglePlaceID: "g1", DataQualityScore: model.Int(95)},
				{ID: 2, GooglePlaceID: "g2", YelpBusinessID: "y2", DataQualityScore: model.Int(40)},
			},
			want: 2,
		},
		{
			name: "higher quality score",
			members: []*model.Clinic{
				{ID: 1, GooglePlaceID: "g1", DataQualityScore: model.Int(60)},
				{ID: 2, YelpBusinessID: "y2", DataQualityScore: model.Int(80)},
			},
			want: 2,
		},
		{
			name: "missing quality ranks lowest",
			members: []*model.Clinic{
				{ID: 1, GooglePlaceID: "g1"},
				{ID: 2, YelpBusinessID: "y2", DataQualityScore: model.Int(0)},
			},
			want: 2,
		},
		{
			name: "earliest created",
			members: []*model.Clinic{
				{ID: 1, DataQualityScore: model.Int(50), CreatedAt: late},
				{ID: 2, DataQualityScore: model.Int(50), CreatedAt: early},
			},
			want: 2,
		},
		{
			name: "zero timestamp sorts last",
			members: []*model.Clinic{
				{ID: 1},
				{ID: 2, CreatedAt: late},
			},
			want: 2,
		},
		{
			name: "lowest id",
			members: []*model.Clinic{
				{ID: 9, CreatedAt: early},
				{ID: 3, CreatedAt: early},
			},
			want: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectPrimary(tt.members).ID)
		})
	}
}

func TestSelectPrimary_Empty(t *testing.T) {
	assert.Nil(t, SelectPrimary(nil))
}

func TestDetectConflicts(t *testing.T) {
	t.Run("complementary ids", func(t *testing.T) {
		assert.Nil(t, DetectConflicts([]*model.Clinic{
			{ID: 1, GooglePlaceID: "g1"},
			{ID: 2, YelpBusinessID: "y2"},
		}))
	})

	t.Run("two google ids", func(t *testing.T) {
		c := DetectConflicts([]*model.Clinic{
			{ID: 2, GooglePlaceID: "g2"},
			{ID: 1, GooglePlaceID: "g1"},
		})
		if assert.NotNil(t, c) {
			assert.Equal(t, []int64{1, 2}, c.ClinicIDs)
			assert.Equal(t, model.SourceGoogle, c.Source)
			assert.Equal(t, []string{"g1", "g2"}, c.Values)
			assert.Equal(t, ReasonMultipleSourceIDs, c.Reason)
		}
	})

	t.Run("same yelp id twice", func(t *testing.T) {
		c := DetectConflicts([]*model.Clinic{
			{ID: 1, YelpBusinessID: "y"},
			{ID: 2, YelpBusinessID: "y"},
		})
		if assert.NotNil(t, c) {
			assert.Equal(t, model.SourceYelp, c.Source)
		}
	})
}
