package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-pipeline/internal/impute"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

func reportFixture() (*model.Dataset, *provenance.Ledger) {
	ds := &model.Dataset{Clinics: []*model.Clinic{
		{
			ID: 1, ZipCode: "60611", ClinicType: model.TypeDental, GoogleRating: model.Float(4.5),
			YelpRating: model.Float(4.4), Phone: "3125550100", IsActive: true, DataQualityScore: model.Int(80),
		},
		{ID: 2, ZipCode: "60611", ClinicType: model.TypePrimaryCare, YelpRating: model.Float(3.0), IsActive: true, DataQualityScore: model.Int(50)},
		{ID: 3, ClinicType: "unknown", IsActive: false},
		{ID: 4, ZipCode: "60602", IsActive: true},
	}}
	Recompute(ds)

	ledger := provenance.NewLedger()
	ledger.Record(provenance.Entry{ClinicID: 1, Field: model.FieldGoogleRating, Method: impute.MethodCrossSourceProxy})
	ledger.Record(provenance.Entry{ClinicID: 2, Field: model.FieldClinicType, Method: impute.MethodDefault})
	ledger.Record(provenance.Entry{ClinicID: 4, Field: model.FieldZipCode, Method: impute.MethodNeighborVote})
	return ds, ledger
}

func TestBuild(t *testing.T) {
	ds, ledger := reportFixture()
	unresolved := []impute.Unresolved{
		{ClinicID: 3, Field: model.FieldZipCode, Reason: "no-coordinates"},
		{ClinicID: 3, Field: model.FieldClinicType, Reason: "no-default"},
	}

	rep := Build(ds, ledger, unresolved)

	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 3, rep.Active)
	assert.Equal(t, 1, rep.Inactive)

	zip := rep.Fields[model.FieldZipCode]
	assert.Equal(t, 3, zip.Populated)
	assert.Equal(t, 2, zip.Original)
	assert.Equal(t, 1, zip.Imputed)
	assert.Equal(t, 75.0, zip.Percent)

	ct := rep.Fields[model.FieldClinicType]
	assert.Equal(t, 2, ct.Populated)
	assert.Equal(t, 1, ct.Imputed)

	google := rep.Fields[model.FieldGoogleRating]
	assert.Equal(t, 1, google.Populated)
	assert.Equal(t, 1, google.Imputed)
	assert.Equal(t, 25.0, google.Percent)

	assert.Equal(t, 1, rep.Fields[FieldPhone].Populated)
	assert.Equal(t, 2, rep.Fields[FieldCombinedRating].Populated)

	assert.Equal(t, 1, rep.Methods[model.FieldGoogleRating][impute.MethodCrossSourceProxy])
	assert.Equal(t, 65.0, rep.AverageQualityScore)
	assert.Equal(t, 2, rep.RatingCategories[string(model.RatingUnknown)])
	assert.Equal(t, 4, rep.DataSources[string(model.DataSourceUnknown)])

	require.Len(t, rep.Unresolved, 2)
	assert.Equal(t, model.FieldClinicType, rep.Unresolved[0].Field)

	assert.Equal(t, []string{
		model.FieldZipCode, model.FieldClinicType, model.FieldGoogleRating, model.FieldYelpRating,
		FieldPhone, FieldWebsite, FieldCoordinates, FieldCombinedRating,
	}, rep.FieldNames())
}

func TestBuild_NilLedgerCountsOriginal(t *testing.T) {
	ds, _ := reportFixture()

	rep := Build(ds, nil, nil)

	assert.Zero(t, rep.Fields[model.FieldZipCode].Imputed)
	assert.Equal(t, 3, rep.Fields[model.FieldZipCode].Original)
	assert.Empty(t, rep.Methods)
}

func TestBuild_EmptyDataset(t *testing.T) {
	rep := Build(&model.Dataset{}, nil, nil)
	assert.Zero(t, rep.Total)
	assert.Zero(t, rep.Fields[model.FieldZipCode].Percent)
}

func TestFieldStatus(t *testing.T) {
	ds, ledger := reportFixture()

	status := FieldStatus(ds.Clinics[0], ledger)

	assert.Equal(t, provenance.StatusOriginal, status[model.FieldZipCode])
	assert.Equal(t, "imputed:cross-source-proxy", status[model.FieldGoogleRating])

	status = FieldStatus(ds.Clinics[2], ledger)
	assert.Equal(t, provenance.StatusEmpty, status[model.FieldClinicType])
}
