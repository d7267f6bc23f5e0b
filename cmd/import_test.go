package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-pipeline/internal/impute"
	"github.com/sells-group/clinic-pipeline/internal/match"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/pipeline"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
	"github.com/sells-group/clinic-pipeline/internal/store"
)

func importFixture() *model.Dataset {
	return &model.Dataset{Clinics: []*model.Clinic{
		{
			ID: 1, GooglePlaceID: "g-1", Name: "Lakeview Family Clinic", ZipCode: "60611",
			ClinicType: model.TypePrimaryCare, Latitude: model.Float(41.89), Longitude: model.Float(-87.63),
			GoogleRating: model.Float(4.5), IsActive: true,
		},
		{
			ID: 2, YelpBusinessID: "y-2", Name: "River North Pediatrics", ZipCode: "60611",
			ClinicType: model.TypePediatric, Latitude: model.Float(41.90), Longitude: model.Float(-87.63),
			YelpRating: model.Float(4.0), IsActive: true,
		},
	}}
}

// imputedStore saves importFixture and runs the pipeline over it once.
func imputedStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "clinics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.SaveDataset(ctx, importFixture()))

	p := pipeline.New(pipeline.Options{Match: match.DefaultConfig(), Impute: impute.DefaultConfig()})
	_, err = p.RunStored(ctx, st)
	require.NoError(t, err)
	return st
}

func loadLedger(t *testing.T, st store.Store) *provenance.Ledger {
	t.Helper()
	ledger, err := store.LoadLedger(context.Background(), st)
	require.NoError(t, err)
	return ledger
}

func TestImportClinics_ObservedValueClearsImputation(t *testing.T) {
	ctx := context.Background()
	st := imputedStore(t)

	before := loadLedger(t, st)
	e, ok := before.Lookup(1, model.FieldYelpRating)
	require.True(t, ok)
	assert.Equal(t, impute.MethodCrossSourceProxy, e.Method)
	require.True(t, before.IsImputed(2, model.FieldGoogleRating))

	row := importFixture().Clinics[0]
	row.YelpRating = model.Float(3.0)
	sum, err := importClinics(ctx, st, []*model.Clinic{row}, time.Now().UTC(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, []string{model.FieldYelpRating}, sum.Replaced[1])

	ds, err := st.LoadDataset(ctx)
	require.NoError(t, err)
	require.NotNil(t, ds.ByID()[1].YelpRating)
	assert.InDelta(t, 3.0, *ds.ByID()[1].YelpRating, 1e-9)

	after := loadLedger(t, st)
	assert.Equal(t, provenance.StatusOriginal, after.Status(1, model.FieldYelpRating, true))
	assert.True(t, after.IsImputed(2, model.FieldGoogleRating))
	assert.Equal(t, before.Len()-1, after.Len())
}

func TestImportClinics_DryRunKeepsLedger(t *testing.T) {
	ctx := context.Background()
	st := imputedStore(t)
	before := loadLedger(t, st)

	row := importFixture().Clinics[0]
	row.YelpRating = model.Float(3.0)
	sum, err := importClinics(ctx, st, []*model.Clinic{row}, time.Now().UTC(), true)
	require.NoError(t, err)
	assert.NotEmpty(t, sum.Replaced)

	assert.Equal(t, before.Entries(), loadLedger(t, st).Entries())
}
