package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-pipeline/internal/config"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/store"
)

func TestOpenStore_UnsupportedDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver: mysql")
}

func TestOpenStore_PostgresRequiresURL(t *testing.T) {
	_, err := openStore(context.Background(), config.StoreConfig{Driver: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
}

func TestOpenStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinics.db")
	st, err := openStore(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: path})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, ok := st.(*store.SQLiteStore)
	assert.True(t, ok)
}

func TestInitStore_Migrates(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{Store: config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "clinics.db"),
	}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	ds, err := st.LoadDataset(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds.Clinics)
}

func TestPipelineOptions(t *testing.T) {
	rc := config.ReconcileConfig{
		ZipK:                    4,
		ZipMaxDistanceMeters:    2500,
		RatingK:                 6,
		TypeK:                   2,
		MatchThreshold:          60,
		NameSimilarityThreshold: 0.8,
		CoordinateMatchMeters:   40,
		RatingOffset:            0.2,
		IncludeInactive:         false,
		DefaultClinicType:       model.TypeSpecialty,
		Standardize:             true,
		StrictValidation:        true,
		Workers:                 3,
	}

	opts := pipelineOptions(rc, true)

	assert.True(t, opts.DryRun)
	assert.True(t, opts.Standardize)
	assert.True(t, opts.StrictValidation)

	assert.Equal(t, 60, opts.Match.Threshold)
	assert.InDelta(t, 0.8, opts.Match.NameSimilarityThreshold, 1e-9)
	assert.InDelta(t, 40.0, opts.Match.CoordinateRadiusMeters, 1e-9)
	assert.Equal(t, 3, opts.Match.Workers)

	assert.Equal(t, 4, opts.Impute.ZipK)
	assert.InDelta(t, 2500.0, opts.Impute.ZipMaxDistanceMeters, 1e-9)
	assert.Equal(t, 6, opts.Impute.RatingK)
	assert.Equal(t, 2, opts.Impute.TypeK)
	assert.InDelta(t, 0.2, opts.Impute.RatingOffset, 1e-9)
	assert.False(t, opts.Impute.IncludeInactive)
	assert.Equal(t, model.TypeSpecialty, opts.Impute.DefaultClinicType)
	assert.Equal(t, 3, opts.Impute.Workers)
}
