package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-pipeline/internal/config"
	"github.com/sells-group/clinic-pipeline/internal/impute"
	"github.com/sells-group/clinic-pipeline/internal/match"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/pipeline"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
	"github.com/sells-group/clinic-pipeline/internal/store"
)

// initStore opens the configured store and applies its schema.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "clinics.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if sc.DatabaseURL == "" {
			return nil, eris.New("postgres store requires a database URL (CLINIC_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// pipelineOptions maps the reconcile settings onto pipeline options.
func pipelineOptions(rc config.ReconcileConfig, dryRun bool) pipeline.Options {
	return pipeline.Options{
		Match: match.Config{
			Threshold:               rc.MatchThreshold,
			NameSimilarityThreshold: rc.NameSimilarityThreshold,
			CoordinateRadiusMeters:  rc.CoordinateMatchMeters,
			Workers:                 rc.Workers,
		},
		Impute: impute.Config{
			ZipK:                 rc.ZipK,
			ZipMaxDistanceMeters: rc.ZipMaxDistanceMeters,
			RatingK:              rc.RatingK,
			TypeK:                rc.TypeK,
			RatingOffset:         rc.RatingOffset,
			IncludeInactive:      rc.IncludeInactive,
			DefaultClinicType:    rc.DefaultClinicType,
			Workers:              rc.Workers,
		},
		Standardize:      rc.Standardize,
		StrictValidation: rc.StrictValidation,
		DryRun:           dryRun,
	}
}

// loadState reads the dataset and its provenance ledger.
func loadState(ctx context.Context, st store.Store) (*model.Dataset, *provenance.Ledger, error) {
	ds, err := st.LoadDataset(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load dataset")
	}
	ledger, err := store.LoadLedger(ctx, st)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load provenance")
	}
	return ds, ledger, nil
}
