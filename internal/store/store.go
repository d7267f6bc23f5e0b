// Package store persists the clinic dataset, the provenance ledger, and
// run history.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the reconciliation pipeline.
type Store interface {
	// Dataset
	LoadDataset(ctx context.Context) (*model.Dataset, error)
	SaveDataset(ctx context.Context, ds *model.Dataset) error

	// Provenance
	LoadProvenance(ctx context.Context) ([]provenance.Entry, error)
	SaveProvenance(ctx context.Context, entries []provenance.Entry) error

	// Runs
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// LoadLedger reads the stored provenance entries into a new ledger.
func LoadLedger(ctx context.Context, s Store) (*provenance.Ledger, error) {
	entries, err := s.LoadProvenance(ctx)
	if err != nil {
		return nil, err
	}
	l := provenance.NewLedger()
	l.Load(entries)
	return l, nil
}

const defaultListLimit = 100
