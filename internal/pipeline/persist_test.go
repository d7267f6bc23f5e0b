package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
	"github.com/sells-group/clinic-pipeline/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dataset), args.Error(1)
}

func (m *mockStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	return m.Called(ctx, ds).Error(0)
}

func (m *mockStore) LoadProvenance(ctx context.Context) ([]provenance.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provenance.Entry), args.Error(1)
}

func (m *mockStore) SaveProvenance(ctx context.Context, entries []provenance.Entry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *mockStore) SaveRun(ctx context.Context, run *model.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                      { return m.Called().Error(0) }

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "clinics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestRunStored_SavesResults(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.SaveDataset(ctx, fixture()))

	res, err := newTestPipeline(testOptions()).RunStored(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, res.Run.Status)

	ds, err := st.LoadDataset(ctx)
	require.NoError(t, err)
	byID := ds.ByID()
	assert.False(t, byID[2].IsActive)
	assert.Equal(t, "y-2", byID[1].YelpBusinessID)
	assert.Equal(t, "60611", byID[3].ZipCode)

	entries, err := st.LoadProvenance(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	run, err := st.GetRun(ctx, "run-test")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Len(t, run.Phases, 7)
}

func TestRunStored_DryRunWritesNothing(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.SaveDataset(ctx, fixture()))

	opts := testOptions()
	opts.DryRun = true
	res, err := newTestPipeline(opts).RunStored(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merge.GroupsMerged)

	ds, err := st.LoadDataset(ctx)
	require.NoError(t, err)
	assert.True(t, ds.ByID()[2].IsActive)

	entries, err := st.LoadProvenance(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunStored_SaveFailureRecordsFailedRun(t *testing.T) {
	ms := &mockStore{}
	ms.On("LoadDataset", mock.Anything).Return(fixture(), nil)
	ms.On("LoadProvenance", mock.Anything).Return([]provenance.Entry{}, nil)
	ms.On("SaveDataset", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	ms.On("SaveRun", mock.Anything, mock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusFailed && r.Error != ""
	})).Return(nil)

	res, err := newTestPipeline(testOptions()).RunStored(context.Background(), ms)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: save dataset")
	assert.Equal(t, model.RunStatusFailed, res.Run.Status)
	ms.AssertExpectations(t)
	ms.AssertNotCalled(t, "SaveProvenance", mock.Anything, mock.Anything)
}

func TestRunStored_LoadError(t *testing.T) {
	ms := &mockStore{}
	ms.On("LoadDataset", mock.Anything).Return(nil, errors.New("no such table: clinics"))

	_, err := newTestPipeline(testOptions()).RunStored(context.Background(), ms)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: load dataset")
	ms.AssertExpectations(t)
}

func TestRunStored_StrictFailureSavesRunOnly(t *testing.T) {
	ms := &mockStore{}
	ms.On("LoadDataset", mock.Anything).Return(fixture(), nil)
	ms.On("LoadProvenance", mock.Anything).Return(nil, nil)
	ms.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	opts := testOptions()
	opts.StrictValidation = true
	_, err := newTestPipeline(opts).RunStored(context.Background(), ms)
	require.Error(t, err)
	ms.AssertExpectations(t)
	ms.AssertNotCalled(t, "SaveDataset", mock.Anything, mock.Anything)
}
