package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/clinic-pipeline/internal/ingest"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
	"github.com/sells-group/clinic-pipeline/internal/quality"
)

func sample() (*model.Dataset, *provenance.Ledger) {
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	merged := int64(1)
	ds := &model.Dataset{Clinics: []*model.Clinic{
		{
			ID: 1, GooglePlaceID: "g-1", YelpBusinessID: "y-2", Name: "Lakeview Dental, P.C.",
			ZipCode: "60611", Latitude: model.Float(41.8925), Longitude: model.Float(-87.6262),
			ClinicType: model.TypeDental, Categories: []string{"Dentists", "Orthodontists"},
			GoogleRating: model.Float(4.5), YelpRating: model.Float(4.4), YelpReviewCount: model.Int(12),
			IsActive: true, DataQualityScore: model.Int(90), CreatedAt: created, UpdatedAt: created,
		},
		{ID: 2, Name: "Lakeview Dental Care", IsActive: false, MergedInto: &merged, CreatedAt: created, UpdatedAt: created},
	}}
	for _, c := range ds.Clinics {
		model.ApplyDerived(c)
	}
	ledger := provenance.NewLedger()
	ledger.Record(provenance.Entry{ClinicID: 1, Field: model.FieldYelpRating, Method: "cross-source-proxy", Value: "4.4"})
	return ds, ledger
}

func TestWriteCSV(t *testing.T) {
	ds, ledger := sample()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds, ledger, Options{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Columns(), ","), lines[0])
	assert.Contains(t, lines[1], `"Lakeview Dental, P.C."`)
	assert.Contains(t, lines[1], "Dentists; Orthodontists")
	assert.Contains(t, lines[1], "4.45,") // combined rating
	assert.Contains(t, lines[1], "original,original,original,imputed:cross-source-proxy")
	assert.Contains(t, lines[2], ",false,1,")
	assert.True(t, strings.HasSuffix(lines[2], "empty,empty,empty,empty"))
}

func TestWriteCSV_ActiveOnly(t *testing.T) {
	ds, ledger := sample()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds, ledger, Options{ActiveOnly: true}))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 2)
}

func TestWriteCSV_ReadsBackThroughIngest(t *testing.T) {
	ds, ledger := sample()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds, ledger, Options{}))

	res, err := ingest.ReadCSV(context.Background(), &buf)
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.Len(t, res.Clinics, 2)

	got := res.Clinics[0]
	want := ds.Clinics[0]
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.GooglePlaceID, got.GooglePlaceID)
	assert.Equal(t, want.Categories, got.Categories)
	assert.InDelta(t, *want.Latitude, *got.Latitude, 1e-12)
	assert.Equal(t, *want.YelpReviewCount, *got.YelpReviewCount)
	assert.Equal(t, *want.DataQualityScore, *got.DataQualityScore)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.False(t, res.Clinics[1].IsActive)
}

func TestWriteXLSX(t *testing.T) {
	ds, ledger := sample()
	rep := quality.Build(ds, ledger, nil)
	path := filepath.Join(t.TempDir(), "clinics.xlsx")

	require.NoError(t, WriteXLSX(path, ds, ledger, rep, Options{ActiveOnly: true}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	clinics := f.Sheet[SheetClinics]
	require.NotNil(t, clinics)
	require.Len(t, clinics.Rows, 2)
	assert.Equal(t, ingest.ColID, clinics.Rows[0].Cells[0].String())
	assert.Equal(t, "Lakeview Dental, P.C.", clinics.Rows[1].Cells[3].String())

	comp := f.Sheet[SheetCompleteness]
	require.NotNil(t, comp)
	assert.Equal(t, len(rep.FieldNames())+1, len(comp.Rows))

	// The clinics sheet reads back through ingest.
	res, err := ingest.ReadXLSX(context.Background(), path, SheetClinics)
	require.NoError(t, err)
	require.Len(t, res.Clinics, 1)
	assert.Equal(t, "60611", res.Clinics[0].ZipCode)
}

func TestWriteReport(t *testing.T) {
	ds, ledger := sample()
	rep := quality.Build(ds, ledger, nil)
	rep.RunID = "run-1"

	var jbuf bytes.Buffer
	require.NoError(t, WriteReport(&jbuf, rep, "JSON"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jbuf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.EqualValues(t, 2, decoded["total"])

	var ybuf bytes.Buffer
	require.NoError(t, WriteReport(&ybuf, rep, FormatYAML))
	var ydecoded map[string]any
	require.NoError(t, yaml.Unmarshal(ybuf.Bytes(), &ydecoded))
	assert.Equal(t, "run-1", ydecoded["run_id"])
	assert.Equal(t, 1, ydecoded["active"])

	err := WriteReport(&bytes.Buffer{}, rep, "toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report format")
}
