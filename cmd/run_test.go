package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/clinic-pipeline/internal/clean"
	"github.com/sells-group/clinic-pipeline/internal/impute"
	"github.com/sells-group/clinic-pipeline/internal/match"
	"github.com/sells-group/clinic-pipeline/internal/merge"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/pipeline"
	"github.com/sells-group/clinic-pipeline/internal/quality"
)

func TestFormatRunSummary(t *testing.T) {
	res := &pipeline.Result{
		Run: model.Run{
			ID:        "run-1234",
			Status:    model.RunStatusComplete,
			DryRun:    true,
			StartedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		},
		Issues:      []clean.Issue{{ClinicID: 4}},
		Quarantined: []int64{4},
		Groups:      []match.Group{{IDs: []int64{1, 2}}},
		Merge:       merge.Report{GroupsMerged: 1, RecordsDeactivated: 1},
		Impute: &impute.Result{
			Filled:     map[string]int{model.FieldZipCode: 2, model.FieldGoogleRating: 1},
			Unresolved: []impute.Unresolved{{ClinicID: 9, Field: model.FieldYelpRating}},
		},
		Report: &quality.Report{
			Total: 4, Active: 3, Inactive: 1,
			Fields: map[string]quality.FieldCompleteness{
				model.FieldZipCode: {Populated: 4, Percent: 100, Original: 2, Imputed: 2},
			},
		},
	}

	var buf bytes.Buffer
	formatRunSummary(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "run-1234")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "Groups merged:")
	assert.Contains(t, out, "Fields imputed:")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "4 (3 active, 1 inactive)")
	assert.Contains(t, out, "zip_code:")
	assert.Contains(t, out, "100.0% (2 original, 2 imputed)")
}

func TestFormatRunSummary_Failed(t *testing.T) {
	res := &pipeline.Result{
		Run: model.Run{ID: "run-5678", Status: model.RunStatusFailed, Error: "pipeline: 2 invalid values"},
	}

	var buf bytes.Buffer
	formatRunSummary(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "pipeline: 2 invalid values")
	assert.NotContains(t, out, "Fields imputed:")
	assert.NotContains(t, out, "dry run")
}
