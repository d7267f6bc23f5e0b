package provenance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_Status(t *testing.T) {
	l := NewLedger()
	l.Record(Entry{ClinicID: 1, Field: "zip_code", Method: "neighbor-vote", Value: "60611"})

	assert.Equal(t, "imputed:neighbor-vote", l.Status(1, "zip_code", true))
	assert.Equal(t, StatusOriginal, l.Status(1, "clinic_type", true))
	assert.Equal(t, StatusOriginal, l.Status(2, "zip_code", true))
	assert.Equal(t, StatusEmpty, l.Status(2, "zip_code", false))
}

func TestLedger_RecordReplaces(t *testing.T) {
	l := NewLedger()
	l.Record(Entry{ClinicID: 1, Field: "google_rating", Method: "global-mean", Value: "3.9"})
	l.Record(Entry{ClinicID: 1, Field: "google_rating", Method: "cross-source-proxy", Value: "4.5"})

	e, ok := l.Lookup(1, "google_rating")
	require.True(t, ok)
	assert.Equal(t, "cross-source-proxy", e.Method)
	assert.Equal(t, 1, l.Len())
	assert.False(t, e.RecordedAt.IsZero())
}

func TestLedger_EntriesOrdered(t *testing.T) {
	l := NewLedger()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.Load([]Entry{
		{ClinicID: 2, Field: "zip_code", Method: "neighbor-vote", RecordedAt: ts},
		{ClinicID: 1, Field: "zip_code", Method: "neighbor-vote", RecordedAt: ts},
		{ClinicID: 1, Field: "clinic_type", Method: "default", RecordedAt: ts},
	})

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, int64(1), entries[0].ClinicID)
	assert.Equal(t, "clinic_type", entries[0].Field)
	assert.Equal(t, "zip_code", entries[1].Field)
	assert.Equal(t, int64(2), entries[2].ClinicID)
	assert.Equal(t, ts, entries[2].RecordedAt)
}

func TestLedger_MethodCountsAndForClinic(t *testing.T) {
	l := NewLedger()
	l.Record(Entry{ClinicID: 1, Field: "clinic_type", Method: "name-keyword"})
	l.Record(Entry{ClinicID: 2, Field: "clinic_type", Method: "name-keyword"})
	l.Record(Entry{ClinicID: 2, Field: "yelp_rating", Method: "cross-source-proxy"})

	counts := l.MethodCounts()
	assert.Equal(t, 2, counts["clinic_type"]["name-keyword"])
	assert.Equal(t, 1, counts["yelp_rating"]["cross-source-proxy"])

	fields := l.ForClinic(2)
	assert.Len(t, fields, 2)
	assert.Equal(t, "cross-source-proxy", fields["yelp_rating"].Method)
	assert.True(t, l.IsImputed(1, "clinic_type"))
	assert.False(t, l.IsImputed(1, "yelp_rating"))
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			l.Record(Entry{ClinicID: id, Field: "zip_code", Method: "neighbor-vote"})
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 50, l.Len())
}

func TestLedger_Delete(t *testing.T) {
	l := NewLedger()
	l.Record(Entry{ClinicID: 1, Field: "yelp_rating", Method: "global-mean"})
	l.Record(Entry{ClinicID: 1, Field: "zip_code", Method: "neighbor-vote"})

	assert.True(t, l.Delete(1, "yelp_rating"))
	assert.False(t, l.Delete(1, "yelp_rating"))
	assert.False(t, l.IsImputed(1, "yelp_rating"))
	assert.True(t, l.IsImputed(1, "zip_code"))
	assert.Equal(t, 1, l.Len())
}
