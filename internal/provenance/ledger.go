// Package provenance records, per clinic and field, whether a value was
// observed or filled in by an imputation method.
package provenance

import (
	"sort"
	"sync"
	"time"
)

// Status values returned by Ledger.Status.
const (
	StatusOriginal = "original"
	StatusEmpty    = "empty"
	imputedPrefix  = "imputed:"
)

// ImputedStatus formats the status for a value filled by method.
func ImputedStatus(method string) string {
	return imputedPrefix + method
}

// Entry is one imputation record.
type Entry struct {
	ClinicID       int64     `json:"clinic_id" yaml:"clinic_id"`
	Field          string    `json:"field" yaml:"field"`
	Method         string    `json:"method" yaml:"method"`
	Value          string    `json:"value" yaml:"value"`
	DistanceMeters *float64  `json:"distance_meters,omitempty" yaml:"distance_meters,omitempty"`
	NeighborCount  int       `json:"neighbor_count,omitempty" yaml:"neighbor_count,omitempty"`
	Confidence     float64   `json:"confidence" yaml:"confidence"`
	RunID          string    `json:"run_id" yaml:"run_id"`
	RecordedAt     time.Time `json:"recorded_at" yaml:"recorded_at"`
}

type key struct {
	clinicID int64
	field    string
}

// Ledger holds the latest imputation entry per (clinic, field). It is safe
// for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries map[key]Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[key]Entry)}
}

// Record stores e, replacing any earlier entry for the same clinic and field.
func (l *Ledger) Record(e Entry) {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key{e.ClinicID, e.Field}] = e
}

// Delete removes the entry for a clinic field. It reports whether one existed.
func (l *Ledger) Delete(clinicID int64, field string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key{clinicID, field}
	_, ok := l.entries[k]
	delete(l.entries, k)
	return ok
}

// Load bulk-inserts entries read back from a store.
func (l *Ledger) Load(entries []Entry) {
	for _, e := range entries {
		l.Record(e)
	}
}

// Lookup returns the entry for a clinic field.
func (l *Ledger) Lookup(clinicID int64, field string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[key{clinicID, field}]
	return e, ok
}

// IsImputed reports whether the clinic field was filled by imputation.
func (l *Ledger) IsImputed(clinicID int64, field string) bool {
	_, ok := l.Lookup(clinicID, field)
	return ok
}

// Status tags the current value of a field: "original" when present and
// observed, "imputed:<method>" when present and filled, "empty" otherwise.
func (l *Ledger) Status(clinicID int64, field string, present bool) string {
	if !present {
		return StatusEmpty
	}
	if e, ok := l.Lookup(clinicID, field); ok {
		return ImputedStatus(e.Method)
	}
	return StatusOriginal
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns every entry ordered by clinic ID and field.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ClinicID != out[j].ClinicID {
			return out[i].ClinicID < out[j].ClinicID
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// ForClinic returns the entries for one clinic keyed by field.
func (l *Ledger) ForClinic(clinicID int64) map[string]Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]Entry)
	for k, e := range l.entries {
		if k.clinicID == clinicID {
			out[k.field] = e
		}
	}
	return out
}

// MethodCounts tallies entries by field and method.
func (l *Ledger) MethodCounts() map[string]map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]map[string]int)
	for k, e := range l.entries {
		if out[k.field] == nil {
			out[k.field] = make(map[string]int)
		}
		out[k.field][e.Method]++
	}
	return out
}
