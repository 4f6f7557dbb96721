// Package model defines the shared types for the enrichment pipeline.
package model

import (
	"strings"
	"time"
)

// LookupKey is a normalized identifier derived from a raw record field.
type LookupKey string

// NoKey is the sentinel for records whose raw field yields no usable key.
// A record carrying NoKey is never sent to any source.
const NoKey LookupKey = ""

// IsNone reports whether the key is the no-key sentinel.
func (k LookupKey) IsNone() bool { return k == NoKey }

// SourceID identifies an external data source for provenance and priority.
type SourceID string

// Candidate is one source's proposed image result for a LookupKey.
type Candidate struct {
	URL    string   `json:"url"`
	Label  string   `json:"label,omitempty"`
	Source SourceID `json:"source"`
	Score  float64  `json:"score"`
}

// Valid reports whether the candidate carries a usable URL. Adapters must
// never emit invalid candidates; the ranker drops them defensively.
func (c Candidate) Valid() bool {
	return strings.TrimSpace(c.URL) != ""
}

// LookupResult is the terminal outcome for one LookupKey: either a single
// winning candidate or "not found". Not-found is a valid state, not an error.
type LookupResult struct {
	Found bool      `json:"found"`
	Best  Candidate `json:"best,omitzero"`
}

// Record is one input row as a column name → value mapping. Column order is
// carried by the enclosing Table, not by the Record itself.
type Record map[string]string

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r)+3)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Values returns the record's fields in the given column order. Missing
// columns yield empty strings.
func (r Record) Values(columns []string) []string {
	vals := make([]string, len(columns))
	for i, col := range columns {
		vals[i] = r[col]
	}
	return vals
}

// Table is an ordered set of records sharing one header.
type Table struct {
	Columns []string
	Rows    []Record
}

// HasColumn reports whether the table header contains the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Checkpoint marks how many input rows have been durably committed to the
// output. Extra fields in a persisted checkpoint are ignored on load so the
// format can grow without breaking older files.
type Checkpoint struct {
	ProcessedCount int `json:"processed_count"`
}

// RunStatus is the lifecycle state of one enrichment run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunSummary holds the per-run counters reported at completion.
type RunSummary struct {
	Total     int   `json:"total"`
	Processed int   `json:"processed"`
	Resolved  int   `json:"resolved"`
	NotFound  int   `json:"not_found"`
	NoKey     int   `json:"no_key"`
	Lookups   int64 `json:"lookups"`
	CacheHits int64 `json:"cache_hits"`

	// StoppedAt is the row index a fatal error stopped at, so a resume
	// attempt is well-defined. -1 when the run completed.
	StoppedAt int `json:"stopped_at"`
}

// Run is one enrichment run as persisted in the run-history store.
type Run struct {
	ID         string      `json:"id"`
	InputPath  string      `json:"input_path"`
	OutputPath string      `json:"output_path"`
	KeyColumn  string      `json:"key_column"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
