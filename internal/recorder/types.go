// Package recorder provides run snapshotting and retrieval for the
// simulator and Kalman filter: compressed, queryable history of a
// run's diagnostic event timeline and filter step sequence.
package recorder

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Trigger describes what caused a record to be created.
type Trigger string

const (
	TriggerManual      Trigger = "manual"       // explicit API call
	TriggerPeriodic    Trigger = "periodic"     // every N events
	TriggerRunComplete Trigger = "run-complete" // simulator run finished
	TriggerShutdown    Trigger = "shutdown"     // graceful shutdown
)

// Record is a point-in-time snapshot of a run, persisted compressed.
type Record struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Trigger   Trigger   `json:"trigger"`
	Note      string    `json:"note,omitempty"`

	Snapshot *Snapshot `json:"snapshot"`

	ByteSize   int64 `json:"byte_size"`   // compressed size
	EventCount int   `json:"event_count"` // diagnostic events captured
	StepCount  int   `json:"step_count"`  // filter steps captured
}

// Snapshot holds the actual restorable/inspectable data.
type Snapshot struct {
	Events      []EventSnapshot `json:"events,omitempty"`
	FilterSteps []StepSnapshot  `json:"filter_steps,omitempty"`
}

// EventSnapshot is a captured diag.Event, decoupled from the diag
// package's types so the persisted format is independent of any
// particular in-memory event representation.
type EventSnapshot struct {
	Source string         `json:"source"`
	Kind   string         `json:"kind"`
	Tm     time.Time      `json:"tm"`
	Data   map[string]any `json:"data,omitempty"`
}

// StepSnapshot is a captured kalman.ExtState, with matrices flattened
// to plain float64 slices for JSON round-tripping.
type StepSnapshot struct {
	StepNo uint32    `json:"step_no"`
	Tm     time.Time `json:"tm"`

	X [][]float64 `json:"x"` // n x 1
	P [][]float64 `json:"p"` // n x n, symmetric

	K [][]float64 `json:"k,omitempty"` // n x m_k, nil if no observation applied

	ObsIndex         int    `json:"obs_index"` // -1 for batched correction
	NumericalFailure bool   `json:"numerical_failure,omitempty"`
	FailureReason    string `json:"failure_reason,omitempty"`
}

// Summary returns a human-readable one-line description of the record.
func (r *Record) Summary() string {
	return r.ID.String()[:8] + " | " +
		r.CreatedAt.Format("2006-01-02 15:04:05") + " | " +
		string(r.Trigger) + " | " +
		formatCount(r.EventCount, "event") + ", " +
		formatCount(r.StepCount, "step")
}

func formatCount(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
