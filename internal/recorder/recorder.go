package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/xoreactor/xo-reactor/internal/diag"
	"github.com/xoreactor/xo-reactor/internal/kalman"
)

// Config configures automatic recording.
type Config struct {
	// PeriodicEvents triggers a record every N diagnostic events
	// accumulated since the last record (0 disables periodic recording).
	PeriodicEvents int
}

// Recorder accumulates a run's diagnostic events and filter steps and
// periodically (or on demand) persists a snapshot via Store.
type Recorder struct {
	store *Store
	log   *slog.Logger

	periodicEvents int

	mu          sync.Mutex
	events      []EventSnapshot
	filterSteps []StepSnapshot
	eventsSince int
}

// New creates a Recorder backed by store. log may be nil.
func New(store *Store, cfg Config, log *slog.Logger) *Recorder {
	return &Recorder{
		store:          store,
		log:            log,
		periodicEvents: cfg.PeriodicEvents,
	}
}

// Run subscribes to bus and accumulates every published event until
// ctx is cancelled, at which point it unsubscribes and returns. Call
// this in its own goroutine.
func (r *Recorder) Run(ctx context.Context, bus *diag.Bus) {
	ch := bus.Subscribe(256)
	defer func() {
		if dropped := bus.Dropped(ch); dropped > 0 && r.log != nil {
			r.log.Warn("recorder missed events: buffer full, record is incomplete", "dropped", dropped)
		}
		bus.Unsubscribe(ch)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			r.observeEvent(ev)
		}
	}
}

func (r *Recorder) observeEvent(ev diag.Event) {
	r.mu.Lock()
	r.events = append(r.events, eventSnapshotFrom(ev))
	r.eventsSince++
	shouldRecord := r.periodicEvents > 0 && r.eventsSince >= r.periodicEvents
	if shouldRecord {
		r.eventsSince = 0
	}
	r.mu.Unlock()

	if shouldRecord {
		if _, err := r.Create(TriggerPeriodic, ""); err != nil && r.log != nil {
			r.log.Error("periodic record failed", "error", err)
		}
	}
}

// ObserveStep records a completed filter step, to be included in the
// next snapshot.
func (r *Recorder) ObserveStep(s *kalman.ExtState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filterSteps = append(r.filterSteps, stepSnapshotFrom(s))
}

// Create persists a snapshot of everything observed so far, with
// trigger and an optional note, and returns the resulting record.
func (r *Recorder) Create(trigger Trigger, note string) (*Record, error) {
	r.mu.Lock()
	snapshot := &Snapshot{
		Events:      append([]EventSnapshot(nil), r.events...),
		FilterSteps: append([]StepSnapshot(nil), r.filterSteps...),
	}
	r.mu.Unlock()

	rec, err := r.store.Create(trigger, note, snapshot)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	if r.log != nil {
		r.log.Info("record created",
			"id", rec.ID.String()[:8],
			"trigger", trigger,
			"events", rec.EventCount,
			"steps", rec.StepCount,
			"bytes", rec.ByteSize,
		)
	}

	return rec, nil
}

// CreateRunComplete persists a record tagged as produced by a
// finished simulator run.
func (r *Recorder) CreateRunComplete(note string) (*Record, error) {
	return r.Create(TriggerRunComplete, note)
}

// CreateShutdown persists a record during graceful shutdown.
func (r *Recorder) CreateShutdown() (*Record, error) {
	return r.Create(TriggerShutdown, "graceful shutdown")
}

// Get retrieves a record by ID.
func (r *Recorder) Get(id uuid.UUID) (*Record, error) {
	return r.store.Get(id)
}

// List returns recent records.
func (r *Recorder) List(limit int) ([]*Record, error) {
	return r.store.List(limit)
}

// Latest returns the most recent record.
func (r *Recorder) Latest() (*Record, error) {
	return r.store.Latest()
}

// Delete removes a record.
func (r *Recorder) Delete(id uuid.UUID) error {
	return r.store.Delete(id)
}
