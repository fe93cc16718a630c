package recorder

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	tmpDB, err := os.CreateTemp("", "recorder-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	tmpDB.Close()
	t.Cleanup(func() { os.Remove(tmpDB.Name()) })

	db, err := sql.Open("sqlite3", tmpDB.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Events: []EventSnapshot{
			{Source: "simulator", Kind: "source_added", Tm: time.Now().UTC(), Data: map[string]any{"source_name": "a"}},
			{Source: "simulator", Kind: "deliver_one", Tm: time.Now().UTC(), Data: map[string]any{"n_event": float64(1)}},
		},
		FilterSteps: []StepSnapshot{
			{StepNo: 1, Tm: time.Now().UTC(), X: [][]float64{{10.0}}, P: [][]float64{{0.5}}, ObsIndex: -1},
		},
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	snap := sampleSnapshot()
	rec, err := store.Create(TriggerManual, "test note", snap)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.EventCount != 2 {
		t.Fatalf("EventCount = %d, want 2", rec.EventCount)
	}
	if rec.StepCount != 1 {
		t.Fatalf("StepCount = %d, want 1", rec.StepCount)
	}
	if rec.ByteSize == 0 {
		t.Fatal("ByteSize should be nonzero")
	}

	got, err := store.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Note != "test note" {
		t.Fatalf("Note = %q, want %q", got.Note, "test note")
	}
	if len(got.Snapshot.Events) != 2 {
		t.Fatalf("round-tripped Events len = %d, want 2", len(got.Snapshot.Events))
	}
	if len(got.Snapshot.FilterSteps) != 1 {
		t.Fatalf("round-tripped FilterSteps len = %d, want 1", len(got.Snapshot.FilterSteps))
	}
	if got.Snapshot.FilterSteps[0].X[0][0] != 10.0 {
		t.Fatalf("round-tripped X = %v, want [[10.0]]", got.Snapshot.FilterSteps[0].X)
	}
}

func TestStoreListOrdersNewestFirst(t *testing.T) {
	db := openTestDB(t)
	store, _ := NewStore(db)

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := store.Create(TriggerManual, "", &Snapshot{})
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		ids = append(ids, rec.ID.String())
		time.Sleep(time.Millisecond) // ensure distinct created_at for ordering
	}

	list, err := store.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List returned %d records, want 3", len(list))
	}
	if list[0].ID.String() != ids[2] {
		t.Fatal("List should order newest first")
	}
	if list[0].Snapshot != nil {
		t.Fatal("List should not populate Snapshot (metadata-only)")
	}
}

func TestStoreLatestEmpty(t *testing.T) {
	db := openTestDB(t)
	store, _ := NewStore(db)

	rec, err := store.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rec != nil {
		t.Fatal("Latest on empty store should return nil, nil")
	}
}

func TestStoreDeleteNotFound(t *testing.T) {
	db := openTestDB(t)
	store, _ := NewStore(db)

	if err := store.Delete(uuid.New()); err == nil {
		t.Fatal("expected error deleting a nonexistent record")
	}
}

func TestStorePruneKeepsMinimum(t *testing.T) {
	db := openTestDB(t)
	store, _ := NewStore(db)

	for i := 0; i < 5; i++ {
		if _, err := store.Create(TriggerPeriodic, "", &Snapshot{}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	deleted, err := store.Prune(0, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("Prune deleted %d, want 3 (keeping minKeep=2 of 5)", deleted)
	}

	list, err := store.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("remaining records = %d, want 2", len(list))
	}
}

func TestStorePruneNeverTouchesNonPeriodic(t *testing.T) {
	db := openTestDB(t)
	store, _ := NewStore(db)

	for i := 0; i < 5; i++ {
		if _, err := store.Create(TriggerPeriodic, "", &Snapshot{}); err != nil {
			t.Fatalf("Create periodic %d: %v", i, err)
		}
	}
	if _, err := store.Create(TriggerManual, "", &Snapshot{}); err != nil {
		t.Fatalf("Create manual: %v", err)
	}
	if _, err := store.Create(TriggerRunComplete, "", &Snapshot{}); err != nil {
		t.Fatalf("Create run-complete: %v", err)
	}
	if _, err := store.Create(TriggerShutdown, "", &Snapshot{}); err != nil {
		t.Fatalf("Create shutdown: %v", err)
	}

	// minKeep=0 would delete every periodic record if Prune were
	// trigger-agnostic; it must still leave the other three alone.
	deleted, err := store.Prune(0, 0)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 5 {
		t.Fatalf("Prune deleted %d, want 5 (all periodic records)", deleted)
	}

	for _, trig := range []Trigger{TriggerManual, TriggerRunComplete, TriggerShutdown} {
		list, err := store.ListByTrigger(trig, 10)
		if err != nil {
			t.Fatalf("ListByTrigger(%s): %v", trig, err)
		}
		if len(list) != 1 {
			t.Errorf("ListByTrigger(%s) = %d records, want 1 (Prune must not touch non-periodic records)", trig, len(list))
		}
	}

	periodic, err := store.ListByTrigger(TriggerPeriodic, 10)
	if err != nil {
		t.Fatalf("ListByTrigger(periodic): %v", err)
	}
	if len(periodic) != 0 {
		t.Errorf("ListByTrigger(periodic) = %d records, want 0 after full prune", len(periodic))
	}
}
