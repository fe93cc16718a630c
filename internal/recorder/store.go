package recorder

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// createdAtLayout stores created_at as fixed-width UTC text with
// nanosecond precision, so string comparison and ORDER BY follow time
// order even for records created within the same second.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store handles record persistence: gzip-compressed JSON snapshots in
// SQLite, indexed by creation time and trigger for cheap listing.
type Store struct {
	db *sql.DB
}

// NewStore creates a record store using the given database, creating
// its schema if absent.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			trigger TEXT NOT NULL,
			note TEXT,
			snapshot_gz BLOB NOT NULL,
			byte_size INTEGER NOT NULL,
			event_count INTEGER NOT NULL,
			step_count INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_created
			ON records(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_records_trigger
			ON records(trigger);
	`)
	return err
}

// Create saves a new record and returns it with ID populated.
func (s *Store) Create(trigger Trigger, note string, snapshot *Snapshot) (*Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(snapshotJSON); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}

	compressed := buf.Bytes()
	now := time.Now().UTC()

	rec := &Record{
		ID:         id,
		CreatedAt:  now,
		Trigger:    trigger,
		Note:       note,
		Snapshot:   snapshot,
		ByteSize:   int64(len(compressed)),
		EventCount: len(snapshot.Events),
		StepCount:  len(snapshot.FilterSteps),
	}

	_, err = s.db.Exec(`
		INSERT INTO records (id, created_at, trigger, note, snapshot_gz, byte_size, event_count, step_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id.String(), now.Format(createdAtLayout), trigger, note, compressed, rec.ByteSize, rec.EventCount, rec.StepCount)
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}

	return rec, nil
}

// Get retrieves a record by ID, including the full snapshot.
func (s *Store) Get(id uuid.UUID) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, trigger, note, snapshot_gz, byte_size, event_count, step_count
		FROM records WHERE id = ?
	`, id.String())

	return s.scanFull(row)
}

// List returns records ordered by creation time (newest first),
// without the snapshot body, to keep the response small.
func (s *Store) List(limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, trigger, note, byte_size, event_count, step_count
		FROM records
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := s.scanMeta(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Latest returns the most recent record, or nil if none exist.
func (s *Store) Latest() (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, trigger, note, snapshot_gz, byte_size, event_count, step_count
		FROM records
		ORDER BY created_at DESC
		LIMIT 1
	`)

	rec, err := s.scanFull(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// Delete removes a record by ID.
func (s *Store) Delete(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM records WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("record not found: %s", id)
	}
	return nil
}

// Prune removes periodic records older than olderThan, keeping at
// least minKeep of them. Records from any other trigger — manual,
// run-complete, shutdown — are never touched regardless of age: a
// periodic snapshot exists only to bound how much of a long run's
// history is lost if nothing else gets recorded, so it's disposable
// once newer ones exist, but a manual/run-complete/shutdown record was
// asked for deliberately and is a milestone a caller may come back to
// specifically by trigger (see ListByTrigger), not recoverable churn.
func (s *Store) Prune(olderThan time.Duration, minKeep int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	var periodicTotal int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE trigger = ?`, TriggerPeriodic).Scan(&periodicTotal)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	if periodicTotal <= minKeep {
		return 0, nil
	}

	result, err := s.db.Exec(`
		DELETE FROM records
		WHERE id IN (
			SELECT id FROM records
			WHERE trigger = ? AND created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, TriggerPeriodic, cutoff.Format(createdAtLayout), periodicTotal-minKeep)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

// ListByTrigger returns records produced by the given trigger, newest
// first, without the snapshot body. Lets a caller pull up just the
// durable milestones (e.g. every run-complete record) without wading
// through periodic noise, and is the reason records carry a
// trigger-indexed column in the first place.
func (s *Store) ListByTrigger(trigger Trigger, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, trigger, note, byte_size, event_count, step_count
		FROM records
		WHERE trigger = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, trigger, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := s.scanMeta(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) scanFull(row *sql.Row) (*Record, error) {
	var rec Record
	var idStr, createdStr, triggerStr string
	var note sql.NullString
	var snapshotGz []byte

	err := row.Scan(&idStr, &createdStr, &triggerStr, &note, &snapshotGz, &rec.ByteSize, &rec.EventCount, &rec.StepCount)
	if err != nil {
		return nil, err
	}

	rec.ID, _ = uuid.Parse(idStr)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	rec.Trigger = Trigger(triggerStr)
	if note.Valid {
		rec.Note = note.String
	}

	gr, err := gzip.NewReader(bytes.NewReader(snapshotGz))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()

	snapshotJSON, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	if err := json.Unmarshal(snapshotJSON, &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &rec, nil
}

func (s *Store) scanMeta(rows *sql.Rows) (*Record, error) {
	var rec Record
	var idStr, createdStr, triggerStr string
	var note sql.NullString

	err := rows.Scan(&idStr, &createdStr, &triggerStr, &note, &rec.ByteSize, &rec.EventCount, &rec.StepCount)
	if err != nil {
		return nil, err
	}

	rec.ID, _ = uuid.Parse(idStr)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	rec.Trigger = Trigger(triggerStr)
	if note.Valid {
		rec.Note = note.String
	}

	return &rec, nil
}
