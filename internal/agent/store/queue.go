package store

import (
	"context"
	"time"

	"example.com/baletrack/internal/models"
)

// QueueEntry is one pending write intent awaiting sync
type QueueEntry struct {
	RecordID     string
	TargetStatus models.BaleStatus
	EnqueuedAt   time.Time
}

// Enqueue records a write intent. A later enqueue for the same record
// supersedes the pending one in place: the target is overwritten but
// the entry keeps its position, so the order of other entries is
// untouched.
func (s *Store) Enqueue(ctx context.Context, recordID string, target models.BaleStatus) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO offline_queue (record_id, target_status, enqueued_at, position)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM offline_queue))
		 ON CONFLICT(record_id) DO UPDATE SET
			target_status = excluded.target_status,
			enqueued_at = excluded.enqueued_at`,
		recordID, string(target), time.Now().UnixMilli())
	return err
}

// ListPending returns all queued intents in enqueue order
func (s *Store) ListPending(ctx context.Context) ([]QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, target_status, enqueued_at FROM offline_queue ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		var entry QueueEntry
		var target string
		var enqueuedAt int64
		if err := rows.Scan(&entry.RecordID, &target, &enqueuedAt); err != nil {
			return nil, err
		}
		entry.TargetStatus = models.BaleStatus(target)
		entry.EnqueuedAt = time.UnixMilli(enqueuedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear removes the pending entry for a record once sync confirmed it
func (s *Store) Clear(ctx context.Context, recordID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM offline_queue WHERE record_id = ?`, recordID)
	return err
}

// PendingCount returns the number of queued intents
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offline_queue`).Scan(&count)
	return count, err
}
