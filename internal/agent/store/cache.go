package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"example.com/baletrack/internal/models"
)

// CachedBale is a locally mirrored bale. OfflineUpdatedAt is set only
// while a local patch awaits server confirmation; confirmed records
// carry a nil marker.
type CachedBale struct {
	models.Bale
	OfflineUpdatedAt *time.Time `json:"_offlineUpdatedAt,omitempty"`
}

// ReplaceAll clears the mirror and rewrites it from an authoritative
// full fetch. This is the only path that removes stale records.
func (s *Store) ReplaceAll(ctx context.Context, bales []models.Bale) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bales`); err != nil {
		return err
	}
	for i := range bales {
		if err := insertConfirmed(ctx, tx, &bales[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertConfirmed(ctx context.Context, tx *sql.Tx, bale *models.Bale) error {
	payload, err := json.Marshal(bale)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bales (uuid, tag, status, plot, payload, offline_updated_at)
		 VALUES (?, ?, ?, ?, ?, NULL)
		 ON CONFLICT(uuid) DO UPDATE SET
			tag = excluded.tag,
			status = excluded.status,
			plot = excluded.plot,
			payload = excluded.payload,
			offline_updated_at = NULL`,
		bale.UUID, bale.Tag, string(bale.Status), bale.Plot, payload)
	return err
}

// Confirm overwrites one record wholesale with the authoritative server
// response, clearing any local pending marker. Tentative local state is
// replaced, never merged field by field.
func (s *Store) Confirm(ctx context.Context, bale *models.Bale) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertConfirmed(ctx, tx, bale); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAll returns every mirrored bale ordered by tag
func (s *Store) GetAll(ctx context.Context) ([]CachedBale, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload, offline_updated_at FROM bales ORDER BY tag ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bales []CachedBale
	for rows.Next() {
		bale, err := scanCached(rows)
		if err != nil {
			return nil, err
		}
		bales = append(bales, *bale)
	}
	return bales, rows.Err()
}

// GetByID returns one mirrored bale, or ErrNotFound
func (s *Store) GetByID(ctx context.Context, id string) (*CachedBale, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, offline_updated_at FROM bales WHERE uuid = ?`, id)
	bale, err := scanCached(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return bale, nil
}

// PatchStatus optimistically applies a status to a mirrored record and
// marks it as locally pending. Patches never delete; only ReplaceAll
// removes records.
func (s *Store) PatchStatus(ctx context.Context, id string, status models.BaleStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var payload []byte
	err = tx.QueryRowContext(ctx, `SELECT payload FROM bales WHERE uuid = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var bale models.Bale
	if err := json.Unmarshal(payload, &bale); err != nil {
		return err
	}
	bale.Status = status
	updated, err := json.Marshal(&bale)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`UPDATE bales SET status = ?, payload = ?, offline_updated_at = ? WHERE uuid = ?`,
		string(status), updated, now, id); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCached(row rowScanner) (*CachedBale, error) {
	var payload []byte
	var offlineAt sql.NullInt64
	if err := row.Scan(&payload, &offlineAt); err != nil {
		return nil, err
	}

	var cached CachedBale
	if err := json.Unmarshal(payload, &cached.Bale); err != nil {
		return nil, err
	}
	if offlineAt.Valid {
		ts := time.UnixMilli(offlineAt.Int64)
		cached.OfflineUpdatedAt = &ts
	}
	return &cached, nil
}
