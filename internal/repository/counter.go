package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"example.com/baletrack/internal/db"
	"example.com/baletrack/internal/models"
)

// CounterRepository defines the interface for season counter access.
// The counter is the single source of sequential bale numbers; all
// mutations go through the conditional Increment.
type CounterRepository interface {
	Get(ctx context.Context, season string) (*models.SeasonCounter, error)
	// Increment advances the season counter by count, guarded by the
	// previously observed lastNumber. Returns ErrConflict if the row
	// changed concurrently; the caller must re-read and retry.
	Increment(ctx context.Context, season string, lastNumber, count int) error
	ResetAll(ctx context.Context) error
}

// counterRepository implements CounterRepository
type counterRepository struct {
	db *gorm.DB
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

// Get finds the counter row for a season, creating it lazily at zero
func (r *counterRepository) Get(ctx context.Context, season string) (*models.SeasonCounter, error) {
	var counter models.SeasonCounter
	err := r.db.WithContext(ctx).Where("season = ?", season).First(&counter).Error
	if err == nil {
		return &counter, nil
	}
	if !db.IsRecordNotFoundError(err) {
		return nil, err
	}

	counter = models.SeasonCounter{Season: season, LastNumber: 0}
	if err := r.db.WithContext(ctx).Create(&counter).Error; err != nil {
		// Another request created the row first; read theirs.
		if db.IsDuplicateKeyError(err) {
			var existing models.SeasonCounter
			if err := r.db.WithContext(ctx).Where("season = ?", season).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &counter, nil
}

// Increment performs the guarded read-modify-write on the counter row.
// The WHERE clause on last_number serializes concurrent allocations: only
// one of N racing updates matches the old value, the rest see zero rows
// affected and get ErrConflict.
func (r *counterRepository) Increment(ctx context.Context, season string, lastNumber, count int) error {
	res := r.db.WithContext(ctx).
		Model(&models.SeasonCounter{}).
		Where("season = ? AND last_number = ?", season, lastNumber).
		Update("last_number", lastNumber+count)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// ResetAll zeroes every season counter
func (r *counterRepository) ResetAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Model(&models.SeasonCounter{}).
		Where("1 = 1").
		Update("last_number", 0).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}
