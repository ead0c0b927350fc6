package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"example.com/baletrack/internal/db"
	"example.com/baletrack/internal/models"
)

// ListFilter narrows a bale listing
type ListFilter struct {
	Status models.BaleStatus
	Plot   string
	Season string
}

// StatusChange describes a conditional status update on one bale
type StatusChange struct {
	BaleID    string
	From      models.BaleStatus
	To        models.BaleStatus
	Actor     string
	Timestamp time.Time
}

// BaleRepository defines the interface for bale persistence
type BaleRepository interface {
	// CreateBatch inserts bales one by one inside a transaction, skipping
	// tags that already exist. Returns created and skipped counts.
	CreateBatch(ctx context.Context, bales []*models.Bale) (created, skipped int, err error)
	FindByID(ctx context.Context, id string) (*models.Bale, error)
	FindByTag(ctx context.Context, tag string) (*models.Bale, error)
	List(ctx context.Context, filter ListFilter) ([]models.Bale, error)
	// UpdateStatus applies a status change guarded by the bale's current
	// status, stamping actor and timestamps and appending the history
	// entry in the same transaction. Returns ErrConflict when the guard
	// misses (the record is no longer at change.From).
	UpdateStatus(ctx context.Context, change StatusChange) (*models.Bale, error)
	// WipeAll deletes every bale and history entry. Returns the number of
	// bales removed.
	WipeAll(ctx context.Context) (int64, error)
}

// baleRepository implements BaleRepository
type baleRepository struct {
	db *gorm.DB
}

// NewBaleRepository creates a new bale repository
func NewBaleRepository(db *gorm.DB) BaleRepository {
	return &baleRepository{db: db}
}

// CreateBatch inserts a batch of bales, skipping duplicate tags
func (r *baleRepository) CreateBatch(ctx context.Context, bales []*models.Bale) (int, int, error) {
	created, skipped := 0, 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, bale := range bales {
			var count int64
			if err := tx.Model(&models.Bale{}).Where("tag = ?", bale.Tag).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				skipped++
				continue
			}
			if err := tx.Create(bale).Error; err != nil {
				if db.IsDuplicateKeyError(err) {
					skipped++
					continue
				}
				return err
			}
			entry := models.BaleStatusEntry{
				BaleUUID:  bale.UUID,
				Seq:       1,
				Status:    bale.Status,
				Actor:     bale.CreatedBy,
				Timestamp: bale.CreatedAt,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, skipped, nil
}

// FindByID finds a bale by UUID, with its status history
func (r *baleRepository) FindByID(ctx context.Context, id string) (*models.Bale, error) {
	var bale models.Bale
	err := r.db.WithContext(ctx).
		Preload("StatusHistory", func(tx *gorm.DB) *gorm.DB { return tx.Order("seq ASC") }).
		Where("uuid = ?", id).
		First(&bale).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bale, nil
}

// FindByTag finds a bale by its composite tag
func (r *baleRepository) FindByTag(ctx context.Context, tag string) (*models.Bale, error) {
	var bale models.Bale
	err := r.db.WithContext(ctx).
		Preload("StatusHistory", func(tx *gorm.DB) *gorm.DB { return tx.Order("seq ASC") }).
		Where("tag = ?", tag).
		First(&bale).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bale, nil
}

// List returns bales matching the filter, ordered by tag
func (r *baleRepository) List(ctx context.Context, filter ListFilter) ([]models.Bale, error) {
	query := r.db.WithContext(ctx).Model(&models.Bale{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Plot != "" {
		query = query.Where("plot = ?", filter.Plot)
	}
	if filter.Season != "" {
		query = query.Where("season = ?", filter.Season)
	}

	var bales []models.Bale
	if err := query.Order("tag ASC").Find(&bales).Error; err != nil {
		return nil, err
	}
	return bales, nil
}

// UpdateStatus applies the conditional status change
func (r *baleRepository) UpdateStatus(ctx context.Context, change StatusChange) (*models.Bale, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     change.To,
			"updated_by": change.Actor,
			"updated_at": change.Timestamp,
		}
		switch change.To {
		case models.StatusYard:
			updates["transported_by"] = change.Actor
			updates["transported_at"] = change.Timestamp
		case models.StatusProcessed:
			updates["processed_by"] = change.Actor
			updates["processed_at"] = change.Timestamp
		}

		// The status guard makes the read-check-write atomic per record:
		// a concurrent transition that got in first leaves this update
		// matching zero rows.
		res := tx.Model(&models.Bale{}).
			Where("uuid = ? AND status = ?", change.BaleID, change.From).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		var seq int64
		if err := tx.Model(&models.BaleStatusEntry{}).
			Where("bale_uuid = ?", change.BaleID).
			Count(&seq).Error; err != nil {
			return err
		}
		entry := models.BaleStatusEntry{
			BaleUUID:  change.BaleID,
			Seq:       int(seq) + 1,
			Status:    change.To,
			Actor:     change.Actor,
			Timestamp: change.Timestamp,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, change.BaleID)
}

// WipeAll removes every bale and history entry
func (r *baleRepository) WipeAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Bale{}).Count(&deleted).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.BaleStatusEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.Bale{}).Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
