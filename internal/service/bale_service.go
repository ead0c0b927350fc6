package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/baletrack/internal/auth"
	"example.com/baletrack/internal/cache"
	"example.com/baletrack/internal/metrics"
	"example.com/baletrack/internal/models"
	"example.com/baletrack/internal/notifier"
	"example.com/baletrack/internal/repository"
	"example.com/baletrack/internal/tracing"
)

// WipeConfirmation is the sentinel a caller must echo to run the bulk wipe
const WipeConfirmation = "ERASE-ALL-BALES"

// transitionMaxRetries bounds the re-read on a lost status race
const transitionMaxRetries = 3

// BaleService handles bale lifecycle business logic
type BaleService struct {
	baleRepo    repository.BaleRepository
	counterRepo repository.CounterRepository
	allocator   *AllocatorService
	cache       cache.CacheClient
	registry    *notifier.Registry
	tracer      tracing.Tracer
}

// NewBaleService creates a new bale service
func NewBaleService(
	baleRepo repository.BaleRepository,
	counterRepo repository.CounterRepository,
	cacheClient cache.CacheClient,
	registry *notifier.Registry,
	tracer tracing.Tracer,
) *BaleService {
	return &BaleService{
		baleRepo:    baleRepo,
		counterRepo: counterRepo,
		allocator:   NewAllocatorService(counterRepo),
		cache:       cacheClient,
		registry:    registry,
		tracer:      tracer,
	}
}

// CreateBatch allocates sequential numbers for a season and inserts one
// bale per number. Duplicate tags are skipped and reported, not fatal.
func (s *BaleService) CreateBatch(ctx context.Context, actor auth.Actor, req *models.CreateBatchRequest) (*models.CreateBatchResponse, error) {
	if !auth.Authorized(auth.RoleField, actor.Roles) {
		return nil, ErrForbidden
	}

	txn := s.tracer.StartTransaction("create-bale-batch")
	defer s.tracer.EndTransaction(txn)

	allocSpan := s.tracer.StartSpan("allocate-numbers", txn)
	numbers, err := s.allocator.Allocate(ctx, req.Season, req.Count)
	allocSpan.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	now := time.Now()
	bales := make([]*models.Bale, 0, len(numbers))
	tags := make([]string, 0, len(numbers))
	for _, number := range numbers {
		tag := models.BaleTag(req.Season, req.Plot, number)
		bales = append(bales, &models.Bale{
			Base: models.Base{
				UUID:      uuid.New().String(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			Tag:       tag,
			Season:    req.Season,
			Plot:      req.Plot,
			Number:    number,
			Status:    models.StatusField,
			CreatedBy: actor.ID,
			UpdatedBy: actor.ID,
		})
		tags = append(tags, tag)
	}

	insertSpan := s.tracer.StartSpan("insert-bales", txn)
	created, skipped, err := s.baleRepo.CreateBatch(ctx, bales)
	insertSpan.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to insert bale batch")
	}

	s.afterMutation(ctx)
	metrics.GetMetricsCollector().AddToCounter(metrics.CounterBalesCreated, int64(created))

	log.Info().
		Str("season", req.Season).
		Str("plot", req.Plot).
		Int("created", created).
		Int("skipped", skipped).
		Str("actor", actor.ID).
		Msg("Bale batch created")

	return &models.CreateBatchResponse{
		Created: created,
		Skipped: skipped,
		Tags:    tags,
	}, nil
}

// Transition moves a bale along the lifecycle. The status guard in the
// repository makes the read-check-write atomic per record; a lost race
// triggers a bounded re-read rather than a stale apply.
func (s *BaleService) Transition(ctx context.Context, actor auth.Actor, baleID string, target models.BaleStatus) (*models.Bale, error) {
	txn := s.tracer.StartTransaction("bale-transition")
	defer s.tracer.EndTransaction(txn)

	for attempt := 0; attempt < transitionMaxRetries; attempt++ {
		bale, err := s.baleRepo.FindByID(ctx, baleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, errors.Wrap(err, "failed to load bale")
		}

		if err := ValidateTransition(bale.Status, target); err != nil {
			metrics.GetMetricsCollector().IncrementCounter(metrics.CounterTransitionsRejected)
			return nil, err
		}

		required, _ := RequiredRole(target)
		if !auth.Authorized(required, actor.Roles) {
			return nil, ErrForbidden
		}

		updated, err := s.baleRepo.UpdateStatus(ctx, repository.StatusChange{
			BaleID:    baleID,
			From:      bale.Status,
			To:        target,
			Actor:     actor.ID,
			Timestamp: time.Now(),
		})
		if err == nil {
			s.afterMutation(ctx)
			metrics.GetMetricsCollector().IncrementCounter(metrics.CounterTransitionsApplied)

			log.Info().
				Str("bale", updated.Tag).
				Str("from", string(bale.Status)).
				Str("to", string(target)).
				Str("actor", actor.ID).
				Msg("Bale status updated")
			return updated, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			s.tracer.RecordError(txn, err)
			return nil, errors.Wrap(err, "failed to update bale status")
		}

		// Someone else moved the record between the read and the guarded
		// update; re-read and re-validate against the fresh status.
		log.Debug().
			Str("bale", baleID).
			Int("attempt", attempt+1).
			Msg("Status update lost a race, re-validating")
	}

	return nil, ErrTransient
}

// Get returns a single bale with its history
func (s *BaleService) Get(ctx context.Context, id string) (*models.Bale, error) {
	bale, err := s.baleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return bale, nil
}

// List returns bales matching the filter, served from the warm cache
// when possible
func (s *BaleService) List(ctx context.Context, filter repository.ListFilter) ([]models.Bale, error) {
	key := cache.ListKey(string(filter.Status), filter.Plot, filter.Season)
	if bales, err := s.cache.GetBales(ctx, key); err == nil {
		return bales, nil
	}

	bales, err := s.baleRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bales")
	}

	if err := s.cache.SetBales(ctx, key, bales); err != nil {
		log.Warn().Err(err).Msg("Failed to cache bale listing")
	}
	return bales, nil
}

// WipeAll removes every bale and resets every season counter. Requires
// the superadmin role and the exact confirmation sentinel.
func (s *BaleService) WipeAll(ctx context.Context, actor auth.Actor, confirm string) (int64, error) {
	if !actor.HasRole(auth.RoleSuperadmin) {
		return 0, ErrForbidden
	}
	if confirm != WipeConfirmation {
		return 0, ErrBadConfirmation
	}

	deleted, err := s.baleRepo.WipeAll(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to wipe bales")
	}
	if err := s.counterRepo.ResetAll(ctx); err != nil {
		return 0, errors.Wrap(err, "failed to reset season counters")
	}

	s.afterMutation(ctx)

	log.Warn().
		Int64("deleted", deleted).
		Str("actor", actor.ID).
		Msg("All bales wiped and counters reset")
	return deleted, nil
}

// afterMutation runs the post-commit side effects shared by every write
// path: cache invalidation, then exactly one change publish.
func (s *BaleService) afterMutation(ctx context.Context) {
	if err := s.cache.InvalidateBales(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate bale cache")
	}
	s.registry.Publish(notifier.EventBaleUpdate)
	metrics.GetMetricsCollector().IncrementCounter(metrics.CounterEventsPublished)
}
