package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/baletrack/internal/metrics"
	"example.com/baletrack/internal/repository"
)

const (
	// MaxAllocationCount bounds a single batch allocation
	MaxAllocationCount = 1000
	// allocatorMaxRetries bounds the internal retry on a lost race
	allocatorMaxRetries = 5
)

// AllocatorService issues unique, gapless sequential bale numbers per
// season. The counter row's conditional update serializes concurrent
// batch requests; on a lost race the whole allocate is retried from a
// fresh read, never returning a stale range.
type AllocatorService struct {
	counterRepo repository.CounterRepository
}

// NewAllocatorService creates a new allocator service
func NewAllocatorService(counterRepo repository.CounterRepository) *AllocatorService {
	return &AllocatorService{counterRepo: counterRepo}
}

// Allocate reserves count sequential numbers for a season and returns
// them as zero-padded 5 digit strings
func (s *AllocatorService) Allocate(ctx context.Context, season string, count int) ([]string, error) {
	if count < 1 || count > MaxAllocationCount {
		return nil, ErrInvalidCount
	}

	for attempt := 0; attempt < allocatorMaxRetries; attempt++ {
		counter, err := s.counterRepo.Get(ctx, season)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read season counter")
		}

		err = s.counterRepo.Increment(ctx, season, counter.LastNumber, count)
		if err == nil {
			numbers := make([]string, count)
			for i := 0; i < count; i++ {
				numbers[i] = fmt.Sprintf("%05d", counter.LastNumber+i+1)
			}
			return numbers, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, errors.Wrap(err, "failed to advance season counter")
		}

		metrics.GetMetricsCollector().IncrementCounter(metrics.CounterAllocatorRetries)
		log.Debug().
			Str("season", season).
			Int("attempt", attempt+1).
			Msg("Season counter update lost a race, retrying")
	}

	return nil, ErrTransient
}
