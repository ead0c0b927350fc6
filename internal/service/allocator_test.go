package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/baletrack/internal/models"
	"example.com/baletrack/internal/repository"
)

// fakeCounterRepo emulates the database's conditional update: the
// increment only succeeds when the caller's last-read value still
// matches, exactly like the guarded UPDATE against the counter row.
type fakeCounterRepo struct {
	mu       sync.Mutex
	counters map[string]int
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counters: make(map[string]int)}
}

func (f *fakeCounterRepo) Get(ctx context.Context, season string) (*models.SeasonCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.SeasonCounter{Season: season, LastNumber: f.counters[season]}, nil
}

func (f *fakeCounterRepo) Increment(ctx context.Context, season string, lastNumber, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counters[season] != lastNumber {
		return repository.ErrConflict
	}
	f.counters[season] = lastNumber + count
	return nil
}

func (f *fakeCounterRepo) ResetAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for season := range f.counters {
		f.counters[season] = 0
	}
	return nil
}

func TestAllocateSequentialRange(t *testing.T) {
	allocator := NewAllocatorService(newFakeCounterRepo())

	numbers, err := allocator.Allocate(context.Background(), "25/26", 50)
	require.NoError(t, err)
	require.Len(t, numbers, 50)
	require.Equal(t, "00001", numbers[0])
	require.Equal(t, "00050", numbers[49])

	// A second batch continues the season counter regardless of plot.
	numbers, err = allocator.Allocate(context.Background(), "25/26", 10)
	require.NoError(t, err)
	require.Equal(t, "00051", numbers[0])
	require.Equal(t, "00060", numbers[9])
}

func TestAllocateSeasonsAreIndependent(t *testing.T) {
	allocator := NewAllocatorService(newFakeCounterRepo())

	first, err := allocator.Allocate(context.Background(), "24/25", 3)
	require.NoError(t, err)
	second, err := allocator.Allocate(context.Background(), "25/26", 3)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestAllocateCountBounds(t *testing.T) {
	allocator := NewAllocatorService(newFakeCounterRepo())

	_, err := allocator.Allocate(context.Background(), "25/26", 0)
	require.ErrorIs(t, err, ErrInvalidCount)

	_, err = allocator.Allocate(context.Background(), "25/26", -5)
	require.ErrorIs(t, err, ErrInvalidCount)

	_, err = allocator.Allocate(context.Background(), "25/26", MaxAllocationCount+1)
	require.ErrorIs(t, err, ErrInvalidCount)

	numbers, err := allocator.Allocate(context.Background(), "25/26", MaxAllocationCount)
	require.NoError(t, err)
	require.Len(t, numbers, MaxAllocationCount)
	require.Equal(t, "01000", numbers[len(numbers)-1])
}

// Twenty concurrent batches of five must issue exactly 100 unique
// sequential numbers, no matter how the calls interleave. Callers retry
// on a transient conflict, as the contract requires.
func TestAllocateConcurrentStress(t *testing.T) {
	allocator := NewAllocatorService(newFakeCounterRepo())

	const workers = 20
	const perWorker = 5

	results := make(chan []string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				numbers, err := allocator.Allocate(context.Background(), "25/26", perWorker)
				if err == ErrTransient {
					continue
				}
				require.NoError(t, err)
				results <- numbers
				return
			}
		}()
	}
	wg.Wait()
	close(results)

	var all []string
	for numbers := range results {
		// Each returned range is itself contiguous.
		require.Len(t, numbers, perWorker)
		all = append(all, numbers...)
	}

	sort.Strings(all)
	require.Len(t, all, workers*perWorker)
	for i, number := range all {
		require.Equal(t, fmt.Sprintf("%05d", i+1), number, "duplicate or gap in issued numbers")
	}
}
