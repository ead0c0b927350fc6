// Package agent is the client-side core of the bale tracker: a durable
// cache and offline queue over the on-device store, a write gateway
// that never loses an operator action, and a sync coordinator that
// reconciles queued intents when connectivity returns.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"example.com/baletrack/internal/agent/remote"
	"example.com/baletrack/internal/agent/store"
)

// Mode is the coordinator's view of connectivity
type Mode string

const (
	// ModeUnknown is the state before the first probe or signal
	ModeUnknown Mode = "unknown"
	// ModeOnline means the server was reachable last we knew
	ModeOnline Mode = "online"
	// ModeOffline means writes must route through the offline queue
	ModeOffline Mode = "offline"
)

// DrainReport aggregates the outcome of one queue drain
type DrainReport struct {
	Applied        int `json:"applied"`
	AlreadyApplied int `json:"already_applied"`
	Conflicts      int `json:"conflicts"`
	Failed         int `json:"failed"`
	Remaining      int `json:"remaining"`
}

// Coordinator owns the connectivity state machine and the queue drain.
// Drains are single-flight: a drain requested while one is running
// shares its result instead of running in parallel.
type Coordinator struct {
	store  *store.Store
	client remote.Client

	mu   sync.Mutex
	mode Mode

	drainGroup singleflight.Group
	scheduler  gocron.Scheduler
}

// NewCoordinator creates a sync coordinator in the unknown mode
func NewCoordinator(st *store.Store, client remote.Client) *Coordinator {
	return &Coordinator{
		store:  st,
		client: client,
		mode:   ModeUnknown,
	}
}

// Mode returns the current connectivity mode
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Coordinator) setMode(mode Mode) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == mode {
		return false
	}
	log.Info().Str("from", string(c.mode)).Str("to", string(mode)).Msg("Connectivity changed")
	c.mode = mode
	return true
}

// SetOnline feeds an edge-triggered connectivity signal into the state
// machine. The offline→online edge drains the queue before returning;
// the →offline edge only flips the mode.
func (c *Coordinator) SetOnline(ctx context.Context, online bool) (*DrainReport, error) {
	if !online {
		c.setMode(ModeOffline)
		return nil, nil
	}
	if !c.setMode(ModeOnline) {
		return nil, nil
	}
	return c.Drain(ctx)
}

// Drain replays every pending intent in enqueue order. One entry's
// application failure does not abort the drain; a network failure does,
// flipping the coordinator offline with the rest still queued.
func (c *Coordinator) Drain(ctx context.Context) (*DrainReport, error) {
	result, err, _ := c.drainGroup.Do("drain", func() (interface{}, error) {
		return c.drain(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*DrainReport), nil
}

func (c *Coordinator) drain(ctx context.Context) (*DrainReport, error) {
	entries, err := c.store.ListPending(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending queue")
	}

	report := &DrainReport{}
	for _, entry := range entries {
		if err := c.replay(ctx, entry, report); err != nil {
			// Transport failure: stop here, everything else stays queued.
			c.setMode(ModeOffline)
			break
		}
	}

	remaining, err := c.store.PendingCount(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count pending queue")
	}
	report.Remaining = remaining

	log.Info().
		Int("applied", report.Applied).
		Int("already_applied", report.AlreadyApplied).
		Int("conflicts", report.Conflicts).
		Int("failed", report.Failed).
		Int("remaining", report.Remaining).
		Msg("Queue drain finished")
	return report, nil
}

// replay pushes one queued intent to the server. The returned error is
// non-nil only for transport failures.
func (c *Coordinator) replay(ctx context.Context, entry store.QueueEntry, report *DrainReport) error {
	bale, err := c.client.Transition(ctx, entry.RecordID, entry.TargetStatus)
	if err == nil {
		if err := c.store.Confirm(ctx, bale); err != nil {
			log.Warn().Err(err).Str("bale", entry.RecordID).Msg("Failed to confirm record locally")
		}
		if err := c.store.Clear(ctx, entry.RecordID); err != nil {
			return errors.Wrap(err, "failed to clear queue entry")
		}
		report.Applied++
		return nil
	}

	if errors.Is(err, remote.ErrNetworkUnavailable) {
		return err
	}

	var apiErr *remote.APIError
	if errors.As(err, &apiErr) && apiErr.Code == remote.CodeIllegalTransition {
		if apiErr.CurrentStatus == entry.TargetStatus {
			// Another replay (or session) already applied this intent.
			if err := c.store.Clear(ctx, entry.RecordID); err != nil {
				return errors.Wrap(err, "failed to clear queue entry")
			}
			report.AlreadyApplied++
			return nil
		}
		// The record moved past the queued target; that needs operator
		// attention, not a silent success.
		log.Warn().
			Str("bale", entry.RecordID).
			Str("queued_target", string(entry.TargetStatus)).
			Str("current", string(apiErr.CurrentStatus)).
			Msg("Queued transition conflicts with server state")
		if err := c.store.Clear(ctx, entry.RecordID); err != nil {
			return errors.Wrap(err, "failed to clear queue entry")
		}
		report.Conflicts++
		return nil
	}

	// Other application rejections stay queued for the next drain but do
	// not block the rest of this one.
	log.Warn().Err(err).Str("bale", entry.RecordID).Msg("Queued transition rejected")
	report.Failed++
	return nil
}

// Refresh replaces the local mirror wholesale from an authoritative
// full fetch
func (c *Coordinator) Refresh(ctx context.Context) error {
	bales, err := c.client.ListBales(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrNetworkUnavailable) {
			c.setMode(ModeOffline)
		}
		return err
	}
	c.setMode(ModeOnline)
	return c.store.ReplaceAll(ctx, bales)
}

// StartProbe schedules a reconnect probe that pings the server while
// the coordinator is not online. This is not steady-state polling: the
// job is a no-op whenever the mode is already online.
func (c *Coordinator) StartProbe(interval time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "failed to create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if c.Mode() == ModeOnline {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			if err := c.client.Ping(ctx); err != nil {
				c.setMode(ModeOffline)
				return
			}
			if _, err := c.SetOnline(ctx, true); err != nil {
				log.Warn().Err(err).Msg("Drain after reconnect failed")
			}
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to schedule reconnect probe")
	}

	c.scheduler = scheduler
	scheduler.Start()
	return nil
}

// StopProbe stops the reconnect probe scheduler
func (c *Coordinator) StopProbe() {
	if c.scheduler != nil {
		if err := c.scheduler.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop probe scheduler")
		}
	}
}

// Queue lets callers inspect the pending intents, e.g. to show a
// "saved locally, will sync" badge per record
func (c *Coordinator) Queue(ctx context.Context) ([]store.QueueEntry, error) {
	return c.store.ListPending(ctx)
}
