package agent

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/baletrack/internal/agent/remote"
	"example.com/baletrack/internal/agent/store"
	"example.com/baletrack/internal/models"
)

// WriteOutcome tells the caller what happened to their write. Queued is
// the distinct "saved locally, will sync" acknowledgment; it is never
// an ambiguous success signal.
type WriteOutcome struct {
	Delivered bool         `json:"delivered"`
	Queued    bool         `json:"queued"`
	Bale      *models.Bale `json:"bale,omitempty"`
}

// Gateway intercepts outgoing status writes. Network-level failures
// fall back to the offline queue; application-level rejections are
// surfaced immediately, since retrying them offline cannot change the
// outcome.
type Gateway struct {
	store  *store.Store
	client remote.Client
	coord  *Coordinator
}

// NewGateway creates a new intercepting gateway
func NewGateway(st *store.Store, client remote.Client, coord *Coordinator) *Gateway {
	return &Gateway{
		store:  st,
		client: client,
		coord:  coord,
	}
}

// Write attempts network delivery of a status transition, enqueueing
// the intent instead when the server is unreachable. The operator's
// action is never lost, only deferred.
func (g *Gateway) Write(ctx context.Context, recordID string, target models.BaleStatus) (*WriteOutcome, error) {
	// While known offline, skip the doomed network attempt entirely.
	if g.coord.Mode() == ModeOffline {
		return g.enqueue(ctx, recordID, target)
	}

	bale, err := g.client.Transition(ctx, recordID, target)
	if err == nil {
		if err := g.store.Confirm(ctx, bale); err != nil {
			log.Warn().Err(err).Str("bale", recordID).Msg("Failed to mirror confirmed record")
		}
		return &WriteOutcome{Delivered: true, Bale: bale}, nil
	}

	if errors.Is(err, remote.ErrNetworkUnavailable) {
		g.coord.setMode(ModeOffline)
		return g.enqueue(ctx, recordID, target)
	}

	// Application-level rejection: surface it.
	return nil, err
}

func (g *Gateway) enqueue(ctx context.Context, recordID string, target models.BaleStatus) (*WriteOutcome, error) {
	if err := g.store.Enqueue(ctx, recordID, target); err != nil {
		return nil, errors.Wrap(err, "failed to enqueue write intent")
	}
	if err := g.store.PatchStatus(ctx, recordID, target); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to patch local record")
	}

	log.Info().
		Str("bale", recordID).
		Str("target", string(target)).
		Msg("Write queued for later sync")
	return &WriteOutcome{Queued: true}, nil
}
