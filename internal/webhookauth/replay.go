package webhookauth

import (
	"context"
	"errors"

	"github.com/aevon-lab/hookline/internal/core/storage"
)

// ReplayGuard records each delivery attempt in the shared store. The store's
// unique constraint on (idempotency key, endpoint) makes the insert itself
// the replay check; no application lock is involved.
type ReplayGuard struct {
	store storage.WebhookRequestStore
}

// NewReplayGuard creates a replay guard over store.
func NewReplayGuard(store storage.WebhookRequestStore) *ReplayGuard {
	return &ReplayGuard{store: store}
}

// Record inserts rec. It reports replayed=true when the key was already
// used on this endpoint. Any other store error is returned as err with
// replayed=false; the caller decides whether that fails open.
func (g *ReplayGuard) Record(ctx context.Context, rec *storage.WebhookRequestRecord) (replayed bool, err error) {
	err = g.store.RecordWebhookRequest(ctx, rec)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, storage.ErrDuplicate):
		return true, nil
	default:
		return false, err
	}
}
