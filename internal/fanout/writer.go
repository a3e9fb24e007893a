package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/hookline/internal/api/v1"
	"github.com/aevon-lab/hookline/internal/core/storage"
	"github.com/aevon-lab/hookline/internal/metrics"
	"github.com/google/uuid"
)

// Sink labels used in logs and metrics.
const (
	SinkEventLog       = "event_log"
	SinkDerivedRequest = "derived_request"
	SinkAuditEntry     = "audit_entry"
)

// Self-heal outcomes.
const (
	SelfHealRecovered = "recovered"
	SelfHealFailed    = "failed"
)

// Defaults for the placeholder identity and derived request records.
const (
	DefaultPlaceholderID   = "00000000-0000-0000-0000-000000000000"
	DefaultPlaceholderName = "Unresolved actor"

	DerivedRequestType    = "event_processing"
	DerivedRequestPending = "pending"

	// MetadataUnresolvedUserID keeps a supplied actor id that did not exist.
	MetadataUnresolvedUserID = "unresolved_user_id"
)

// ErrPrimaryWrite marks a failed event log write. It is the only fan-out
// failure that reaches the caller.
var ErrPrimaryWrite = errors.New("event log write failed")

// Store is the persistence the writer needs.
type Store interface {
	storage.EventLogStore
	storage.DerivedRequestStore
	storage.AuditStore
	storage.IdentityStore
}

// Provenance is request context recorded in the audit entry.
type Provenance struct {
	Endpoint        string
	SourceIP        string
	UserAgent       string
	WasMapped       bool
	TaxonomyVersion string
}

// Result reports what was written. RequestID and AuditLogID are nil when
// the corresponding best-effort sink failed.
type Result struct {
	EventLogID string
	ActorID    string
	SelfHealed bool
	RequestID  *string
	AuditLogID *string
}

// Writer persists a canonical event to the primary event log and then,
// best-effort, to the derived request and audit sinks.
//
// PERSIST_PRIMARY -> SUCCESS -> PERSIST_SECONDARY -> DONE
// PERSIST_PRIMARY -> UNKNOWN_ACTOR -> SELF_HEAL -> RETRY_PRIMARY (once)
type Writer struct {
	store       Store
	placeholder storage.Identity
	metrics     *metrics.Metrics
	newID       func() string
	nowFn       func() time.Time
}

// NewWriter creates a writer. Empty placeholder fields use the defaults.
func NewWriter(store Store, placeholderID, placeholderName string, m *metrics.Metrics) *Writer {
	if store == nil {
		panic("fanout store cannot be nil")
	}
	if placeholderID == "" {
		placeholderID = DefaultPlaceholderID
	}
	if placeholderName == "" {
		placeholderName = DefaultPlaceholderName
	}

	return &Writer{
		store: store,
		placeholder: storage.Identity{
			ID:          placeholderID,
			DisplayName: placeholderName,
			Placeholder: true,
		},
		metrics: m,
		newID:   uuid.NewString,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// PlaceholderID returns the id of the placeholder identity.
func (w *Writer) PlaceholderID() string {
	return w.placeholder.ID
}

// Write persists evt. An error means the event log entry was not stored.
func (w *Writer) Write(ctx context.Context, evt v1.CanonicalEvent, prov Provenance) (*Result, error) {
	now := w.nowFn()

	entry := &storage.EventLogEntry{
		ID:           w.newID(),
		ProjectID:    evt.ProjectID,
		EventName:    evt.EventName,
		SourceSystem: evt.SourceSystem,
		ActorID:      evt.ActorID,
		ContestID:    evt.ContestID,
		Metadata:     evt.Metadata,
		CreatedAt:    now,
	}
	if entry.ActorID == "" {
		entry.ActorID = w.placeholder.ID
	}

	selfHealed, err := w.persistPrimary(ctx, entry)
	if err != nil {
		return nil, err
	}

	res := &Result{
		EventLogID: entry.ID,
		ActorID:    entry.ActorID,
		SelfHealed: selfHealed,
	}

	res.RequestID = w.persistDerived(ctx, entry, now)
	res.AuditLogID = w.persistAudit(ctx, entry, evt, prov, now)

	return res, nil
}

// persistPrimary writes the event log entry with at most one self-heal retry.
func (w *Writer) persistPrimary(ctx context.Context, entry *storage.EventLogEntry) (bool, error) {
	err := w.store.InsertEventLog(ctx, entry)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrUnknownActor) {
		slog.Error("Event log write failed",
			"event_log_id", entry.ID,
			"project_id", entry.ProjectID,
			"error", err)
		return false, fmt.Errorf("%w: %w", ErrPrimaryWrite, err)
	}

	slog.Warn("Event actor missing, self-healing with placeholder identity",
		"event_log_id", entry.ID,
		"actor_id", entry.ActorID,
		"placeholder_id", w.placeholder.ID)

	if _, err := w.store.EnsureIdentity(ctx, &w.placeholder); err != nil {
		w.metrics.IncSelfHeal(SelfHealFailed)
		slog.Error("Failed to ensure placeholder identity", "error", err)
		return false, fmt.Errorf("%w: ensure placeholder identity: %w", ErrPrimaryWrite, err)
	}

	if entry.ActorID != w.placeholder.ID {
		entry.Metadata = withUnresolvedActor(entry.Metadata, entry.ActorID)
		entry.ActorID = w.placeholder.ID
	}

	if err := w.store.InsertEventLog(ctx, entry); err != nil {
		w.metrics.IncSelfHeal(SelfHealFailed)
		slog.Error("Event log retry after self-heal failed",
			"event_log_id", entry.ID,
			"error", err)
		return false, fmt.Errorf("%w: retry after self-heal: %w", ErrPrimaryWrite, err)
	}

	w.metrics.IncSelfHeal(SelfHealRecovered)
	return true, nil
}

func (w *Writer) persistDerived(ctx context.Context, entry *storage.EventLogEntry, now time.Time) *string {
	req := &storage.DerivedRequest{
		ID:          w.newID(),
		EventLogID:  entry.ID,
		ProjectID:   entry.ProjectID,
		RequestType: DerivedRequestType,
		Status:      DerivedRequestPending,
		CreatedAt:   now,
	}
	if err := w.store.InsertDerivedRequest(ctx, req); err != nil {
		w.sinkFailed(SinkDerivedRequest, entry.ID, err)
		return nil
	}
	return &req.ID
}

func (w *Writer) persistAudit(ctx context.Context, entry *storage.EventLogEntry, evt v1.CanonicalEvent, prov Provenance, now time.Time) *string {
	original := evt.OriginalEventName
	if original == "" {
		original = evt.EventName
	}

	audit := &storage.AuditEntry{
		ID:                w.newID(),
		EventLogID:        entry.ID,
		ProjectID:         entry.ProjectID,
		Endpoint:          prov.Endpoint,
		SourceIP:          prov.SourceIP,
		UserAgent:         prov.UserAgent,
		SourceSystem:      entry.SourceSystem,
		OriginalEvent:     original,
		StandardizedEvent: entry.EventName,
		WasMapped:         prov.WasMapped,
		TaxonomyVersion:   prov.TaxonomyVersion,
		CreatedAt:         now,
	}
	if err := w.store.InsertAuditEntry(ctx, audit); err != nil {
		w.sinkFailed(SinkAuditEntry, entry.ID, err)
		return nil
	}
	return &audit.ID
}

func (w *Writer) sinkFailed(sink, eventLogID string, err error) {
	w.metrics.IncSinkFailure(sink)
	slog.Warn("Best-effort sink write failed",
		"sink", sink,
		"event_log_id", eventLogID,
		"error", err)
}

func withUnresolvedActor(metadata map[string]interface{}, actorID string) map[string]interface{} {
	out := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out[MetadataUnresolvedUserID] = actorID
	return out
}
