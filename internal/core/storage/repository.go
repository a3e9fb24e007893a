package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned when a webhook request with the same
	// (idempotency_key, endpoint) has already been recorded.
	ErrDuplicate = errors.New("webhook request already recorded")

	// ErrUnknownActor is returned when an event log entry references an
	// identity that does not exist (foreign key violation on actor_id).
	ErrUnknownActor = errors.New("event actor does not exist")

	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("record not found")
)

// WebhookRequestRecord is one accepted delivery attempt. The store enforces
// uniqueness of (IdempotencyKey, Endpoint); that constraint is the only
// cross-request mutual exclusion in the pipeline.
type WebhookRequestRecord struct {
	IdempotencyKey string
	Endpoint       string
	// Timestamp is the caller-declared X-Timestamp.
	Timestamp time.Time
	SourceIP  string
	// ReceivedAt is the server clock at acceptance; the rate limiter counts on it.
	ReceivedAt time.Time
}

// EventLogEntry is the durable, primary record of a canonical event.
type EventLogEntry struct {
	ID           string
	ProjectID    string
	EventName    string
	SourceSystem string
	ActorID      string
	ContestID    string
	Metadata     map[string]interface{}
	CreatedAt    time.Time
}

// DerivedRequest is downstream work implied by an event, queued for later
// processing. Best-effort: its absence never invalidates the event log entry.
type DerivedRequest struct {
	ID          string
	EventLogID  string
	ProjectID   string
	RequestType string
	Status      string
	CreatedAt   time.Time
}

// AuditEntry captures caller metadata and mapping provenance for forensics.
type AuditEntry struct {
	ID                string
	EventLogID        string
	ProjectID         string
	Endpoint          string
	SourceIP          string
	UserAgent         string
	SourceSystem      string
	OriginalEvent     string
	StandardizedEvent string
	WasMapped         bool
	TaxonomyVersion   string
	CreatedAt         time.Time
}

// Identity is an actor that event log entries can reference.
type Identity struct {
	ID          string
	DisplayName string
	Placeholder bool
}

// WebhookRequestStore backs replay detection and rate limiting.
type WebhookRequestStore interface {
	// RecordWebhookRequest inserts the record atomically.
	// Returns ErrDuplicate if (IdempotencyKey, Endpoint) already exists.
	RecordWebhookRequest(ctx context.Context, rec *WebhookRequestRecord) error

	// CountWebhookRequestsSince counts records for endpoint with ReceivedAt >= since.
	CountWebhookRequestsSince(ctx context.Context, endpoint string, since time.Time) (int, error)
}

// EventLogStore persists and reads the primary sink.
type EventLogStore interface {
	// InsertEventLog returns ErrUnknownActor when ActorID references no identity.
	InsertEventLog(ctx context.Context, entry *EventLogEntry) error
	GetEventLog(ctx context.Context, id string) (*EventLogEntry, error)
}

// DerivedRequestStore persists derived request records.
type DerivedRequestStore interface {
	InsertDerivedRequest(ctx context.Context, req *DerivedRequest) error
}

// AuditStore persists audit entries.
type AuditStore interface {
	InsertAuditEntry(ctx context.Context, entry *AuditEntry) error
}

// IdentityStore manages actor identities.
type IdentityStore interface {
	// EnsureIdentity inserts the identity if absent. It is atomic: concurrent
	// callers never fail because another caller created the row first.
	// created reports whether this call inserted it.
	EnsureIdentity(ctx context.Context, identity *Identity) (created bool, err error)
}

// Store is the full persistence surface used by the webhook pipeline.
// One instance is built at process start and closed at shutdown.
type Store interface {
	WebhookRequestStore
	EventLogStore
	DerivedRequestStore
	AuditStore
	IdentityStore

	Ping(ctx context.Context) error
	Close() error
}
