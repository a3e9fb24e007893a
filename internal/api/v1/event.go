package v1

import (
	"strings"
	"time"
)

// WebhookEvent is the JSON body accepted by the webhook endpoints.
// Partners send their own event vocabulary in EventName; the pipeline maps it
// to the canonical name before anything is persisted.
type WebhookEvent struct {
	// ProjectID scopes the event to a tenant project. Required.
	ProjectID string `json:"project_id" binding:"required,max=128"`

	// EventName is the partner-specific event name. Required.
	EventName string `json:"event_name" binding:"required,max=128"`

	// SourceSystem optionally names the originating partner. When empty the
	// source is inferred from the known-event taxonomy.
	SourceSystem string `json:"source_system,omitempty" binding:"omitempty,max=64"`

	// Metadata is arbitrary caller context, stored alongside the event.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// UserID is the acting identity. Empty means "unresolved" and the event is
	// attributed to the placeholder identity.
	UserID string `json:"user_id,omitempty" binding:"omitempty,max=128"`

	// ContestID optionally links the event to a contest.
	ContestID string `json:"contest_id,omitempty" binding:"omitempty,max=128"`

	// TestMode forces the reserved manual_test source.
	TestMode bool `json:"test_mode,omitempty"`
}

// Trim strips surrounding whitespace from all string fields so that
// whitespace-only values fail the required checks.
func (e *WebhookEvent) Trim() {
	e.ProjectID = strings.TrimSpace(e.ProjectID)
	e.EventName = strings.TrimSpace(e.EventName)
	e.SourceSystem = strings.TrimSpace(e.SourceSystem)
	e.UserID = strings.TrimSpace(e.UserID)
	e.ContestID = strings.TrimSpace(e.ContestID)
}

// CanonicalEvent is a WebhookEvent after normalization. It is never stored
// as-is; the fan-out writer turns it into an event log entry plus the
// secondary records.
type CanonicalEvent struct {
	ProjectID string

	// EventName is always the canonical (standardized) name.
	EventName string

	// OriginalEventName is the partner name as received. Empty when the
	// canonical name is identical.
	OriginalEventName string

	SourceSystem string
	Metadata     map[string]interface{}
	ContestID    string

	// ActorID is the resolved identity; the placeholder identity when the
	// caller supplied none.
	ActorID string
}

// IngestResponse is the 200 body returned for an accepted delivery.
// RequestID and AuditLogID are null when the corresponding best-effort
// sink failed.
type IngestResponse struct {
	Success           bool    `json:"success"`
	StandardizedEvent string  `json:"standardized_event"`
	WasMapped         bool    `json:"was_mapped"`
	SourceSystem      string  `json:"source_system"`
	EventLogID        string  `json:"event_log_id"`
	RequestID         *string `json:"request_id"`
	AuditLogID        *string `json:"audit_log_id"`
}

// EventLogResponse is the diagnostic view of a stored event log entry.
type EventLogResponse struct {
	ID           string                 `json:"id"`
	ProjectID    string                 `json:"project_id"`
	EventName    string                 `json:"event_name"`
	SourceSystem string                 `json:"source_system"`
	ActorID      string                 `json:"actor_id"`
	ContestID    string                 `json:"contest_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// PingResponse is the static body of the diagnostic webhook ping.
type PingResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Mode    string `json:"mode"`
}
