package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aevon-lab/hookline/internal/core/storage"
)

type requestKey struct {
	idempotencyKey string
	endpoint       string
}

// Store is an in-process storage.Store with the same uniqueness and
// foreign key rules as the relational schema. Used by tests and local runs
// without a database.
type Store struct {
	mu sync.Mutex

	requests   map[requestKey]storage.WebhookRequestRecord
	requestLog []storage.WebhookRequestRecord
	identities map[string]storage.Identity
	eventLogs  map[string]storage.EventLogEntry
	derived    map[string]storage.DerivedRequest
	auditByID  map[string]storage.AuditEntry
	closed     bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		requests:   make(map[requestKey]storage.WebhookRequestRecord),
		identities: make(map[string]storage.Identity),
		eventLogs:  make(map[string]storage.EventLogEntry),
		derived:    make(map[string]storage.DerivedRequest),
		auditByID:  make(map[string]storage.AuditEntry),
	}
}

func (s *Store) RecordWebhookRequest(_ context.Context, rec *storage.WebhookRequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	key := requestKey{idempotencyKey: rec.IdempotencyKey, endpoint: rec.Endpoint}
	if _, exists := s.requests[key]; exists {
		return storage.ErrDuplicate
	}
	s.requests[key] = *rec
	s.requestLog = append(s.requestLog, *rec)
	return nil
}

func (s *Store) CountWebhookRequestsSince(_ context.Context, endpoint string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	for _, rec := range s.requestLog {
		if rec.Endpoint == endpoint && !rec.ReceivedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) InsertEventLog(_ context.Context, entry *storage.EventLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.identities[entry.ActorID]; !ok {
		return fmt.Errorf("%w: actor %q", storage.ErrUnknownActor, entry.ActorID)
	}
	if _, exists := s.eventLogs[entry.ID]; exists {
		return fmt.Errorf("event log %q already exists", entry.ID)
	}

	cp := *entry
	cp.Metadata = copyMetadata(entry.Metadata)
	s.eventLogs[entry.ID] = cp

	slog.Debug("[Memory] Inserted event log", "event_log_id", entry.ID, "actor_id", entry.ActorID)
	return nil
}

func (s *Store) GetEventLog(_ context.Context, id string) (*storage.EventLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	entry, ok := s.eventLogs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	entry.Metadata = copyMetadata(entry.Metadata)
	return &entry, nil
}

func (s *Store) InsertDerivedRequest(_ context.Context, req *storage.DerivedRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.eventLogs[req.EventLogID]; !ok {
		return fmt.Errorf("derived request references unknown event log %q", req.EventLogID)
	}
	s.derived[req.ID] = *req
	return nil
}

func (s *Store) InsertAuditEntry(_ context.Context, entry *storage.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	s.auditByID[entry.ID] = *entry
	return nil
}

// EnsureIdentity inserts identity if absent, under the store lock.
func (s *Store) EnsureIdentity(_ context.Context, identity *storage.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if _, exists := s.identities[identity.ID]; exists {
		return false, nil
	}
	s.identities[identity.ID] = *identity
	slog.Info("[Memory] Created identity", "identity_id", identity.ID, "placeholder", identity.Placeholder)
	return true, nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkOpen()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Counts reports how many rows each table holds.
type Counts struct {
	WebhookRequests int
	Identities      int
	EventLogs       int
	DerivedRequests int
	AuditEntries    int
}

// Counts returns a snapshot of table sizes.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Counts{
		WebhookRequests: len(s.requests),
		Identities:      len(s.identities),
		EventLogs:       len(s.eventLogs),
		DerivedRequests: len(s.derived),
		AuditEntries:    len(s.auditByID),
	}
}

// Identity returns a stored identity.
func (s *Store) Identity(id string) (storage.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	return identity, ok
}

// AuditEntries returns all audit entries for an event log id.
func (s *Store) AuditEntries(eventLogID string) []storage.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []storage.AuditEntry
	for _, e := range s.auditByID {
		if e.EventLogID == eventLogID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) checkOpen() error {
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	return nil
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ storage.Store = (*Store)(nil)
