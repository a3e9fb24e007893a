package webhookauth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aevon-lab/hookline/internal/core/storage"
	"github.com/aevon-lab/hookline/internal/core/storage/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var testNow = time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

// faultyStore wraps the memory store and injects errors.
type faultyStore struct {
	*memory.Store
	countErr  error
	recordErr error
}

func (f *faultyStore) CountWebhookRequestsSince(ctx context.Context, endpoint string, since time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.Store.CountWebhookRequestsSince(ctx, endpoint, since)
}

func (f *faultyStore) RecordWebhookRequest(ctx context.Context, rec *storage.WebhookRequestRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	return f.Store.RecordWebhookRequest(ctx, rec)
}

func newTestAuthenticator(t *testing.T, store storage.WebhookRequestStore, failOpen bool) *Authenticator {
	t.Helper()

	a := NewAuthenticator(store, Config{
		Endpoints:                      map[string]string{"partner-a": "s", "disabled": ""},
		FreshnessWindow:                5 * time.Minute,
		RateLimitMax:                   60,
		RateLimitWindow:                60 * time.Second,
		AvailabilityOverStrictSecurity: failOpen,
	})
	a.setClock(func() time.Time { return testNow })
	return a
}

func signedRequest(endpoint, key string, body []byte) Request {
	ts := testNow.Format(time.RFC3339)
	return Request{
		Endpoint:       endpoint,
		Signature:      ComputeSignature("s", ts, body),
		Timestamp:      ts,
		IdempotencyKey: key,
		SourceIP:       "203.0.113.7",
		Body:           body,
	}
}

func TestAuthenticator_Decisions(t *testing.T) {
	body := []byte(`{"project_id":"p1","event_name":"x"}`)

	tests := []struct {
		name   string
		mutate func(r *Request)
		want   Reason
	}{
		{name: "valid", mutate: func(r *Request) {}, want: ReasonNone},
		{name: "missing signature", mutate: func(r *Request) { r.Signature = "" }, want: ReasonMissingHeaders},
		{name: "missing timestamp", mutate: func(r *Request) { r.Timestamp = "" }, want: ReasonMissingHeaders},
		{name: "missing idempotency key", mutate: func(r *Request) { r.IdempotencyKey = "" }, want: ReasonMissingHeaders},
		{
			name: "stale timestamp",
			mutate: func(r *Request) {
				r.Timestamp = testNow.Add(-(5*time.Minute + time.Second)).Format(time.RFC3339)
				r.Signature = ComputeSignature("s", r.Timestamp, r.Body)
			},
			want: ReasonStaleTimestamp,
		},
		{name: "unknown endpoint", mutate: func(r *Request) { r.Endpoint = "partner-z" }, want: ReasonUnknownEndpoint},
		{name: "endpoint without secret", mutate: func(r *Request) { r.Endpoint = "disabled" }, want: ReasonUnknownEndpoint},
		{name: "body tampered", mutate: func(r *Request) { r.Body = append(r.Body, ' ') }, want: ReasonBadSignature},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.New()
			a := newTestAuthenticator(t, store, true)

			req := signedRequest("partner-a", "idem-1", append([]byte{}, body...))
			tc.mutate(&req)

			d := a.Authenticate(context.Background(), req)
			require.Equal(t, tc.want == ReasonNone, d.IsAllowed())
			require.Equal(t, tc.want, d.Reason())

			// Only an accepted request is recorded.
			wantRecorded := 0
			if d.IsAllowed() {
				wantRecorded = 1
			}
			require.Equal(t, wantRecorded, store.Counts().WebhookRequests)
		})
	}
}

func TestAuthenticator_Replay(t *testing.T) {
	a := newTestAuthenticator(t, memory.New(), true)
	body := []byte(`{"project_id":"p1","event_name":"x"}`)

	first := a.Authenticate(context.Background(), signedRequest("partner-a", "idem-1", body))
	require.True(t, first.IsAllowed())

	second := a.Authenticate(context.Background(), signedRequest("partner-a", "idem-1", body))
	require.False(t, second.IsAllowed())
	require.Equal(t, ReasonReplayed, second.Reason())
}

func TestAuthenticator_RateLimit(t *testing.T) {
	a := newTestAuthenticator(t, memory.New(), true)
	body := []byte(`{"project_id":"p1","event_name":"x"}`)

	for i := 0; i < 60; i++ {
		d := a.Authenticate(context.Background(), signedRequest("partner-a", fmt.Sprintf("idem-%d", i), body))
		require.True(t, d.IsAllowed(), "request %d", i+1)
	}

	d := a.Authenticate(context.Background(), signedRequest("partner-a", "idem-60", body))
	require.False(t, d.IsAllowed())
	require.Equal(t, ReasonRateLimited, d.Reason())

	// The window slides: a minute later the endpoint is open again.
	a.setClock(func() time.Time { return testNow.Add(61 * time.Second) })
	later := signedRequest("partner-a", "idem-61", body)
	later.Timestamp = testNow.Add(61 * time.Second).Format(time.RFC3339)
	later.Signature = ComputeSignature("s", later.Timestamp, body)
	require.True(t, a.Authenticate(context.Background(), later).IsAllowed())
}

func TestAuthenticator_RateLimitOvershootIsBounded(t *testing.T) {
	store := memory.New()
	a := newTestAuthenticator(t, store, true)
	body := []byte(`{"project_id":"p1","event_name":"x"}`)

	const preloaded = 55
	for i := 0; i < preloaded; i++ {
		require.True(t, a.Authenticate(context.Background(), signedRequest("partner-a", fmt.Sprintf("pre-%d", i), body)).IsAllowed())
	}

	const concurrent = 20
	var accepted atomic.Int32

	var g errgroup.Group
	for i := 0; i < concurrent; i++ {
		g.Go(func() error {
			d := a.Authenticate(context.Background(), signedRequest("partner-a", fmt.Sprintf("burst-%d", i), body))
			if d.IsAllowed() {
				accepted.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	remaining := 60 - preloaded
	got := int(accepted.Load())
	require.GreaterOrEqual(t, got, remaining)
	require.LessOrEqual(t, got, remaining+concurrent-1)
	require.Equal(t, preloaded+got, store.Counts().WebhookRequests)
}

func TestAuthenticator_ConcurrentDuplicateAcceptsOnce(t *testing.T) {
	a := newTestAuthenticator(t, memory.New(), true)
	body := []byte(`{"project_id":"p1","event_name":"x"}`)

	var accepted atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			if a.Authenticate(context.Background(), signedRequest("partner-a", "same-key", body)).IsAllowed() {
				accepted.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), accepted.Load())
}

func TestAuthenticator_StoreFailurePolicy(t *testing.T) {
	body := []byte(`{"project_id":"p1","event_name":"x"}`)
	storeErr := errors.New("connection refused")

	tests := []struct {
		name      string
		countErr  error
		recordErr error
		failOpen  bool
		want      Reason
	}{
		{name: "count error fails open", countErr: storeErr, failOpen: true, want: ReasonNone},
		{name: "count error fails closed", countErr: storeErr, failOpen: false, want: ReasonStoreUnavailable},
		{name: "record error fails open", recordErr: storeErr, failOpen: true, want: ReasonNone},
		{name: "record error fails closed", recordErr: storeErr, failOpen: false, want: ReasonStoreUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &faultyStore{Store: memory.New(), countErr: tc.countErr, recordErr: tc.recordErr}
			a := newTestAuthenticator(t, store, tc.failOpen)

			d := a.Authenticate(context.Background(), signedRequest("partner-a", "idem-1", body))
			require.Equal(t, tc.want == ReasonNone, d.IsAllowed())
			require.Equal(t, tc.want, d.Reason())
		})
	}
}

func TestAuthenticator_Known(t *testing.T) {
	a := newTestAuthenticator(t, memory.New(), true)

	require.True(t, a.Known("partner-a"))
	require.True(t, a.Known("disabled"))
	require.False(t, a.Known("partner-b"))
	require.False(t, a.Known(""))
}

func TestNewAuthenticator_PanicsOnNilStore(t *testing.T) {
	require.Panics(t, func() {
		NewAuthenticator(nil, Config{})
	})
}

func TestTokenEqual(t *testing.T) {
	require.True(t, TokenEqual("tok", "tok"))
	require.False(t, TokenEqual("tok", "tok2"))
	require.False(t, TokenEqual("", ""))
}
