package webhookauth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/aevon-lab/hookline/internal/core/storage"
)

// Request headers.
const (
	HeaderSignature      = "X-Signature"
	HeaderTimestamp      = "X-Timestamp"
	HeaderIdempotencyKey = "X-Idempotency-Key"
)

// Reason is why a request was denied. It is only ever logged or counted;
// callers always see the same Unauthorized response.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonMissingHeaders   Reason = "missing_headers"
	ReasonStaleTimestamp   Reason = "stale_timestamp"
	ReasonUnknownEndpoint  Reason = "unknown_endpoint"
	ReasonBadSignature     Reason = "bad_signature"
	ReasonRateLimited      Reason = "rate_limited"
	ReasonReplayed         Reason = "replayed"
	ReasonStoreUnavailable Reason = "store_unavailable"
)

// Decision is the outcome of authentication.
type Decision struct {
	allowed bool
	reason  Reason
}

// Allowed is the decision for an accepted request.
func Allowed() Decision {
	return Decision{allowed: true}
}

// Denied is the decision for a rejected request.
func Denied(reason Reason) Decision {
	return Decision{reason: reason}
}

func (d Decision) IsAllowed() bool { return d.allowed }

func (d Decision) Reason() Reason { return d.reason }

// Request is the authentication-relevant part of an inbound delivery.
type Request struct {
	Endpoint       string
	Signature      string
	Timestamp      string
	IdempotencyKey string
	SourceIP       string
	Body           []byte
}

// Config configures an Authenticator.
type Config struct {
	// Endpoints maps endpoint name to its shared secret.
	Endpoints map[string]string

	FreshnessWindow time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration

	// AvailabilityOverStrictSecurity lets requests through when the rate
	// limiter or replay guard cannot reach the store.
	AvailabilityOverStrictSecurity bool
}

// Authenticator runs the ordered webhook checks: headers, timestamp,
// signature, rate limit, then the replay insert. The cheap checks run first
// so trivially invalid requests never touch the store.
type Authenticator struct {
	secrets    map[string]string
	timestamps *TimestampGuard
	limiter    *RateLimiter
	replay     *ReplayGuard
	failOpen   bool
	nowFn      func() time.Time
}

// NewAuthenticator builds an authenticator over store.
func NewAuthenticator(store storage.WebhookRequestStore, cfg Config) *Authenticator {
	if store == nil {
		panic("webhook request store cannot be nil")
	}

	secrets := make(map[string]string, len(cfg.Endpoints))
	for name, secret := range cfg.Endpoints {
		secrets[name] = secret
	}

	return &Authenticator{
		secrets:    secrets,
		timestamps: NewTimestampGuard(cfg.FreshnessWindow),
		limiter:    NewRateLimiter(store, cfg.RateLimitMax, cfg.RateLimitWindow),
		replay:     NewReplayGuard(store),
		failOpen:   cfg.AvailabilityOverStrictSecurity,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Known reports whether endpoint is configured.
func (a *Authenticator) Known(endpoint string) bool {
	_, ok := a.secrets[endpoint]
	return ok
}

// setClock replaces the clock of the authenticator and its guards.
func (a *Authenticator) setClock(now func() time.Time) {
	a.nowFn = now
	a.timestamps.nowFn = now
	a.limiter.nowFn = now
}

// Authenticate returns the decision for req. When allowed, the delivery
// attempt has been recorded in the store.
func (a *Authenticator) Authenticate(ctx context.Context, req Request) Decision {
	if req.Signature == "" || req.Timestamp == "" || req.IdempotencyKey == "" {
		return Denied(ReasonMissingHeaders)
	}

	declared, fresh := a.timestamps.Check(req.Timestamp)
	if !fresh {
		return Denied(ReasonStaleTimestamp)
	}

	secret, known := a.secrets[req.Endpoint]
	if !known || secret == "" {
		// Unknown endpoints pay the same HMAC cost as a bad signature.
		_ = VerifySignature("unknown-endpoint", req.Timestamp, req.Body, req.Signature)
		return Denied(ReasonUnknownEndpoint)
	}
	if !VerifySignature(secret, req.Timestamp, req.Body, req.Signature) {
		return Denied(ReasonBadSignature)
	}

	allowed, err := a.limiter.Allow(ctx, req.Endpoint)
	if err != nil {
		if !a.failOpen {
			slog.Error("[Auth] Rate limit check failed, denying", "endpoint", req.Endpoint, "error", err)
			return Denied(ReasonStoreUnavailable)
		}
		slog.Warn("[Auth] Rate limit check failed, allowing", "endpoint", req.Endpoint, "error", err)
	} else if !allowed {
		return Denied(ReasonRateLimited)
	}

	replayed, err := a.replay.Record(ctx, &storage.WebhookRequestRecord{
		IdempotencyKey: req.IdempotencyKey,
		Endpoint:       req.Endpoint,
		Timestamp:      declared,
		SourceIP:       req.SourceIP,
		ReceivedAt:     a.nowFn(),
	})
	if err != nil {
		if !a.failOpen {
			slog.Error("[Auth] Replay check failed, denying", "endpoint", req.Endpoint, "error", err)
			return Denied(ReasonStoreUnavailable)
		}
		slog.Warn("[Auth] Replay check failed, allowing", "endpoint", req.Endpoint, "error", err)
		return Allowed()
	}
	if replayed {
		return Denied(ReasonReplayed)
	}

	return Allowed()
}

// TokenEqual compares a presented bearer token to the configured one in
// constant time. An empty configured token never matches.
func TokenEqual(configured, presented string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
