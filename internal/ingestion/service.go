package ingestion

import (
	"github.com/aevon-lab/hookline/internal/core/storage"
	"github.com/aevon-lab/hookline/internal/fanout"
	"github.com/aevon-lab/hookline/internal/metrics"
	"github.com/aevon-lab/hookline/internal/normalization"
	"github.com/aevon-lab/hookline/internal/webhookauth"
	"github.com/gin-gonic/gin"
)

// Service serves the webhook endpoints. It holds no per-request state;
// all cross-request coordination goes through the store.
type Service struct {
	auth             *webhookauth.Authenticator
	normalizer       *normalization.Normalizer
	writer           *fanout.Writer
	events           storage.EventLogStore
	metrics          *metrics.Metrics
	maxBodyBytes     int64
	diagnosticsToken string
}

const defaultMaxBodyBytes int64 = 1 << 20

// Options are the HTTP-level settings of the service.
type Options struct {
	// MaxBodyBytes caps the request body. Zero means 1MB.
	MaxBodyBytes int64

	// DiagnosticsToken enables the /v1/diagnostics routes when set.
	DiagnosticsToken string
}

func NewService(
	auth *webhookauth.Authenticator,
	normalizer *normalization.Normalizer,
	writer *fanout.Writer,
	events storage.EventLogStore,
	m *metrics.Metrics,
	opts Options,
) *Service {
	if auth == nil {
		panic("ingestion: authenticator must not be nil")
	}
	if normalizer == nil {
		panic("ingestion: normalizer must not be nil")
	}
	if writer == nil {
		panic("ingestion: writer must not be nil")
	}
	if events == nil {
		panic("ingestion: event log store must not be nil")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	useJSONFieldNames()

	return &Service{
		auth:             auth,
		normalizer:       normalizer,
		writer:           writer,
		events:           events,
		metrics:          m,
		maxBodyBytes:     opts.MaxBodyBytes,
		diagnosticsToken: opts.DiagnosticsToken,
	}
}

// RegisterRoutes registers the webhook routes, plus the diagnostic routes
// when a diagnostics token is configured.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	webhooks := r.Group("/v1/webhooks", corsHeaders())
	// Every method is routed here; non-POST methods get the generic 401.
	webhooks.Any("/:endpoint", s.WebhookHandler)

	if s.diagnosticsToken == "" {
		return
	}

	diag := r.Group("/v1/diagnostics", s.requireDiagnosticsToken)
	diag.GET("/webhook-ping", s.WebhookPingHandler)
	diag.POST("/webhook-ping", s.WebhookPingHandler)
	diag.GET("/event-logs/:id", s.GetEventLogHandler)
}
