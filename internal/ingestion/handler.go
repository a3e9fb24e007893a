package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	v1 "github.com/aevon-lab/hookline/internal/api/v1"
	httperr "github.com/aevon-lab/hookline/internal/core/errors"
	"github.com/aevon-lab/hookline/internal/fanout"
	"github.com/aevon-lab/hookline/internal/normalization"
	"github.com/aevon-lab/hookline/internal/webhookauth"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Outcome labels for the webhook request counter.
const (
	outcomeAccepted     = "accepted"
	outcomeUnauthorized = "unauthorized"
	outcomeInvalid      = "invalid"
	outcomeTooLarge     = "too_large"
	outcomeFailed       = "failed"
)

// unknownEndpointLabel replaces path segments that name no configured
// endpoint, so metric cardinality stays bounded by the endpoint registry.
const unknownEndpointLabel = "unknown"

// ingestionError carries the HTTP error shape from a helper back to the handler.
type ingestionError struct {
	statusCode int
	message    string
	outcome    string
}

func (e *ingestionError) Error() string {
	return e.message
}

var errUnauthorized = &ingestionError{
	statusCode: http.StatusUnauthorized,
	message:    httperr.MsgUnauthorized,
	outcome:    outcomeUnauthorized,
}

var errInternal = &ingestionError{
	statusCode: http.StatusInternalServerError,
	message:    httperr.MsgInternalError,
	outcome:    outcomeFailed,
}

// WebhookHandler authenticates, validates, normalizes and persists one
// webhook delivery.
func (s *Service) WebhookHandler(c *gin.Context) {
	start := time.Now()
	endpoint := c.Param("endpoint")

	label := endpoint
	if !s.auth.Known(endpoint) {
		label = unknownEndpointLabel
	}

	resp, ierr := s.handleWebhook(c, endpoint)
	if ierr != nil {
		s.metrics.ObserveWebhookRequest(label, ierr.outcome, time.Since(start))
		writeError(c, ierr)
		return
	}

	s.metrics.ObserveWebhookRequest(label, outcomeAccepted, time.Since(start))
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleWebhook(c *gin.Context, endpoint string) (*v1.IngestResponse, *ingestionError) {
	if c.Request.Method != http.MethodPost {
		slog.Warn("[Auth] Webhook denied", "endpoint", endpoint, "reason", "method_not_allowed", "method", c.Request.Method)
		return nil, errUnauthorized
	}

	body, ierr := s.readBody(c)
	if ierr != nil {
		return nil, ierr
	}

	sourceIP := clientIP(c)
	idempotencyKey := c.GetHeader(webhookauth.HeaderIdempotencyKey)

	decision := s.auth.Authenticate(c.Request.Context(), webhookauth.Request{
		Endpoint:       endpoint,
		Signature:      c.GetHeader(webhookauth.HeaderSignature),
		Timestamp:      c.GetHeader(webhookauth.HeaderTimestamp),
		IdempotencyKey: idempotencyKey,
		SourceIP:       sourceIP,
		Body:           body,
	})
	if !decision.IsAllowed() {
		reason := string(decision.Reason())
		s.metrics.IncAuthDenial(reason)
		slog.Warn("[Auth] Webhook denied",
			"endpoint", endpoint,
			"reason", reason,
			"idempotency_key", idempotencyKey,
			"source_ip", sourceIP)
		return nil, errUnauthorized
	}

	evt, ierr := parseEvent(body)
	if ierr != nil {
		return nil, ierr
	}

	ctx := c.Request.Context()

	out := s.normalizer.Normalize(ctx, normalization.Input{
		ProjectID:    evt.ProjectID,
		EventName:    evt.EventName,
		SourceSystem: evt.SourceSystem,
		TestMode:     evt.TestMode,
	})
	s.metrics.IncNormalization(out.Result())

	canonical := v1.CanonicalEvent{
		ProjectID:         evt.ProjectID,
		EventName:         out.EventName,
		OriginalEventName: out.OriginalEventName,
		SourceSystem:      out.SourceSystem,
		Metadata:          out.Annotate(evt.Metadata),
		ContestID:         evt.ContestID,
		ActorID:           evt.UserID,
	}

	res, err := s.writer.Write(ctx, canonical, fanout.Provenance{
		Endpoint:        endpoint,
		SourceIP:        sourceIP,
		UserAgent:       c.Request.UserAgent(),
		WasMapped:       out.WasMapped,
		TaxonomyVersion: out.TaxonomyVersion,
	})
	if err != nil {
		slog.Error("Failed to persist webhook event",
			"endpoint", endpoint,
			"project_id", evt.ProjectID,
			"error", err)
		return nil, errInternal
	}

	slog.Info("Webhook event ingested",
		"endpoint", endpoint,
		"event_log_id", res.EventLogID,
		"project_id", evt.ProjectID,
		"event_name", out.EventName,
		"source_system", out.SourceSystem,
		"was_mapped", out.WasMapped,
		"self_healed", res.SelfHealed)

	return &v1.IngestResponse{
		Success:           true,
		StandardizedEvent: out.EventName,
		WasMapped:         out.WasMapped,
		SourceSystem:      out.SourceSystem,
		EventLogID:        res.EventLogID,
		RequestID:         res.RequestID,
		AuditLogID:        res.AuditLogID,
	}, nil
}

// readBody reads the raw body up to the configured cap. The exact bytes are
// needed for signature verification, so the cap is enforced before auth.
func (s *Service) readBody(c *gin.Context) ([]byte, *ingestionError) {
	maxBytes := s.maxBodyBytes
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	body, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, errInternal
	}

	if int64(len(body)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "max", maxBytes)
		return nil, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			message:    httperr.MsgBodyTooLarge,
			outcome:    outcomeTooLarge,
		}
	}
	return body, nil
}

// parseEvent decodes and validates the JSON payload.
func parseEvent(body []byte) (*v1.WebhookEvent, *ingestionError) {
	var evt v1.WebhookEvent
	if err := decodeJSON(body, &evt); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(body))
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			message:    httperr.MsgInvalidJSON,
			outcome:    outcomeInvalid,
		}
	}

	evt.Trim()

	if err := binding.Validator.ValidateStruct(&evt); err != nil {
		msg := validationMessage(err)
		slog.Warn("Webhook payload validation failed", "error", msg)
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			message:    msg,
			outcome:    outcomeInvalid,
		}
	}

	return &evt, nil
}

// decodeJSON decodes exactly one JSON value. Numbers in untyped fields stay
// json.Number so large integers in metadata are stored unchanged.
func decodeJSON(body []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// clientIP returns the first X-Forwarded-For entry, then X-Real-IP, then
// the connection's remote address.
func clientIP(c *gin.Context) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if v := c.GetHeader(header); v != "" {
			first := strings.TrimSpace(strings.SplitN(v, ",", 2)[0])
			if first != "" {
				return first
			}
		}
	}
	return c.RemoteIP()
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{Error: err.message})
}
