package ingestion

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	v1 "github.com/aevon-lab/hookline/internal/api/v1"
	httperr "github.com/aevon-lab/hookline/internal/core/errors"
	"github.com/aevon-lab/hookline/internal/core/storage"
	"github.com/aevon-lab/hookline/internal/webhookauth"
	"github.com/gin-gonic/gin"
)

// HeaderTestPing marks a diagnostic ping. Only the diagnostics group reads it.
const HeaderTestPing = "X-Test-Ping"

// requireDiagnosticsToken guards the diagnostics group with a bearer token.
func (s *Service) requireDiagnosticsToken(c *gin.Context) {
	presented, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || !webhookauth.TokenEqual(s.diagnosticsToken, presented) {
		slog.Warn("[Auth] Diagnostics access denied", "path", c.FullPath(), "source_ip", clientIP(c))
		c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{Error: httperr.MsgUnauthorized})
		return
	}
	c.Next()
}

// WebhookPingHandler answers an operational health ping without touching
// the pipeline.
func (s *Service) WebhookPingHandler(c *gin.Context) {
	if c.GetHeader(HeaderTestPing) == "" {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			message:    httperr.MsgMissingTestPing,
		})
		return
	}

	c.JSON(http.StatusOK, v1.PingResponse{
		Status:  "ok",
		Service: "hookline",
		Mode:    "test_ping",
	})
}

// GetEventLogHandler returns one stored event log entry.
func (s *Service) GetEventLogHandler(c *gin.Context) {
	entry, err := s.events.GetEventLog(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(c, &ingestionError{statusCode: http.StatusNotFound, message: httperr.MsgNotFound})
		return
	}
	if err != nil {
		slog.Error("Failed to load event log", "event_log_id", c.Param("id"), "error", err)
		writeError(c, errInternal)
		return
	}

	c.JSON(http.StatusOK, v1.EventLogResponse{
		ID:           entry.ID,
		ProjectID:    entry.ProjectID,
		EventName:    entry.EventName,
		SourceSystem: entry.SourceSystem,
		ActorID:      entry.ActorID,
		ContestID:    entry.ContestID,
		Metadata:     entry.Metadata,
		CreatedAt:    entry.CreatedAt,
	})
}
