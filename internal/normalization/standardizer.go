package normalization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is the standardization collaborator's answer.
type Result struct {
	StandardizedEvent string `json:"standardized_event"`
	WasMapped         bool   `json:"was_mapped"`
	Success           bool   `json:"success"`
}

// Standardizer maps a partner event name to the canonical vocabulary.
type Standardizer interface {
	Standardize(ctx context.Context, sourceSystem, originalEvent, projectID string) (*Result, error)
}

// NoopStandardizer never maps; every event keeps its raw name.
type NoopStandardizer struct{}

func (NoopStandardizer) Standardize(_ context.Context, _, originalEvent, _ string) (*Result, error) {
	return &Result{StandardizedEvent: originalEvent, WasMapped: false, Success: true}, nil
}

// HTTPStandardizer calls a remote mapping service.
type HTTPStandardizer struct {
	url    string
	client *http.Client
}

// NewHTTPStandardizer creates a client for the mapping service at url.
func NewHTTPStandardizer(url string, timeout time.Duration) *HTTPStandardizer {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPStandardizer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type standardizeRequest struct {
	SourceSystem  string `json:"source_system"`
	OriginalEvent string `json:"original_event"`
	ProjectID     string `json:"project_id"`
}

// Standardize POSTs the lookup and decodes the result. Non-2xx responses are errors.
func (s *HTTPStandardizer) Standardize(ctx context.Context, sourceSystem, originalEvent, projectID string) (*Result, error) {
	body, err := json.Marshal(standardizeRequest{
		SourceSystem:  sourceSystem,
		OriginalEvent: originalEvent,
		ProjectID:     projectID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode standardize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build standardize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("standardize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("standardize service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode standardize response: %w", err)
	}
	return &result, nil
}
