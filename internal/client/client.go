package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/panchang-bot/internal/models"
	"github.com/kjstillabower/panchang-bot/internal/observability"
)

// PanchangClient fetches raw panchang responses from the astrology API.
type PanchangClient interface {
	FetchPanchang(ctx context.Context, req models.APIRequest) (json.RawMessage, error)
}

var (
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrInvalidAPIURL = errors.New("invalid API URL")
)

// maxBodyBytes bounds how much of an upstream body is read.
const maxBodyBytes = 1 << 20

// AstroClient calls the complete-panchang endpoint. One attempt per call, no retries.
type AstroClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	client  *http.Client
}

func NewAstroClient(apiKey, apiURL string, timeout time.Duration) (*AstroClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAPIURL, apiURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AstroClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchPanchang POSTs req and returns the raw JSON body. Failures are always a
// *models.PipelineError: transport, http_status, decode or upstream_explicit.
func (c *AstroClient) FetchPanchang(ctx context.Context, req models.APIRequest) (json.RawMessage, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.buildRequest(reqCtx, req)
	if err != nil {
		observability.AstroAPICallsTotal.WithLabelValues("error").Inc()
		return nil, models.NewUnexpectedError(fmt.Errorf("build request: %w", err))
	}

	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		httpReq.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.AstroAPICallsTotal.WithLabelValues("error").Inc()
		observability.AstroAPIDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, models.NewTransportError(fmt.Errorf("request timeout: %w", err))
		}
		return nil, models.NewTransportError(fmt.Errorf("http request failed: %w", err))
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.AstroAPICallsTotal.WithLabelValues(status).Inc()
	observability.AstroAPIDuration.WithLabelValues(status).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, models.NewHTTPStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, models.NewTransportError(fmt.Errorf("read response body: %w", err))
	}

	if !json.Valid(body) {
		return nil, models.NewDecodeError(fmt.Errorf("parse response: body is not valid JSON"))
	}

	if msg, ok := explicitError(body); ok {
		return nil, models.NewUpstreamError(msg)
	}

	return json.RawMessage(body), nil
}

func (c *AstroClient) buildRequest(ctx context.Context, req models.APIRequest) (*http.Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	return httpReq, nil
}

// explicitError reports whether body is an object carrying a top-level "error"
// key, and returns its text. Non-string values are rendered as compact JSON.
func explicitError(body []byte) (string, bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", false
	}
	raw, ok := top["error"]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
		return nested.Message, true
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		return compact.String(), true
	}
	return string(raw), true
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
