// Package inference provides the HTTP gateway to the external NLP/diagnostic
// backend. It performs the two network operations the console depends on
// (health probe, analyze) and classifies their outcome without interpreting
// payload semantics. Transport failures never escape this boundary as errors;
// they are converted into typed outcomes.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/triage-console/internal/domain"
)

// HealthOutcome classifies the result of a health probe.
type HealthOutcome string

const (
	// Healthy means HTTP success and a payload status literally "healthy".
	Healthy HealthOutcome = "healthy"
	// Degraded means HTTP success with any other payload status.
	Degraded HealthOutcome = "degraded"
	// Unreachable means a non-success HTTP status or a transport failure.
	Unreachable HealthOutcome = "unreachable"
)

// AnalyzeOutcome classifies the result of an analyze call. On success Raw
// holds the decoded JSON payload, schema unconstrained at this layer; the
// normalizer is responsible for making sense of it.
type AnalyzeOutcome struct {
	Success    bool
	Raw        any
	StatusCode int   // HTTP status when available, 0 on transport failure
	Reason     error // diagnostic only, never surfaced to callers as an error
}

// Config contains configuration for the inference backend client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit int // requests per second, 0 disables pacing
}

// Client is the HTTP adapter to the inference backend. It is stateless aside
// from the connection pool and safe for use by any number of sessions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewClient creates a new inference backend client.
func NewClient(config Config, logger *logrus.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)
	}

	return &Client{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// healthResponse is the expected shape of the health endpoint payload.
type healthResponse struct {
	Status string `json:"status"`
}

// analyzeRequest is the wire body of the analyze endpoint.
type analyzeRequest struct {
	Text string `json:"text"`
}

// ProbeHealth issues a single GET against the health endpoint and classifies
// backend reachability. It never returns an error; every failure mode
// collapses to Unreachable.
func (c *Client) ProbeHealth(ctx context.Context) HealthOutcome {
	if err := c.wait(ctx); err != nil {
		c.logFailure("probe_health", 0, err)
		return Unreachable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		c.logFailure("probe_health", 0, err)
		return Unreachable
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logFailure("probe_health", 0, err)
		return Unreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logFailure("probe_health", resp.StatusCode, nil)
		return Unreachable
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		// HTTP success with an undecodable body still counts as reachable.
		return Degraded
	}
	if health.Status == "healthy" {
		return Healthy
	}
	return Degraded
}

// SubmitAnalysis issues a single POST of {"text": ...} against the analyze
// endpoint. A single attempt per call: no retries, no backoff. Non-success
// HTTP statuses and transport failures both yield a Failure outcome with the
// status retained for diagnostics.
func (c *Client) SubmitAnalysis(ctx context.Context, text string) AnalyzeOutcome {
	if err := c.wait(ctx); err != nil {
		return c.failure(0, err)
	}

	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return c.failure(0, fmt.Errorf("failed to encode analyze request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return c.failure(0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.failure(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.failure(resp.StatusCode, nil)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(resp.StatusCode, fmt.Errorf("failed to read analyze response: %w", err))
	}

	// The payload is passed to the normalizer unmodified; a body that is not
	// valid JSON decodes to nil and normalizes to a fully-defaulted result.
	var raw any
	_ = json.Unmarshal(payload, &raw)

	return AnalyzeOutcome{Success: true, Raw: raw, StatusCode: resp.StatusCode}
}

// wait applies client-side pacing when a rate limit is configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) failure(statusCode int, err error) AnalyzeOutcome {
	c.logFailure("submit_analysis", statusCode, err)
	return AnalyzeOutcome{
		Success:    false,
		StatusCode: statusCode,
		Reason:     domain.NewGatewayError("submit_analysis", statusCode, err),
	}
}

func (c *Client) logFailure(op string, statusCode int, err error) {
	if c.logger == nil {
		return
	}
	fields := logrus.Fields{"op": op}
	if statusCode != 0 {
		fields["status_code"] = statusCode
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.logger.WithFields(fields).Warn("inference backend call failed")
}
