package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/epigenicai/genagent/types"
)

// ClientConfig holds the knobs shared by all HTTP-backed capability clients.
type ClientConfig struct {
	Name    string        `yaml:"name"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	// RatePerSecond caps outgoing requests; 0 disables client-side limiting.
	RatePerSecond float64 `yaml:"rate_per_second"`
	// RateBurst is the limiter burst size; defaults to 1 when rate limiting
	// is enabled.
	RateBurst int `yaml:"rate_burst"`
	// Retry overrides the default retry policy when set.
	Retry *RetryPolicy `yaml:"-"`
	// Recorder observes call outcomes; nil disables recording.
	Recorder Recorder `yaml:"-"`
}

// Recorder receives the outcome of every capability request attempt.
type Recorder interface {
	RecordCapabilityRequest(capability, status string, duration time.Duration)
}

// baseClient provides the shared HTTP plumbing for capability adapters:
// timeout, API-key auth, client-side rate limiting, and transient-error
// retry with exponential backoff.
type baseClient struct {
	name    string
	client  *http.Client
	baseURL string
	apiKey  string
	limiter  *rate.Limiter
	retryer  *Retryer
	recorder Recorder
	logger   *zap.Logger
}

func newBaseClient(cfg ClientConfig, logger *zap.Logger) *baseClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	log := logger.With(zap.String("component", "capability"), zap.String("client", cfg.Name))
	return &baseClient{
		name:     cfg.Name,
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		limiter:  limiter,
		retryer:  NewRetryer(cfg.Retry, log),
		recorder: cfg.Recorder,
		logger:   log,
	}
}

// postJSON performs a rate-limited, retried POST of in as JSON and decodes
// the response body into out.
func (c *baseClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return types.NewError(types.ErrInvalidInput, "encode request").WithCause(err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

// getJSON performs a rate-limited, retried GET and decodes the response body
// into out. The path must already carry its query string.
func (c *baseClient) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *baseClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	return c.retryer.Do(ctx, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return types.NewError(types.ErrCancelled, "rate limiter wait").WithCause(err)
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return types.NewError(types.ErrInvalidInput, "build request").WithCause(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			c.record("error", start)
			if ctx.Err() != nil {
				return types.NewError(types.ErrCancelled, "request cancelled").WithCause(ctx.Err())
			}
			return types.NewError(types.ErrTransientIO,
				fmt.Sprintf("%s %s failed", method, path)).WithCause(err)
		}
		defer resp.Body.Close()

		c.logger.Debug("capability request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)

		if err := c.checkStatus(resp); err != nil {
			c.record("error", start)
			return err
		}
		c.record("ok", start)
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return types.NewError(types.ErrTransientIO, "decode response").WithCause(err)
		}
		return nil
	})
}

func (c *baseClient) record(status string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordCapabilityRequest(c.name, status, time.Since(start))
	}
}

// checkStatus maps HTTP status classes onto the pipeline error taxonomy.
func (c *baseClient) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return types.NewError(types.ErrNotFound, c.name+" returned 404")
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, c.name+" rate limited")
	case resp.StatusCode >= 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.Errorf(types.ErrTransientIO, "%s upstream error %d: %s",
			c.name, resp.StatusCode, strings.TrimSpace(string(msg)))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.Errorf(types.ErrCapabilityUnavailable, "%s rejected request %d: %s",
			c.name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
