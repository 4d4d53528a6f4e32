// Package llm adapts the two supported provider wire protocols behind one
// client interface: OpenAI-compatible chat-completions and single-string
// inference endpoints. Callers never branch on the protocol themselves.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/pkg/httpx"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
)

// Completion is the normalized result of a generation call.
type Completion struct {
	Text    string
	Latency time.Duration
}

// Client is the provider-agnostic surface consumed by the chat facade and
// the ingestion pipeline.
type Client interface {
	CreateChatCompletion(ctx context.Context, segments []prompt.Segment) (Completion, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Config carries call tuning shared by both adapter variants.
type Config struct {
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	MaxTokens   int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.8
	}
	return c
}

type providerHTTPError struct {
	StatusCode int
	Body       string
}

func (e *providerHTTPError) Error() string {
	return fmt.Sprintf("provider http %d: %s", e.StatusCode, e.Body)
}

func (e *providerHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// mapProviderError translates transport-level failures into the error kinds
// the facade distinguishes on.
func mapProviderError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.New(errors.KindCancelled, err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.New(errors.KindProviderTimeout, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.New(errors.KindProviderTimeout, err)
	}
	var httpErr *providerHTTPError
	if stderrors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.New(errors.KindProviderAuth, err)
		}
		return errors.New(errors.KindProviderProtocol, err)
	}
	return errors.New(errors.KindProviderProtocol, err)
}

// caller is the shared HTTP plumbing for both adapter variants: bearer auth,
// JSON bodies, bounded retries with jittered backoff.
type caller struct {
	log        *logger.Logger
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func newCaller(log *logger.Logger, apiKey string, cfg Config) caller {
	return caller{
		log:        log,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}
}

func (c *caller) doOnce(ctx context.Context, method, url string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &providerHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *caller) do(ctx context.Context, method, url string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return mapProviderError(ctx.Err())
		}

		resp, raw, err := c.doOnce(ctx, method, url, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return errors.Newf(errors.KindProviderProtocol, "decode response: %v; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return mapProviderError(err)
		}
		if attempt == c.maxRetries {
			return mapProviderError(err)
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("provider request retrying",
			"url", url,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return mapProviderError(ctx.Err())
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return errors.Newf(errors.KindProviderProtocol, "unreachable retry loop")
}
