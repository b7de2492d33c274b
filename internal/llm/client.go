// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls a configurable text-generation API and turns its
// free-form output into validated structured records. The client owns rate
// limiting, retry/backoff, and response sanitization; provider differences
// live in a data table, not in code.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-assistant/pkg/types"
)

// Caller is the single operation pipeline stages need from the client.
// Tests substitute a mock.
type Caller interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// backoffUnit scales all backoff and jitter durations. Tests override it
// to avoid real sleeps.
var backoffUnit = time.Second

const (
	defaultMaxRetries  = 3
	defaultTimeout     = 30 * time.Second
	defaultMaxRequests = 60
	defaultRatePeriod  = time.Minute

	rateLimitCapSeconds = 30
	serverErrCapSeconds = 10
)

// retryableStatus marks transient server-side failures worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client calls one text-generation provider. It is re-creatable per stage;
// the only state it owns is the limiter's in-memory request-time window.
type Client struct {
	provider   Provider
	model      string
	url        string
	apiKey     string
	maxRetries int

	httpClient *http.Client
	limiter    *windowLimiter
	log        zerolog.Logger

	randf func() float64
}

// New builds a client from configuration. The API key falls back to the
// provider's environment variable; only the local provider may run without
// one.
func New(cfg types.LLMConfig, log zerolog.Logger) (*Client, error) {
	p, ok := LookupProvider(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q: choose from %s",
			cfg.Provider, strings.Join(ProviderNames(), ", "))
	}

	apiKey := cfg.APIKey
	if apiKey == "" && p.KeyEnv != "" {
		apiKey = os.Getenv(p.KeyEnv)
	}
	if apiKey == "" && p.KeyEnv != "" {
		return nil, fmt.Errorf("api key not set: pass --api-key or set %s", p.KeyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = p.DefaultModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = p.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = defaultMaxRequests
	}
	ratePeriod := cfg.RatePeriod
	if ratePeriod <= 0 {
		ratePeriod = defaultRatePeriod
	}

	return &Client{
		provider:   p,
		model:      model,
		url:        strings.TrimSuffix(baseURL, "/") + p.Endpoint,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newWindowLimiter(maxRequests, ratePeriod),
		log:        log.With().Str("provider", p.Name).Str("model", model).Logger(),
		randf:      rand.Float64,
	}, nil
}

// Model returns the model identifier the client sends with each request.
func (c *Client) Model() string { return c.model }

// Call sends the prompt and returns sanitized completion text. Transient
// failures are retried with classified backoff; exhausting the attempt
// budget, a non-retryable status, or a security rejection returns an error
// the caller must contain at the item level.
func (c *Client) Call(ctx context.Context, prompt string) (string, error) {
	bodyBytes, err := json.Marshal(c.provider.BuildBody(prompt, c.model, c.provider.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("marshaling request body: %w", err)
	}
	headers := c.provider.BuildHeaders(c.apiKey, c.model)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if slept := c.limiter.wait(); slept > 0 {
			c.log.Debug().Dur("waited", slept).Msg("rate limit window full")
		}

		text, retryIn, err := c.attempt(ctx, bodyBytes, headers, attempt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if retryIn < 0 {
			return "", err
		}

		lastErr = err
		if attempt == c.maxRetries-1 {
			break
		}
		c.log.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", retryIn).
			Str("cause", SanitizeMessage(err.Error())).
			Msg("retrying call")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryIn):
		}
	}

	return "", &APIError{Attempts: c.maxRetries, msg: SanitizeMessage(lastErr.Error())}
}

// attempt performs one HTTP exchange. It returns the completion text on
// success; otherwise an error plus the backoff before the next attempt, or
// a negative backoff when the failure is terminal.
func (c *Client) attempt(ctx context.Context, body []byte, headers map[string]string, attempt int) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", -1, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// DNS, TCP, and timeout failures share the server-error backoff.
		return "", c.serverBackoff(attempt), fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", c.shortBackoff(), fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", c.rateBackoff(attempt), fmt.Errorf("rate limited by peer (429)")
	case retryableStatus[resp.StatusCode]:
		return "", c.serverBackoff(attempt), fmt.Errorf("server error (%d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", -1, &APIError{
			Status:   resp.StatusCode,
			Attempts: attempt + 1,
			msg:      SanitizeMessage(Truncate(string(respBody), 200)),
		}
	}

	text, err := c.provider.ExtractText(respBody)
	if err != nil {
		return "", c.shortBackoff(), err
	}
	if text == "" {
		return "", c.shortBackoff(), fmt.Errorf("empty response from api")
	}

	clean, err := sanitizeResponse(text)
	if err != nil {
		// Security rejection: terminal for this item, never retried.
		return "", -1, err
	}
	return clean, 0, nil
}

// rateBackoff is the 429 policy: 2^attempt scaled by jitter in [1,2),
// capped at 30 units.
func (c *Client) rateBackoff(attempt int) time.Duration {
	secs := math.Pow(2, float64(attempt)) * (1 + c.randf())
	return scaleBackoff(secs, rateLimitCapSeconds)
}

// serverBackoff covers 408/5xx and connection errors: 2^attempt plus
// uniform jitter, capped at 10 units.
func (c *Client) serverBackoff(attempt int) time.Duration {
	secs := math.Pow(2, float64(attempt)) + c.randf()
	return scaleBackoff(secs, serverErrCapSeconds)
}

// shortBackoff covers everything else that went wrong mid-attempt.
func (c *Client) shortBackoff() time.Duration {
	return scaleBackoff(1+c.randf(), serverErrCapSeconds)
}

func scaleBackoff(secs float64, capSeconds float64) time.Duration {
	return time.Duration(math.Min(secs, capSeconds) * float64(backoffUnit))
}
