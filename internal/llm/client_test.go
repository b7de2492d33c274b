// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-assistant/pkg/types"
)

func TestMain(m *testing.M) {
	// Scale backoff down so retry tests finish in milliseconds.
	backoffUnit = time.Millisecond
	os.Exit(m.Run())
}

func completionBody(text string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, text)
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := New(types.LLMConfig{
		Provider: "local",
		Model:    "test-model",
		BaseURL:  serverURL,
	}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestCallSuccess(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, completionBody("INCLUDE: matches criteria"))
	}))
	defer ts.Close()

	text, err := testClient(t, ts.URL).Call(context.Background(), "screen this abstract")
	require.NoError(t, err)
	assert.Equal(t, "INCLUDE: matches criteria", text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCallCompletionSurvivesValidation(t *testing.T) {
	// The sanitizer escapes the completion's quotes; extraction must get
	// them back. A regression here turns every screening decision into a
	// sentinel record.
	completion := `Here is the decision:
` + "```json\n" + `{"pmid": "38000001", "decision": "INCLUDE", "confidence": 0.92,
 "reasoning": "Cohort of adults & telemedicine, per O'Brien et al.", "key_terms": ["telemedicine"]}` + "\n```"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionBody(completion))
	}))
	defer ts.Close()

	raw, err := testClient(t, ts.URL).Call(context.Background(), "screen this abstract")
	require.NoError(t, err)

	obj, err := ExtractAndValidate(raw, Schema{
		Required: []string{"pmid", "decision", "confidence", "reasoning"},
		Types: map[string][]Kind{
			"pmid":       {KindString},
			"decision":   {KindString},
			"confidence": {KindNumber},
			"reasoning":  {KindString},
			"key_terms":  {KindList, KindNull},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "38000001", obj["pmid"])
	assert.Equal(t, "INCLUDE", obj["decision"])
	assert.InDelta(t, 0.92, obj["confidence"], 1e-9)
	assert.Contains(t, obj["reasoning"], "O'Brien")
}

func TestCallBareJSONCompletionSurvivesValidation(t *testing.T) {
	completion := `{"pmid": "38000002", "title": "A study", "sample_size": {"total_patients": 120}}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionBody(completion))
	}))
	defer ts.Close()

	raw, err := testClient(t, ts.URL).Call(context.Background(), "extract this")
	require.NoError(t, err)

	obj, err := ExtractAndValidate(raw, Schema{Required: []string{"pmid"}})
	require.NoError(t, err)
	assert.Equal(t, "38000002", obj["pmid"])
	size, ok := obj["sample_size"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(120), size["total_patients"])
}

func TestCallRetriesServerErrorThenSucceeds(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, completionBody("recovered"))
	}))
	defer ts.Close()

	text, err := testClient(t, ts.URL).Call(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCallExhaustsRetriesOn429(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := testClient(t, ts.URL).Call(context.Background(), "p")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3, apiErr.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCallClientErrorIsTerminal(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid key"}`)
	}))
	defer ts.Close()

	_, err := testClient(t, ts.URL).Call(context.Background(), "p")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestCallRetriesEmptyCompletion(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, completionBody(""))
			return
		}
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer ts.Close()

	text, err := testClient(t, ts.URL).Call(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCallSecurityRejectionIsTerminal(t *testing.T) {
	var calls int32
	hostile := `<script src=x> onclick=go() javascript:alert(1) <iframe> <meta http-equiv=refresh>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, completionBody(hostile))
	}))
	defer ts.Close()

	_, err := testClient(t, ts.URL).Call(context.Background(), "p")
	require.Error(t, err)

	var secErr *SecurityError
	assert.True(t, errors.As(err, &secErr))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "rejected content must not be re-requested")
}

func TestCallContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(t, ts.URL).Call(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallConnectionErrorRetried(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ts.Close() // every attempt now fails to connect

	_, err := testClient(t, ts.URL).Call(context.Background(), "p")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3, apiErr.Attempts)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(types.LLMConfig{Provider: "skynet"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
	assert.Contains(t, err.Error(), "anthropic")
}

func TestNewRequiresKeyForHostedProviders(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	_, err := New(types.LLMConfig{Provider: "groq"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")
}

func TestNewKeyFromEnvironment(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gk-test")
	c, err := New(types.LLMConfig{Provider: "groq"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "mixtral-8x7b-32768", c.Model())
}

func TestRateBackoffBounds(t *testing.T) {
	c := &Client{randf: func() float64 { return 0.5 }}

	// 2^attempt * jitter in [1,2), capped at 30 units.
	assert.Equal(t, scaleBackoff(1.5, 30), c.rateBackoff(0))
	assert.Equal(t, scaleBackoff(6, 30), c.rateBackoff(2))
	assert.Equal(t, scaleBackoff(30, 30), c.rateBackoff(10), "large attempts hit the cap")
}

func TestServerBackoffBounds(t *testing.T) {
	c := &Client{randf: func() float64 { return 0.25 }}

	// 2^attempt plus jitter, capped at 10 units.
	assert.Equal(t, scaleBackoff(1.25, 10), c.serverBackoff(0))
	assert.Equal(t, scaleBackoff(4.25, 10), c.serverBackoff(2))
	assert.Equal(t, scaleBackoff(10, 10), c.serverBackoff(6))
}
