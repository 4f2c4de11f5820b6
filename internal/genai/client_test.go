// internal/genai/client_test.go
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
)

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	return NewClient(Config{BaseURL: url + "/", APIKey: "secret", Timeout: timeout}, logger.NewTestLogger(t))
}

// ==========================
// Success
// ==========================

func TestGenerate_Success(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"text":"Focus on one channel this week."}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Second)
	text, err := c.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "what next?"}},
		Context:  map[string]interface{}{"brandName": "Acme"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Focus on one channel this week.", text)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "what next?", got.Messages[0].Content)
	assert.Equal(t, "Acme", got.Context["brandName"])
}

func TestGenerate_SingleAttempt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, time.Second).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

// ==========================
// Failure modes
// ==========================

func TestGenerate_FailuresMapToUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"text":"ignored"}`},
		{"unauthorized", http.StatusUnauthorized, ``},
		{"malformed json", http.StatusOK, `{"text":`},
		{"missing text", http.StatusOK, `{"answer":"hi"}`},
		{"empty text", http.StatusOK, `{"text":""}`},
		{"blank text", http.StatusOK, `{"text":"   "}`},
		{"wrong type", http.StatusOK, `{"text":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			text, err := newTestClient(t, server.URL, time.Second).Generate(context.Background(), Request{})
			require.Error(t, err)
			assert.Empty(t, text)
			assert.True(t, errors.Is(err, ErrAIUnavailable))

			stdErr := apperrors.AsStandard(err)
			require.NotNil(t, stdErr)
			assert.Equal(t, apperrors.ErrCodeAIUnavailable, stdErr.Code)
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := newTestClient(t, server.URL, 50*time.Millisecond).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAIUnavailable))

	stdErr := apperrors.AsStandard(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeAITimeout, stdErr.Code)
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url, time.Second).Generate(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrAIUnavailable))
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://x"}, logger.NewNoOpLogger())
	assert.Equal(t, DefaultTimeout, c.config.Timeout)
}
