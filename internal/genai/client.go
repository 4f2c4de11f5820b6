// internal/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/common/metrics"
	"advisor-engine/internal/common/validation"
)

const (
	DefaultTimeout = 15 * time.Second
	generatePath   = "/api/ai/generate"
	maxBodyBytes   = 1 << 20
)

// ErrAIUnavailable is the single error every remote failure maps to.
var ErrAIUnavailable = errors.New("remote AI unavailable")

var responseSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1}
  }
}`)

// Message is one history entry sent to the remote model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries ordered history plus a flat situational record.
type Request struct {
	Messages []Message             `json:"messages"`
	Context  map[string]interface{} `json:"context"`
}

type response struct {
	Text string `json:"text"`
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Generator is what the coordinator depends on.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Client struct {
	config Config
	client *http.Client
	tracer trace.Tracer
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		config: cfg,
		client: &http.Client{},
		tracer: otel.Tracer("advisor-engine/genai"),
		logger: log.With(map[string]interface{}{"component": "genai"}),
	}
}

// Generate performs exactly one POST. The deadline is the shorter of the
// caller's and the configured timeout. Any failure wraps ErrAIUnavailable.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	ctx, span := c.tracer.Start(ctx, "genai.Generate", trace.WithAttributes(
		attribute.Int("genai.messages", len(req.Messages)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := c.do(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RemoteAIDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	c.logger.Debug("remote generation completed", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
		"chars":      len(text),
	})
	return text, nil
}

func (c *Client) do(ctx context.Context, req Request) (string, error) {
	if req.Messages == nil {
		req.Messages = []Message{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", unavailable(apperrors.NewAIUnavailableError(fmt.Errorf("encode request: %w", err)))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", unavailable(apperrors.NewAIUnavailableError(err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", unavailable(apperrors.NewAITimeoutError(c.config.Timeout))
		}
		return "", unavailable(apperrors.NewAIUnavailableError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", unavailable(apperrors.NewAITimeoutError(c.config.Timeout))
		}
		return "", unavailable(apperrors.NewAIUnavailableError(fmt.Errorf("read body: %w", err)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", unavailable(apperrors.NewAIUnavailableError(fmt.Errorf("status %d", resp.StatusCode)).
			WithMetadata("status", resp.StatusCode))
	}

	if res := responseSchema.ValidateBytes(raw); !res.Valid {
		return "", unavailable(apperrors.NewAIUnavailableError(fmt.Errorf("invalid payload: %s", res.Error())))
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", unavailable(apperrors.NewAIUnavailableError(fmt.Errorf("decode: %w", err)))
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", unavailable(apperrors.NewAIUnavailableError(errors.New("blank text")))
	}
	return out.Text, nil
}

func unavailable(stdErr *apperrors.StandardError) error {
	return fmt.Errorf("%w: %w", ErrAIUnavailable, stdErr)
}
