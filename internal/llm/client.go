// Package llm sends assembled prompts to an OpenAI-chat-compatible
// text-generation backend. Every failure mode (timeout, transport
// error, empty body) degrades to a fixed fallback reply; nothing is
// retried, so turn latency stays bounded.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"council/internal/flow"
	"council/internal/prompt"
)

// FallbackReply substitutes for the model's output on any inference
// failure.
const FallbackReply = "[The council is silent. Something has gone wrong.]"

// DefaultTimeout is the fixed ceiling on one inference call.
const DefaultTimeout = 120 * time.Second

// SamplingConfig holds flow-specific sampling parameters.
type SamplingConfig struct {
	MaxTokens   int
	Temperature float64
}

// samplingFor selects parameters by flow type. The switch is
// exhaustive over flows that reach inference; anything else falls back
// to standard with a warning so a new flow cannot silently change
// sampling behavior.
func samplingFor(f flow.Type, logger *zap.Logger) SamplingConfig {
	switch f {
	case flow.Standard, flow.Ambiguous:
		return SamplingConfig{MaxTokens: 150, Temperature: 0.7}
	case flow.Archive:
		return SamplingConfig{MaxTokens: 400, Temperature: 0.2}
	case flow.Debate:
		return SamplingConfig{MaxTokens: 150, Temperature: 0.8}
	case flow.DebateInterrupt:
		return SamplingConfig{MaxTokens: 75, Temperature: 0.5}
	case flow.Spectator:
		return SamplingConfig{MaxTokens: 50, Temperature: 0.5}
	default:
		logger.Warn("no sampling config for flow, using standard",
			zap.String("flow", f.String()))
		return SamplingConfig{MaxTokens: 150, Temperature: 0.7}
	}
}

// Result is the outcome of one inference call.
type Result struct {
	Raw     string
	Flow    flow.Type
	Success bool
	// ErrTag names the failure mode: "timeout", "transport", "status",
	// "decode", or "empty".
	ErrTag string
}

// Client talks to the backend.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient constructs a Client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL, model string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt as two conversational turns (prefix as the
// system message, suffix as the user message). The returned Result
// always carries usable text; failed calls carry FallbackReply with
// Success false.
func (c *Client) Complete(ctx context.Context, p prompt.AssembledPrompt, f flow.Type) Result {
	cfg := samplingFor(f, c.logger)

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.Prefix},
			{Role: "user", Content: p.Suffix},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("inference request marshal failed", zap.Error(err))
		return c.failed(f, "transport")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		c.logger.Error("inference request build failed", zap.Error(err))
		return c.failed(f, "transport")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		tag := "transport"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			tag = "timeout"
		}
		c.logger.Error("inference request failed",
			zap.String("flow", f.String()), zap.String("reason", tag), zap.Error(err))
		return c.failed(f, tag)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("inference backend returned error status",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", msg))
		return c.failed(f, "status")
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Error("inference response decode failed", zap.Error(err))
		return c.failed(f, "decode")
	}

	raw := ""
	if len(parsed.Choices) > 0 {
		raw = strings.TrimSpace(parsed.Choices[0].Message.Content)
	}
	if raw == "" {
		c.logger.Warn("inference backend returned empty response",
			zap.String("flow", f.String()))
		return c.failed(f, "empty")
	}

	return Result{Raw: raw, Flow: f, Success: true}
}

func (c *Client) failed(f flow.Type, tag string) Result {
	return Result{Raw: FallbackReply, Flow: f, Success: false, ErrTag: tag}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
