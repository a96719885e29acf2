// Package llm wraps the chat-completions API used to generate video
// metadata from transcripts.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nijaru/yt-enrich/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultModel       = "gpt-4o"
	defaultHTTPTimeout = 60 * time.Second

	// Outbound calls are paced so a burst of workflow jobs cannot blow
	// through the provider's quota.
	defaultRequestsPerMinute = 30
)

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	N        int       `json:"n"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete issues one single-choice chat completion and returns the
// trimmed generated text. Retry policy belongs to the caller.
func (c *Client) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	const op = "LLMClient.Complete"

	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Internal(op, err, "Completion request cancelled")
	}

	payload, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		N: 1,
	})
	if err != nil {
		return "", errors.Internal(op, err, "Failed to encode completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Internal(op, err, "Failed to build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.GenerationFailed(op, err, "Completion request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.GenerationFailed(op, err, "Failed to read completion response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Completion request rejected")
		return "", errors.GenerationFailed(op, nil,
			fmt.Sprintf("Completion request returned %d", resp.StatusCode))
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.GenerationFailed(op, err, "Failed to decode completion response")
	}

	if len(parsed.Choices) == 0 {
		return "", errors.GenerationFailed(op, nil, "Completion response contained no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", errors.GenerationFailed(op, nil,
			fmt.Sprintf("Completion response contained no usable text (finish_reason=%q)",
				parsed.Choices[0].FinishReason))
	}

	return content, nil
}
