// Package sonar proxies chat completions to the Perplexity API and reports
// the backend's health.
package sonar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Defaults applied when the corresponding setting is empty.
const (
	DefaultBaseURL     = "https://api.perplexity.ai"
	DefaultModel       = "llama-3-sonar-small-32k-online"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7

	upstreamTimeout = 60 * time.Second
)

// ErrMissingAPIKey is returned when no Perplexity key is configured.
var ErrMissingAPIKey = errors.New("Perplexity API key is not set") //nolint:staticcheck // shown to API clients verbatim

// UpstreamError is a non-200 answer from the Perplexity API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return "Perplexity API error: " + e.Message
}

// Config configures the upstream client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the proxy's request body.
type CompletionRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// upstreamRequest is what Perplexity receives. Zero max_tokens,
// temperature or stream are left out.
type upstreamRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Service calls the Perplexity chat completions endpoint.
type Service struct {
	cfg    Config
	client *resty.Client
}

// NewService creates a Service, filling unset fields with defaults.
func NewService(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(upstreamTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &Service{cfg: cfg, client: client}
}

// Model returns the model used when a request names none.
func (s *Service) Model() string { return s.cfg.Model }

// Configured reports whether an API key is set.
func (s *Service) Configured() bool { return s.cfg.APIKey != "" }

// CreateChatCompletion forwards req and returns the upstream JSON unchanged.
func (s *Service) CreateChatCompletion(ctx context.Context, req CompletionRequest) (json.RawMessage, error) {
	if !s.Configured() {
		return nil, ErrMissingAPIKey
	}

	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.cfg.APIKey).
		SetBody(upstreamRequest{
			Model:       model,
			Messages:    req.Messages,
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
			Stream:      req.Stream,
		}).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("perplexity request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode(), Message: upstreamMessage(resp.StatusCode(), resp.Body())}
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, &UpstreamError{Status: resp.StatusCode(), Message: "invalid JSON response"}
	}
	return json.RawMessage(body), nil
}

// upstreamMessage extracts error.message from an error body. A body that is
// not JSON is reported by its status code.
func upstreamMessage(status int, body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Sprintf("HTTP error %d", status)
	}
	if parsed.Error.Message == "" {
		return "Unknown error"
	}
	return parsed.Error.Message
}
