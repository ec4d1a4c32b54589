// Package remote is the client for the external auth and chat API.
//
// Both exchanges are single request/response calls. Nothing is retried and
// the caller decides how a failure is shown.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/go-resty/resty/v2"
)

const (
	loginPath           = "/api/v1/user/login"
	chatCompletionsPath = "/api/v1/chat/completions"

	// DefaultChatModel is the model name sent with every chat request.
	DefaultChatModel = "sonar"
)

// ErrNetwork wraps transport-level failures (connection refused, DNS, timeout).
var ErrNetwork = errors.New("remote: network error")

// ErrMissingToken is returned when a successful login response carries no token.
var ErrMissingToken = errors.New("remote: login response has no token")

// APIError is a non-success HTTP response from the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Status)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
}

// Config configures a Client.
type Config struct {
	AuthBaseURL string
	ChatBaseURL string
	ChatModel   string
	// Timeout bounds each request; zero means no timeout.
	Timeout time.Duration
}

// Client talks to the login and chat completion endpoints.
type Client struct {
	auth  *resty.Client
	chat  *resty.Client
	model string
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	model := strings.TrimSpace(cfg.ChatModel)
	if model == "" {
		model = DefaultChatModel
	}
	return &Client{
		auth:  newResty(cfg.AuthBaseURL, cfg.Timeout),
		chat:  newResty(cfg.ChatBaseURL, cfg.Timeout),
		model: model,
	}
}

func newResty(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Login exchanges email and password for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Credentials, error) {
	var out domain.Credentials
	var failure errorBody

	resp, err := c.auth.R().
		SetContext(ctx).
		SetBody(loginRequest{Email: email, Password: password}).
		SetResult(&out).
		SetError(&failure).
		Post(loginPath)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("%w: login: %v", ErrNetwork, err)
	}

	if !resp.IsSuccess() {
		return domain.Credentials{}, &APIError{Status: resp.StatusCode(), Message: failure.Message}
	}
	if out.AccessToken == "" {
		return domain.Credentials{}, ErrMissingToken
	}
	return out, nil
}

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the body of a chat completion call.
type ChatCompletionRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatCompletionResponse is the subset of a completion response the site reads.
type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Content returns the first choice's content, or "" when absent.
func (r ChatCompletionResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// SendChatMessage sends text as a single user turn and returns the reply.
// An empty reply is not an error.
func (c *Client) SendChatMessage(ctx context.Context, text string) (string, error) {
	var out ChatCompletionResponse
	var failure errorBody

	resp, err := c.chat.R().
		SetContext(ctx).
		SetBody(ChatCompletionRequest{
			Model:    c.model,
			Messages: []ChatMessage{{Role: "user", Content: text}},
			Stream:   false,
		}).
		SetResult(&out).
		SetError(&failure).
		Post(chatCompletionsPath)
	if err != nil {
		return "", fmt.Errorf("%w: chat: %v", ErrNetwork, err)
	}

	if !resp.IsSuccess() {
		msg := failure.Message
		if msg == "" {
			msg = failure.Detail
		}
		return "", &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return out.Content(), nil
}
