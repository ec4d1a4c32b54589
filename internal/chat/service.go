// Package chat runs the SONAR chat exchange against a visitor's transcript.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/ashureev/cosmic-frontier/internal/metrics"
	"github.com/ashureev/cosmic-frontier/internal/remote"
)

// Fixed assistant replies used when the remote call does not produce one.
const (
	FallbackReply = "Sorry, there was a problem connecting to SONAR."
	EmptyReply    = "Sorry, I couldn't understand that."
)

// Sender sends one chat prompt and returns the reply text.
type Sender interface {
	SendChatMessage(ctx context.Context, text string) (string, error)
}

// Service appends chat turns to transcripts.
type Service struct {
	sender Sender
}

// NewService creates a Service that sends prompts through sender.
func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

// Submit appends the user's text, asks the remote API for a reply and
// appends it, or a fallback when the call fails. Blank input is ignored
// and yields no messages. Submit never fails.
//
// The remote call is detached from ctx cancellation: once issued it runs
// to completion even if the visitor navigates away.
func (s *Service) Submit(ctx context.Context, t *domain.Transcript, text string) []domain.Message {
	user, finish, ok := s.Begin(ctx, t, text)
	if !ok {
		return nil
	}
	return []domain.Message{user, finish()}
}

// Begin appends the user's message and returns a function that completes
// the exchange. The live channel uses it to show the user turn before the
// reply is known.
func (s *Service) Begin(ctx context.Context, t *domain.Transcript, text string) (domain.Message, func() domain.Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, nil, false
	}

	user := t.Append(domain.SenderUser, text)
	detached := context.WithoutCancel(ctx)
	finish := func() domain.Message {
		return t.Append(domain.SenderAssistant, s.reply(detached, text))
	}
	return user, finish, true
}

func (s *Service) reply(ctx context.Context, text string) string {
	reply, err := s.sender.SendChatMessage(ctx, text)
	if err != nil {
		var apiErr *remote.APIError
		switch {
		case errors.As(err, &apiErr):
			slog.Warn("Chat request rejected", "status", apiErr.Status, "error", apiErr.Message)
			metrics.ChatReplies.WithLabelValues("api_error").Inc()
		case errors.Is(err, remote.ErrNetwork):
			slog.Warn("Chat request failed", "error", err)
			metrics.ChatReplies.WithLabelValues("network_error").Inc()
		default:
			slog.Warn("Chat request failed", "error", err)
			metrics.ChatReplies.WithLabelValues("error").Inc()
		}
		return FallbackReply
	}

	if strings.TrimSpace(reply) == "" {
		metrics.ChatReplies.WithLabelValues("empty").Inc()
		return EmptyReply
	}
	metrics.ChatReplies.WithLabelValues("ok").Inc()
	return reply
}
