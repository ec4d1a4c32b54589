package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/ashureev/cosmic-frontier/internal/metrics"
	"github.com/ashureev/cosmic-frontier/internal/richtext"
	"github.com/ashureev/cosmic-frontier/internal/session"
	"github.com/coder/websocket"
)

// Hub tracks open live chat connections per visitor.
type Hub struct {
	mu     sync.Mutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[*websocket.Conn]struct{})}
}

// Register adds conn for visitorID.
func (h *Hub) Register(visitorID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.active[visitorID]; !ok {
		h.active[visitorID] = make(map[*websocket.Conn]struct{})
	}
	h.active[visitorID][conn] = struct{}{}
	metrics.ChatSockets.Inc()
	slog.Debug("Chat socket registered", "visitor_id", visitorID)
}

// Unregister removes conn for visitorID.
func (h *Hub) Unregister(visitorID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.active[visitorID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.active, visitorID)
	}
	metrics.ChatSockets.Dec()
	slog.Debug("Chat socket unregistered", "visitor_id", visitorID)
}

// Count returns the number of open connections for visitorID.
func (h *Hub) Count(visitorID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active[visitorID])
}

// CloseVisitor closes every connection the visitor holds.
func (h *Hub) CloseVisitor(visitorID string) {
	h.closeVisitor(visitorID, websocket.StatusPolicyViolation, "logged out")
}

func (h *Hub) closeVisitor(visitorID string, code websocket.StatusCode, reason string) {
	h.mu.Lock()
	conns := h.active[visitorID]
	delete(h.active, visitorID)
	h.mu.Unlock()

	// Close waits for the peer's handshake, so it must not block the publisher.
	for conn := range conns {
		metrics.ChatSockets.Dec()
		go func(c *websocket.Conn) {
			_ = c.Close(code, reason)
		}(conn)
	}
	if len(conns) > 0 {
		slog.Info("Chat sockets closed", "visitor_id", visitorID, "count", len(conns))
	}
}

// CloseAll closes every tracked connection. Register it with
// http.Server.RegisterOnShutdown; Shutdown does not track hijacked sockets.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	visitors := make([]string, 0, len(h.active))
	for id := range h.active {
		visitors = append(visitors, id)
	}
	h.mu.Unlock()

	for _, id := range visitors {
		h.closeVisitor(id, websocket.StatusGoingAway, "server shutting down")
	}
}

// OnAuthChanged closes live chats when a visitor logs out. Subscribe it to a
// session.Notifier.
func (h *Hub) OnAuthChanged(ev session.AuthEvent) {
	if !ev.Authenticated {
		h.CloseVisitor(ev.VisitorID)
	}
}

// Frame types exchanged on the live channel.
const (
	FrameMessage = "message"
	FrameLoading = "loading"
	FramePing    = "ping"
	FramePong    = "pong"
)

type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// WireMessage is a transcript message as sent to the browser. HTML is the
// escaped or allow-listed rendering of Text.
type WireMessage struct {
	domain.Message
	HTML string `json:"html"`
}

type serverFrame struct {
	Type    string       `json:"type"`
	Message *WireMessage `json:"message,omitempty"`
}

// NewWireMessage renders m for the browser.
func NewWireMessage(m domain.Message) *WireMessage {
	rendered := richtext.Plain(m.Text)
	if !m.IsUser() {
		rendered = richtext.Render(m.Text)
	}
	return &WireMessage{Message: m, HTML: rendered}
}

// WebSocketHandler serves the live chat channel.
type WebSocketHandler struct {
	svc           *Service
	visits        *session.Manager
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a live chat handler.
func NewWebSocketHandler(svc *Service, visits *session.Manager, hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		svc:           svc,
		visits:        visits,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	visitorID := session.VisitorIDFromContext(r.Context())
	if !session.AuthFromContext(r.Context()).Authenticated {
		http.Error(w, "login required", http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "visitor_id", visitorID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "visitor_id", visitorID)
		}
	}()

	h.hub.Register(visitorID, ws)
	defer h.hub.Unregister(visitorID, ws)

	h.readLoop(r.Context(), ws, visitorID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, visitorID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "visitor_id", visitorID)
			} else {
				slog.Debug("WebSocket read ended", "error", err, "visitor_id", visitorID)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Debug("Ignoring malformed chat frame", "visitor_id", visitorID)
			continue
		}

		switch frame.Type {
		case FramePing:
			if err := writeFrame(ctx, ws, serverFrame{Type: FramePong}); err != nil {
				return
			}
		case FrameMessage:
			if err := h.exchange(ctx, ws, visitorID, frame.Content); err != nil {
				slog.Debug("Chat write failed", "error", err, "visitor_id", visitorID)
				return
			}
		}
	}
}

// exchange runs one chat turn, reporting each step to the socket.
func (h *WebSocketHandler) exchange(ctx context.Context, ws *websocket.Conn, visitorID, content string) error {
	transcript := h.visits.Get(visitorID).Transcript()
	user, finish, ok := h.svc.Begin(ctx, transcript, content)
	if !ok {
		return nil
	}

	err := writeFrame(ctx, ws, serverFrame{Type: FrameMessage, Message: NewWireMessage(user)})
	if err == nil {
		err = writeFrame(ctx, ws, serverFrame{Type: FrameLoading})
	}

	// The reply lands in the transcript even if the socket is gone by then.
	reply := finish()
	if err != nil {
		return err
	}
	return writeFrame(ctx, ws, serverFrame{Type: FrameMessage, Message: NewWireMessage(reply)})
}

func writeFrame(ctx context.Context, ws *websocket.Conn, v serverFrame) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
