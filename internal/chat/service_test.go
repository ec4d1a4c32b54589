package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/ashureev/cosmic-frontier/internal/remote"
	"github.com/ashureev/cosmic-frontier/internal/session"
	"github.com/coder/websocket"
)

type fakeSender struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	ctxErr  error
}

func (f *fakeSender) SendChatMessage(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
	f.ctxErr = ctx.Err()
	return f.reply, f.err
}

func TestSubmitAppendsUserThenAssistant(t *testing.T) {
	svc := NewService(&fakeSender{reply: "Hi there"})
	tr := domain.NewTranscript()

	got := svc.Submit(context.Background(), tr, "Hello")

	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Sender != domain.SenderUser || got[0].Text != "Hello" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Sender != domain.SenderAssistant || got[1].Text != "Hi there" {
		t.Errorf("second = %+v", got[1])
	}
	if tr.Len() != 3 {
		t.Errorf("transcript len = %d, want greeting + 2", tr.Len())
	}
}

func TestSubmitFallbacks(t *testing.T) {
	tests := []struct {
		name string
		err  error
		rep  string
		want string
	}{
		{"network", fmt.Errorf("%w: chat: refused", remote.ErrNetwork), "", FallbackReply},
		{"api error", &remote.APIError{Status: 500, Message: "boom"}, "", FallbackReply},
		{"other error", errors.New("decode"), "", FallbackReply},
		{"empty reply", nil, "   ", EmptyReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeSender{reply: tt.rep, err: tt.err})
			tr := domain.NewTranscript()

			got := svc.Submit(context.Background(), tr, "Hello")
			if len(got) != 2 {
				t.Fatalf("got %d messages, want 2", len(got))
			}
			if got[0].Text != "Hello" || got[1].Text != tt.want {
				t.Fatalf("messages = %+v", got)
			}
		})
	}
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	sender := &fakeSender{reply: "x"}
	svc := NewService(sender)
	tr := domain.NewTranscript()

	if got := svc.Submit(context.Background(), tr, "  \n "); got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
	if tr.Len() != 1 || len(sender.prompts) != 0 {
		t.Fatal("blank input reached the transcript or the sender")
	}
}

func TestSubmitSendsTrimmedPrompt(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	NewService(sender).Submit(context.Background(), domain.NewTranscript(), "  Hello  ")
	if len(sender.prompts) != 1 || sender.prompts[0] != "Hello" {
		t.Fatalf("prompts = %q", sender.prompts)
	}
}

func TestSubmitDetachesFromCancellation(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := NewService(sender).Submit(ctx, domain.NewTranscript(), "Hello")
	if sender.ctxErr != nil {
		t.Fatalf("sender saw cancelled context: %v", sender.ctxErr)
	}
	if len(got) != 2 || got[1].Text != "ok" {
		t.Fatalf("messages = %+v", got)
	}
}

func TestNewWireMessageEscapesUserText(t *testing.T) {
	user := NewWireMessage(domain.Message{Sender: domain.SenderUser, Text: "<b>x</b>"})
	if strings.Contains(user.HTML, "<b>") {
		t.Fatalf("user html not escaped: %q", user.HTML)
	}

	bot := NewWireMessage(domain.Message{Sender: domain.SenderAssistant, Text: "<b>x</b><script>y</script>"})
	if !strings.Contains(bot.HTML, "<b>x</b>") || strings.Contains(bot.HTML, "<script") {
		t.Fatalf("assistant html = %q", bot.HTML)
	}
}

func newLiveServer(t *testing.T, sender Sender, authenticated bool) (*httptest.Server, *session.Manager, *Hub) {
	t.Helper()
	visits := session.NewManager()
	hub := NewHub()
	h := NewWebSocketHandler(NewService(sender), visits, hub, "*", true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := session.WithVisitorID(r.Context(), "v1")
		ctx = session.WithAuth(ctx, session.Auth{Authenticated: authenticated})
		h.ServeHTTP(w, r.WithContext(ctx))
	}))
	t.Cleanup(srv.Close)
	return srv, visits, hub
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readFrame(ctx context.Context, t *testing.T, c *websocket.Conn) serverFrame {
	t.Helper()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f serverFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return f
}

func TestWebSocketExchange(t *testing.T) {
	srv, visits, _ := newLiveServer(t, &fakeSender{reply: "Hi there"}, true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "")

	if err := c.Write(ctx, websocket.MessageText, []byte(`{"type":"message","content":"Hello"}`)); err != nil {
		t.Fatal(err)
	}

	user := readFrame(ctx, t, c)
	if user.Type != FrameMessage || user.Message == nil || user.Message.Text != "Hello" {
		t.Fatalf("first frame = %+v", user)
	}
	if f := readFrame(ctx, t, c); f.Type != FrameLoading {
		t.Fatalf("second frame = %+v", f)
	}
	reply := readFrame(ctx, t, c)
	if reply.Message == nil || reply.Message.Sender != domain.SenderAssistant || reply.Message.Text != "Hi there" {
		t.Fatalf("third frame = %+v", reply)
	}

	if n := visits.Get("v1").Transcript().Len(); n != 3 {
		t.Fatalf("transcript len = %d, want 3", n)
	}
}

func TestWebSocketRequiresAuth(t *testing.T) {
	srv, _, _ := newLiveServer(t, &fakeSender{}, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err == nil {
		t.Fatal("dial succeeded without auth")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestLogoutClosesSockets(t *testing.T) {
	srv, _, hub := newLiveServer(t, &fakeSender{}, true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	// Round-trip a ping so the server has registered the socket.
	if err := c.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(ctx, t, c); f.Type != FramePong {
		t.Fatalf("frame = %+v", f)
	}
	if hub.Count("v1") != 1 {
		t.Fatalf("Count() = %d", hub.Count("v1"))
	}

	n := session.NewNotifier()
	n.Subscribe(hub.OnAuthChanged)
	n.Publish(session.AuthEvent{VisitorID: "v1", Authenticated: false})

	if _, _, err := c.Read(ctx); websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("read after logout: %v", err)
	}
	if hub.Count("v1") != 0 {
		t.Fatal("hub still tracks closed socket")
	}
}

func TestCloseAllClosesEverySocket(t *testing.T) {
	srv, _, hub := newLiveServer(t, &fakeSender{}, true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	if err := c.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	readFrame(ctx, t, c)

	hub.CloseAll()

	if _, _, err := c.Read(ctx); websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Fatalf("read after CloseAll: %v", err)
	}
	if hub.Count("v1") != 0 {
		t.Fatal("hub still tracks closed socket")
	}
}
