package sonar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstreamCall struct {
	auth string
	body map[string]any
}

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *upstreamCall) {
	t.Helper()
	call := &upstreamCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		call.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &call.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, call
}

func newRouter(svc *Service, db Pinger) http.Handler {
	h := NewHandler(svc, db)
	r := chi.NewRouter()
	h.Mount(r)
	r.Get("/health", h.Health)
	return r
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got["detail"]
}

const okCompletion = `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"Hi there"}}]}`

func TestCompletionsForwardsWithDefaults(t *testing.T) {
	up, call := newUpstream(t, http.StatusOK, okCompletion)
	svc := NewService(Config{APIKey: "key", BaseURL: up.URL, MaxTokens: 4096, Temperature: 0.7})

	w := post(t, newRouter(svc, nil), `{"messages":[{"role":"user","content":"Hello"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, okCompletion, w.Body.String())
	assert.Equal(t, "Bearer key", call.auth)
	assert.Equal(t, DefaultModel, call.body["model"])
	assert.EqualValues(t, 4096, call.body["max_tokens"])
	assert.InDelta(t, 0.7, call.body["temperature"], 1e-9)
	_, hasStream := call.body["stream"]
	assert.False(t, hasStream, "stream sent when false")
}

func TestCompletionsKeepsRequestModelAndStream(t *testing.T) {
	up, call := newUpstream(t, http.StatusOK, okCompletion)
	svc := NewService(Config{APIKey: "key", BaseURL: up.URL})

	w := post(t, newRouter(svc, nil), `{"model":"sonar","stream":true,"messages":[{"role":"user","content":"Hello"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sonar", call.body["model"])
	assert.Equal(t, true, call.body["stream"])
	_, hasMax := call.body["max_tokens"]
	assert.False(t, hasMax, "zero max_tokens sent")
}

func TestCompletionsMissingKey(t *testing.T) {
	svc := NewService(Config{})

	w := post(t, newRouter(svc, nil), `{"messages":[{"role":"user","content":"Hello"}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Perplexity API key is not set", decodeDetail(t, w))
}

func TestCompletionsUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error message", http.StatusUnauthorized, `{"error":{"message":"Invalid API key"}}`, "Perplexity API error: Invalid API key"},
		{"no message", http.StatusBadRequest, `{"detail":"x"}`, "Perplexity API error: Unknown error"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Perplexity API error: HTTP error 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, _ := newUpstream(t, tt.status, tt.body)
			svc := NewService(Config{APIKey: "key", BaseURL: up.URL})

			w := post(t, newRouter(svc, nil), `{"messages":[{"role":"user","content":"Hello"}]}`)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tt.want, decodeDetail(t, w))
		})
	}
}

func TestCompletionsRejectsEmptyMessages(t *testing.T) {
	svc := NewService(Config{APIKey: "key"})

	w := post(t, newRouter(svc, nil), `{"messages":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = post(t, newRouter(svc, nil), `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateChatCompletionTypedErrors(t *testing.T) {
	_, err := NewService(Config{}).CreateChatCompletion(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	up, _ := newUpstream(t, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
	_, err = NewService(Config{APIKey: "k", BaseURL: up.URL}).CreateChatCompletion(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.Status)
}

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

func getHealth(t *testing.T, svc *Service, db Pinger) (int, HealthReport) {
	t.Helper()
	w := httptest.NewRecorder()
	newRouter(svc, db).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var report HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	return w.Code, report
}

func TestHealthHealthy(t *testing.T) {
	code, report := getHealth(t, NewService(Config{APIKey: "key"}), fakeDB{})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, Version, report.Version)
	assert.True(t, report.PerplexityAPI.Connected)
	require.NotNil(t, report.PerplexityAPI.Model)
	assert.Equal(t, DefaultModel, *report.PerplexityAPI.Model)
	assert.True(t, report.Database.Connected)
	assert.Nil(t, report.Database.Error)
}

func TestHealthUnhealthyDatabase(t *testing.T) {
	code, report := getHealth(t, NewService(Config{}), fakeDB{err: errors.New("disk gone")})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", report.Status)
	assert.False(t, report.Database.Connected)
	require.NotNil(t, report.Database.Error)
	assert.Equal(t, "disk gone", *report.Database.Error)
	assert.False(t, report.PerplexityAPI.Connected)
	require.NotNil(t, report.PerplexityAPI.Error)
	assert.Equal(t, "API key not configured", *report.PerplexityAPI.Error)
}

func TestHealthWithoutDatabase(t *testing.T) {
	code, _ := getHealth(t, NewService(Config{APIKey: "key"}), nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
