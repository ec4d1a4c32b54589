package sonar

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/cosmic-frontier/internal/api"
	"github.com/ashureev/cosmic-frontier/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const maxRequestBody = 1 << 20

// Pinger checks a dependency's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the chat completions proxy and the health check.
type Handler struct {
	svc     *Service
	db      Pinger
	started time.Time
	now     func() time.Time
}

// NewHandler creates a Handler. db may be nil, in which case the database
// is reported as disconnected.
func NewHandler(svc *Service, db Pinger) *Handler {
	return &Handler{svc: svc, db: db, started: time.Now(), now: time.Now}
}

// Mount registers the chat completions route on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/api/v1/chat/completions", h.Completions)
}

// Completions proxies one chat completion request.
func (h *Handler) Completions(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		h.fail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		h.fail(w, http.StatusUnprocessableEntity, "messages is required")
		return
	}

	body, err := h.svc.CreateChatCompletion(r.Context(), req)
	if err != nil {
		var upstream *UpstreamError
		switch {
		case errors.Is(err, ErrMissingAPIKey):
			h.fail(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &upstream):
			slog.Warn("Perplexity request rejected", "status", upstream.Status, "error", upstream.Message)
			h.fail(w, http.StatusInternalServerError, err.Error())
		default:
			slog.Error("Perplexity request failed", "error", err)
			h.fail(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	api.Raw(w, http.StatusOK, body)
}

func (h *Handler) fail(w http.ResponseWriter, status int, detail string) {
	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	api.Detail(w, status, detail)
}

// ComponentStatus is one dependency's entry in the health report.
type ComponentStatus struct {
	Connected bool    `json:"connected"`
	Model     *string `json:"model,omitempty"`
	Error     *string `json:"error"`
}

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	Timestamp     string          `json:"timestamp"`
	Uptime        float64         `json:"uptime"`
	PerplexityAPI ComponentStatus `json:"perplexity_api"`
	Database      ComponentStatus `json:"database"`
}

// Health reports the proxy's configuration and database connectivity. It
// answers 503 when the database is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	report := HealthReport{
		Version:   Version,
		Timestamp: now.Format(time.RFC3339Nano),
		Uptime:    now.Sub(h.started).Seconds(),
	}

	if h.svc.Configured() {
		model := h.svc.Model()
		report.PerplexityAPI = ComponentStatus{Connected: true, Model: &model}
	} else {
		msg := "API key not configured"
		report.PerplexityAPI = ComponentStatus{Error: &msg}
	}

	report.Database = h.checkDatabase(r.Context())

	status := http.StatusOK
	report.Status = "healthy"
	if !report.Database.Connected {
		status = http.StatusServiceUnavailable
		report.Status = "unhealthy"
	}
	api.JSON(w, status, report)
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	if h.db == nil {
		msg := "database not configured"
		return ComponentStatus{Error: &msg}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		msg := err.Error()
		return ComponentStatus{Error: &msg}
	}
	return ComponentStatus{Connected: true}
}
