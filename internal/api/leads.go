package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/ashureev/cosmic-frontier/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	defaultLeadLimit = 50
	maxLeadLimit     = 500
)

// LeadsHandler lists stored Get Started submissions. It is mounted only
// outside production.
type LeadsHandler struct {
	repo store.Repository
}

// NewLeadsHandler creates a LeadsHandler over repo.
func NewLeadsHandler(repo store.Repository) *LeadsHandler {
	return &LeadsHandler{repo: repo}
}

// RegisterRoutes registers the leads listing on r.
func (h *LeadsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/leads", h.List)
}

type leadsResponse struct {
	Leads []domain.Lead `json:"leads"`
	Count int           `json:"count"`
}

// List returns the newest leads first. ?limit= caps the count.
func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeadLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLeadLimit {
			Error(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxLeadLimit))
			return
		}
		limit = n
	}

	leads, err := h.repo.ListLeads(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list leads", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	JSON(w, http.StatusOK, leadsResponse{Leads: leads, Count: len(leads)})
}
