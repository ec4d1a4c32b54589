package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/go-chi/chi/v5"
)

type fakeRepo struct {
	leads     []domain.Lead
	err       error
	lastLimit int
}

func (f *fakeRepo) SaveLead(ctx context.Context, lead *domain.Lead) error { return nil }

func (f *fakeRepo) ListLeads(ctx context.Context, limit int) ([]domain.Lead, error) {
	f.lastLimit = limit
	return f.leads, f.err
}

func (f *fakeRepo) Ping(ctx context.Context) error { return nil }

func (f *fakeRepo) Close() error { return nil }

func serveLeads(repo *fakeRepo, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewLeadsHandler(repo).RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestLeadsList(t *testing.T) {
	repo := &fakeRepo{leads: []domain.Lead{{ID: "l2", Name: "Grace"}, {ID: "l1", Name: "Ada"}}}

	w := serveLeads(repo, "/api/v1/leads?limit=10")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if repo.lastLimit != 10 {
		t.Errorf("Expected limit 10, got %d", repo.lastLimit)
	}

	var got leadsResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Count != 2 || got.Leads[0].ID != "l2" {
		t.Errorf("Unexpected response %+v", got)
	}
}

func TestLeadsListEmptyIsArray(t *testing.T) {
	w := serveLeads(&fakeRepo{}, "/api/v1/leads")
	if body := w.Body.String(); body != "{\"leads\":[],\"count\":0}\n" {
		t.Errorf("Unexpected body %q", body)
	}
}

func TestLeadsListDefaultLimit(t *testing.T) {
	repo := &fakeRepo{}
	serveLeads(repo, "/api/v1/leads")
	if repo.lastLimit != defaultLeadLimit {
		t.Errorf("Expected default limit %d, got %d", defaultLeadLimit, repo.lastLimit)
	}
}

func TestLeadsListErrors(t *testing.T) {
	tests := []struct {
		name   string
		repo   *fakeRepo
		target string
		status int
	}{
		{"bad limit", &fakeRepo{}, "/api/v1/leads?limit=abc", http.StatusBadRequest},
		{"zero limit", &fakeRepo{}, "/api/v1/leads?limit=0", http.StatusBadRequest},
		{"limit too large", &fakeRepo{}, "/api/v1/leads?limit=501", http.StatusBadRequest},
		{"store failure", &fakeRepo{err: errors.New("disk gone")}, "/api/v1/leads", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveLeads(tt.repo, tt.target)
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			var got map[string]string
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if got["error"] == "" {
				t.Errorf("Expected an error field, got %v", got)
			}
		})
	}
}
