// Package web renders the site's pages and handles their form posts.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/cosmic-frontier/internal/chat"
	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/ashureev/cosmic-frontier/internal/metrics"
	"github.com/ashureev/cosmic-frontier/internal/remote"
	"github.com/ashureev/cosmic-frontier/internal/session"
	"github.com/ashureev/cosmic-frontier/internal/wizard"
	"github.com/go-chi/chi/v5"
	g "maragu.dev/gomponents"
)

// Wizard form actions.
const (
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionSubmit   = "submit"
	ActionRestart  = "restart"
)

// Messages shown when login fails without a server-provided message.
const (
	LoginFailedMessage  = "Login failed. Please try again."
	NetworkErrorMessage = "Network error. Please try again."
)

const leadSaveTimeout = 5 * time.Second

// Authenticator exchanges credentials for a token pair.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.Credentials, error)
}

// LeadSaver persists completed wizard submissions.
type LeadSaver interface {
	SaveLead(ctx context.Context, lead *domain.Lead) error
}

// Handler serves the HTML pages.
type Handler struct {
	visits   *session.Manager
	creds    *session.CredentialStore
	notifier *session.Notifier
	auth     Authenticator
	chat     *chat.Service
	leads    LeadSaver
}

// NewHandler creates a page handler. leads may be nil, in which case
// submissions are not stored.
func NewHandler(visits *session.Manager, creds *session.CredentialStore, notifier *session.Notifier, auth Authenticator, chatSvc *chat.Service, leads LeadSaver) *Handler {
	return &Handler{
		visits:   visits,
		creds:    creds,
		notifier: notifier,
		auth:     auth,
		chat:     chatSvc,
		leads:    leads,
	}
}

// Mount registers the page routes on r. r must already carry the visitor
// and auth middleware.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/about", h.About)
	r.Get("/get-started", h.GetStarted)
	r.Post("/get-started", h.PostGetStarted)
	r.Get("/login", h.Login)
	r.Post("/login", h.PostLogin)
	r.Post("/logout", h.Logout)
	r.Get("/chat", h.Chat)
	r.Post("/chat", h.PostChat)
}

func render(w http.ResponseWriter, status int, page g.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := page.Render(w); err != nil {
		slog.Debug("Failed to render page", "error", err)
	}
}

func (h *Handler) page(r *http.Request, config PageConfig, content ...g.Node) g.Node {
	config.Path = r.URL.Path
	config.Auth = session.AuthFromContext(r.Context())
	return Layout(config, content...)
}

// Home renders the landing page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	auth := session.AuthFromContext(r.Context())
	render(w, http.StatusOK, h.page(r, PageConfig{}, HomePage(auth.Authenticated)))
}

// About renders the about page.
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, h.page(r, PageConfig{Title: "About Us"}, AboutPage()))
}

// GetStarted renders the visitor's current wizard step. The confirmation
// step is shown once; the wizard is discarded after rendering it.
func (h *Handler) GetStarted(w http.ResponseWriter, r *http.Request) {
	visit := h.visits.Get(session.VisitorIDFromContext(r.Context()))

	var view WizardView
	visit.WithWizard(func(wz *wizard.Wizard) {
		view = NewWizardView(wz)
	})
	if view.Terminal {
		visit.DiscardWizard()
	}

	render(w, http.StatusOK, h.page(r, PageConfig{
		Title:   "Get Started",
		Scripts: []string{"/static/wizard.js"},
	}, GetStartedPage(view)))
}

// PostGetStarted applies the posted fields of the current step, then the
// requested action, and redirects back to the form.
func (h *Handler) PostGetStarted(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	visitorID := session.VisitorIDFromContext(r.Context())
	visit := h.visits.Get(visitorID)
	action := r.PostForm.Get("action")

	var lead *domain.Lead
	visit.WithWizard(func(wz *wizard.Wizard) {
		for _, name := range wz.Step().Fields {
			if values, ok := r.PostForm[name]; ok && len(values) > 0 {
				wz.SetField(name, values[0])
			}
		}

		var moved bool
		switch action {
		case ActionNext:
			moved = wz.GoNext()
		case ActionPrevious:
			moved = wz.GoPrevious()
		case ActionSubmit:
			moved = wz.Submit()
			if moved {
				lead = leadFromFields(wz.Fields())
			}
		case ActionRestart:
			wz.Reset()
			moved = true
		default:
			return
		}
		metrics.WizardTransitions.WithLabelValues(action, strconv.FormatBool(moved)).Inc()
	})

	if lead != nil {
		h.saveLead(r.Context(), visitorID, lead)
	}
	http.Redirect(w, r, "/get-started", http.StatusSeeOther)
}

func leadFromFields(f map[string]string) *domain.Lead {
	return &domain.Lead{
		Name:     strings.TrimSpace(f[wizard.FieldName]),
		Email:    strings.TrimSpace(f[wizard.FieldEmail]),
		Interest: strings.TrimSpace(f[wizard.FieldInterest]),
		Message:  strings.TrimSpace(f[wizard.FieldMessage]),
	}
}

// saveLead stores a submission. Failure is logged and never shown.
func (h *Handler) saveLead(ctx context.Context, visitorID string, lead *domain.Lead) {
	if h.leads == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leadSaveTimeout)
	defer cancel()

	if err := h.leads.SaveLead(ctx, lead); err != nil {
		slog.Error("Failed to store lead", "visitor_id", visitorID, "error", err)
		metrics.LeadsStored.WithLabelValues("error").Inc()
		return
	}
	slog.Info("Lead stored", "visitor_id", visitorID, "lead_id", lead.ID)
	metrics.LeadsStored.WithLabelValues("ok").Inc()
}

// Login renders the login form.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, h.page(r, PageConfig{Title: "Login"}, LoginPage(LoginView{})))
}

// PostLogin exchanges the posted credentials for tokens. On success both
// tokens are stored and the visitor is sent to the landing page; on failure
// the form is shown again with the error and nothing is stored.
func (h *Handler) PostLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	// The email is sent as typed; the auth API owns normalization.
	email := r.PostForm.Get("email")
	password := r.PostForm.Get("password")
	visitorID := session.VisitorIDFromContext(r.Context())

	creds, err := h.auth.Login(context.WithoutCancel(r.Context()), email, password)
	if err == nil {
		err = h.creds.Save(w, creds)
	}
	if err != nil {
		msg := loginErrorMessage(err)
		slog.Warn("Login failed", "visitor_id", visitorID, "error", err)
		metrics.Logins.WithLabelValues("failed").Inc()
		render(w, http.StatusOK, h.page(r, PageConfig{Title: "Login"}, LoginPage(LoginView{Email: email, Error: msg})))
		return
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	slog.Info("Visitor logged in", "visitor_id", visitorID)
	h.notifier.Publish(session.AuthEvent{VisitorID: visitorID, Authenticated: true})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func loginErrorMessage(err error) string {
	var apiErr *remote.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, remote.ErrNetwork):
		return NetworkErrorMessage
	default:
		return LoginFailedMessage
	}
}

// Logout clears both tokens and the visitor's chat transcript.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	visitorID := session.VisitorIDFromContext(r.Context())
	h.creds.Clear(w)
	if visit, ok := h.visits.Lookup(visitorID); ok {
		visit.ResetTranscript()
	}
	h.notifier.Publish(session.AuthEvent{VisitorID: visitorID, Authenticated: false})
	slog.Info("Visitor logged out", "visitor_id", visitorID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if session.AuthFromContext(r.Context()).Authenticated {
		return true
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return false
}

// Chat renders the visitor's transcript.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}
	transcript := h.visits.Get(session.VisitorIDFromContext(r.Context())).Transcript()
	render(w, http.StatusOK, h.page(r, PageConfig{
		Title:   "Chat with SONAR",
		Scripts: []string{"/static/chat.js"},
	}, ChatPage(transcript.Messages())))
}

// PostChat submits one prompt and redirects back to the transcript.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	transcript := h.visits.Get(session.VisitorIDFromContext(r.Context())).Transcript()
	h.chat.Submit(r.Context(), transcript, r.PostForm.Get("message"))
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}
