// Package session provides anonymous visitor identity, per-visitor page
// state, and the session credentials store.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	VisitorCookieName   = "cf_visitor"
	visitorCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const (
	visitorIDKey contextKey = iota
	authKey
)

// VisitorIDFromContext extracts the visitor ID from the request context.
func VisitorIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(visitorIDKey).(string); ok {
		return v
	}
	return ""
}

// WithVisitorID returns a copy of ctx carrying the visitor ID.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorIDKey, visitorID)
}

func isValidVisitorID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}

func writeVisitorCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(visitorCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(visitorCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func getOrCreateVisitorID(w http.ResponseWriter, r *http.Request, secure bool) string {
	if c, err := r.Cookie(VisitorCookieName); err == nil && isValidVisitorID(c.Value) {
		writeVisitorCookie(w, c.Value, secure)
		return c.Value
	}

	id := uuid.NewString()
	writeVisitorCookie(w, id, secure)
	return id
}

// VisitorMiddleware injects an anonymous per-device visitor ID, issuing the
// cookie when missing or malformed.
func VisitorMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := getOrCreateVisitorID(w, r, secure)
			next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), id)))
		})
	}
}
