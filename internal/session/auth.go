package session

import (
	"context"
	"net/http"
	"sync"
)

// Auth is the authentication state derived once per request and handed to
// everything that renders or gates on it.
type Auth struct {
	Authenticated bool
}

// AuthFromContext extracts the auth state from the request context.
func AuthFromContext(ctx context.Context) Auth {
	if v, ok := ctx.Value(authKey).(Auth); ok {
		return v
	}
	return Auth{}
}

// WithAuth returns a copy of ctx carrying auth.
func WithAuth(ctx context.Context, auth Auth) context.Context {
	return context.WithValue(ctx, authKey, auth)
}

// AuthMiddleware derives the auth state from the credential cookies.
func AuthMiddleware(store *CredentialStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := store.Load(r)
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), Auth{Authenticated: ok})))
		})
	}
}

// AuthEvent is published when a visitor logs in or out.
type AuthEvent struct {
	VisitorID     string
	Authenticated bool
}

// Notifier fans auth changes out to subscribers.
type Notifier struct {
	mu   sync.RWMutex
	subs map[int]func(AuthEvent)
	next int
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(AuthEvent))}
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn func(AuthEvent)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Publish calls every subscriber synchronously.
func (n *Notifier) Publish(ev AuthEvent) {
	n.mu.RLock()
	fns := make([]func(AuthEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
