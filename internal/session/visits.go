package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/ashureev/cosmic-frontier/internal/metrics"
	"github.com/ashureev/cosmic-frontier/internal/wizard"
)

// Visit is the page state held for one visitor. Several tabs may post at
// once, so all access goes through Lock/Unlock or the helpers below.
type Visit struct {
	mu         sync.Mutex
	wizard     *wizard.Wizard
	transcript *domain.Transcript
	lastSeen   time.Time
}

// WithWizard runs fn with exclusive access to the visitor's wizard,
// creating a fresh one if none exists.
func (v *Visit) WithWizard(fn func(w *wizard.Wizard)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.wizard == nil {
		v.wizard = wizard.Default()
	}
	fn(v.wizard)
}

// DiscardWizard drops the wizard so the next visit starts at step 0.
func (v *Visit) DiscardWizard() {
	v.mu.Lock()
	v.wizard = nil
	v.mu.Unlock()
}

// Transcript returns the visitor's chat transcript, creating it on first use.
// The transcript synchronizes itself.
func (v *Visit) Transcript() *domain.Transcript {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.transcript == nil {
		v.transcript = domain.NewTranscript()
	}
	return v.transcript
}

// ResetTranscript replaces the transcript with a fresh one.
func (v *Visit) ResetTranscript() {
	v.mu.Lock()
	v.transcript = nil
	v.mu.Unlock()
}

// Manager maps visitor IDs to their page state.
type Manager struct {
	mu     sync.Mutex
	visits map[string]*Visit
	now    func() time.Time
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{visits: make(map[string]*Visit), now: time.Now}
}

// Get returns the visit for visitorID, creating it if needed, and marks it
// as seen.
func (m *Manager) Get(visitorID string) *Visit {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.visits[visitorID]
	if !ok {
		v = &Visit{}
		m.visits[visitorID] = v
		metrics.Visits.Set(float64(len(m.visits)))
	}
	v.lastSeen = m.now()
	return v
}

// Lookup returns the visit without creating or touching it.
func (m *Manager) Lookup(visitorID string) (*Visit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[visitorID]
	return v, ok
}

// Delete forgets the visitor's state.
func (m *Manager) Delete(visitorID string) {
	m.mu.Lock()
	delete(m.visits, visitorID)
	metrics.Visits.Set(float64(len(m.visits)))
	m.mu.Unlock()
}

// Len reports how many visits are held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visits)
}

// Sweep removes visits idle for longer than ttl and returns their IDs.
func (m *Manager) Sweep(ttl time.Duration) []string {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for id, v := range m.visits {
		if v.lastSeen.Before(cutoff) {
			expired = append(expired, id)
			delete(m.visits, id)
		}
	}
	metrics.Visits.Set(float64(len(m.visits)))
	return expired
}

const ttlWorkerInterval = 5 * time.Minute

// ExpireCallback is called for each visitor removed by the TTL worker.
type ExpireCallback func(visitorID string)

// StartTTLWorker runs a background goroutine that periodically sweeps
// visits idle longer than ttl. It stops when ctx is done.
func StartTTLWorker(ctx context.Context, m *Manager, ttl time.Duration, onExpire ExpireCallback) {
	interval := ttlWorkerInterval
	if ttl < interval {
		interval = ttl
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				expired := m.Sweep(ttl)
				if len(expired) == 0 {
					continue
				}
				slog.Info("TTL worker expired visits", "count", len(expired))
				if onExpire != nil {
					for _, id := range expired {
						onExpire(id)
					}
				}
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
