// Package metrics holds the site's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChatReplies counts chat submissions by how the assistant reply was produced.
	ChatReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cosmic_chat_replies_total",
		Help: "Chat submissions by reply outcome",
	}, []string{"outcome"})

	// Logins counts login attempts by outcome.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cosmic_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	WizardTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cosmic_wizard_transitions_total",
		Help: "Wizard actions applied, by action and whether the step changed",
	}, []string{"action", "moved"})

	LeadsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cosmic_leads_stored_total",
		Help: "Completed wizard submissions by storage result",
	}, []string{"result"})

	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cosmic_sonar_proxy_requests_total",
		Help: "Chat completion proxy requests by response status",
	}, []string{"status"})

	ChatSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cosmic_chat_websockets",
		Help: "Open live chat connections",
	})

	Visits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cosmic_visits",
		Help: "Visitor page states held in memory",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
