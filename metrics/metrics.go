// Package metrics exposes auth activity as Prometheus counters. Wire
// the Sink into the authenticator and command handlers with their
// WithActivitySink options.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	orgauth "github.com/scriberly/go-orgauth"
)

var (
	activityEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgauth_activity_events_total",
			Help: "Auth activity events by type.",
		},
		[]string{"event_type"},
	)

	loginFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgauth_login_failures_total",
			Help: "Failed logins by reason (fixed taxonomy, bounded cardinality).",
		},
		[]string{"reason"},
	)

	tokensSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orgauth_refresh_tokens_swept_total",
		Help: "Expired refresh token rows deleted by the sweeper.",
	})
)

// Init registers the metrics with the default registry.
func Init() {
	prometheus.MustRegister(activityEvents, loginFailures, tokensSwept)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Sink is an orgauth.ActivitySink that counts events.
type Sink struct{}

var _ orgauth.ActivitySink = (*Sink)(nil)

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Record(_ context.Context, event orgauth.ActivityEvent) error {
	activityEvents.WithLabelValues(string(event.EventType)).Inc()

	switch event.EventType {
	case orgauth.ActivityEventLoginFailure:
		loginFailures.WithLabelValues(loginFailureReason(event.Metadata)).Inc()
	case orgauth.ActivityEventRefreshTokenSweep:
		if n, ok := event.Metadata["swept"].(int); ok {
			tokensSwept.Add(float64(n))
		}
	}

	return nil
}

// loginFailureReason folds the event's text code into a fixed label set.
// Raw error messages never become label values.
func loginFailureReason(metadata map[string]any) string {
	code, _ := metadata["text_code"].(string)

	switch code {
	case orgauth.TextCodeInvalidCredentials:
		return "invalid_credentials"
	case orgauth.TextCodeAccountInactive:
		return "inactive"
	case orgauth.TextCodeTooManyLoginAttempts:
		return "throttled"
	case "":
		return "unknown"
	default:
		return "internal"
	}
}
