package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// TokensIssued counts minted tokens by kind (access, refresh).
	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Subsystem: "session",
		Name:      "tokens_issued_total",
		Help:      "Number of tokens minted, by kind",
	}, []string{"kind"})

	// RefreshTotal counts rotation attempts by outcome
	// (ok, invalid, mismatch, fail).
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Subsystem: "session",
		Name:      "refresh_total",
		Help:      "Refresh token rotations, by result",
	}, []string{"result"})

	// LoginTotal counts login attempts by outcome.
	LoginTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Subsystem: "accounts",
		Name:      "login_total",
		Help:      "Login attempts, by result",
	}, []string{"result"})

	// HTTPRequests counts handled requests by route, method and status.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests",
	}, []string{"route", "method", "code"})

	// HTTPDuration observes request latency by route and method.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "auth",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration (seconds)",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Register registers all collectors once. With no argument the default
// registerer is used.
func Register(registerers ...prometheus.Registerer) {
	once.Do(func() {
		var reg prometheus.Registerer
		if len(registerers) > 0 && registerers[0] != nil {
			reg = registerers[0]
		} else {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			TokensIssued,
			RefreshTotal,
			LoginTotal,
			HTTPRequests,
			HTTPDuration,
		)
	})
}
