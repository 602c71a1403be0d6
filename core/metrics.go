package core

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes, used as the outcome label and span attribute.
const (
	OutcomePreauthenticated = "preauthenticated"
	OutcomeConfigInvalid    = "config_invalid"
	OutcomeMissing          = "missing"
	OutcomeInvalid          = "invalid"
	OutcomeVerified         = "verified"
)

const (
	spanName   = "jwtmiddleware.VerifyAccessToken"
	outcomeKey = "outcome"
)

// Metrics holds the Prometheus collectors of the middleware. A nil *Metrics
// records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. Collectors
// that are already registered are reused, so several middleware instances
// can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jwtmiddleware",
		Name:      "requests_total",
		Help:      "Requests handled by the access token middleware, by outcome.",
	}, []string{outcomeKey})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jwtmiddleware",
		Name:      "verification_duration_seconds",
		Help:      "Time spent verifying access tokens, by outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{outcomeKey})

	if err := register(reg, &requests); err != nil {
		return nil, err
	}
	if err := register(reg, &duration); err != nil {
		return nil, err
	}
	return &Metrics{requests: requests, duration: duration}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			*c = existing
			return nil
		}
	}
	return err
}

func (m *Metrics) request(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) verification(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}
