package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the security core's prometheus instruments. Constructed
// once per process and injected, so tests can use isolated registries.
type Metrics struct {
	SessionsCreated    prometheus.Counter
	RotationsTotal     prometheus.Counter
	ReuseDetectedTotal prometheus.Counter
	RenewalsTotal      prometheus.Counter
	LockoutsTotal      *prometheus.CounterVec
	RiskAssessments    *prometheus.CounterVec
	JobsScheduled      prometheus.Counter
	JobsCancelled      prometheus.Counter
}

// NewMetrics registers the core's instruments on the supplied registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_created_total",
			Help: "Sessions created on successful login.",
		}),
		RotationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_rotations_total",
			Help: "Successful refresh credential rotations.",
		}),
		ReuseDetectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_credential_reuse_detected_total",
			Help: "Rotation attempts rejected as credential reuse.",
		}),
		RenewalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_sliding_renewals_total",
			Help: "Access credentials silently renewed past the lifetime threshold.",
		}),
		LockoutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Brute-force lockouts by subject kind.",
		}, []string{"kind"}),
		RiskAssessments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_risk_assessments_total",
			Help: "Risk assessments by resulting level.",
		}, []string{"level"}),
		JobsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "prayer_jobs_scheduled_total",
			Help: "Prayer notification timers created.",
		}),
		JobsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "prayer_jobs_cancelled_total",
			Help: "Prayer notification timers cancelled before firing.",
		}),
	}
}
