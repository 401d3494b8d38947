package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks the number of locks created.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verlock_acquire_total",
		Help: "Total number of version locks created",
	})
	// ReleaseCounter tracks the number of locks removed.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verlock_release_total",
		Help: "Total number of version locks removed",
	})
	// ConflictCounter tracks acquire attempts that found an existing lock.
	ConflictCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verlock_conflict_total",
		Help: "Total number of acquire attempts against an already locked version",
	})
	// DeniedCounter tracks guard denials against a lock held by another user.
	DeniedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verlock_denied_total",
		Help: "Total number of actions denied by a version lock",
	})
	// HeldGauge reports the number of currently held locks.
	HeldGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verlock_held_locks",
		Help: "Current number of held version locks",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers verlock core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireCounter, ReleaseCounter, ConflictCounter, DeniedCounter, HeldGauge)
}
