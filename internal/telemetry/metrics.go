package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ScansTotal counts catalog scans by result class
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifisim",
			Name:      "scans_total",
			Help:      "Total number of access point scans",
		},
		[]string{"interface", "result"},
	)

	// ConnectAttempts counts connection attempts by method and outcome
	ConnectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifisim",
			Name:      "connect_attempts_total",
			Help:      "Total number of connection attempts",
		},
		[]string{"interface", "method", "outcome"},
	)

	// RoamsTotal counts roam executions by outcome
	RoamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifisim",
			Name:      "roams_total",
			Help:      "Total number of roam attempts",
		},
		[]string{"interface", "outcome"},
	)

	// AuthFailures counts deliberate failed-auth attempts by pattern and outcome
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifisim",
			Name:      "auth_failure_attempts_total",
			Help:      "Total number of deliberate authentication failure attempts",
		},
		[]string{"interface", "pattern", "outcome"},
	)

	// RecoveryActions counts health monitor interventions by action kind
	RecoveryActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifisim",
			Name:      "recovery_actions_total",
			Help:      "Total number of session recovery actions",
		},
		[]string{"interface", "action"},
	)

	// TrafficBytes counts bytes moved by the traffic engine, by direction
	TrafficBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifisim",
			Name:      "traffic_bytes_total",
			Help:      "Total bytes transferred by the traffic engine",
		},
		[]string{"interface", "direction"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		// This prevents panics when metrics are already in the registry
		prometheus.DefaultRegisterer.Register(ScansTotal)
		prometheus.DefaultRegisterer.Register(ConnectAttempts)
		prometheus.DefaultRegisterer.Register(RoamsTotal)
		prometheus.DefaultRegisterer.Register(AuthFailures)
		prometheus.DefaultRegisterer.Register(RecoveryActions)
		prometheus.DefaultRegisterer.Register(TrafficBytes)
	})
}
