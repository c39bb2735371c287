package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exposed on /metrics. Scan outcomes are labeled by wire error code
// ("ok" for accepted scans) so rejected geofence or replay attempts show up
// without log digging.
var (
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sessions_opened_total",
		Help: "Sessions opened.",
	})
	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sessions_closed_total",
		Help: "Sessions closed.",
	})
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_tokens_issued_total",
		Help: "Scan tokens issued, by phase.",
	}, []string{"phase"})
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_scans_total",
		Help: "Scan attempts, by outcome.",
	}, []string{"outcome"})
	AbsentMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_absent_marked_total",
		Help: "Records swept to ABSENT at close.",
	})
)
