package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts check-in attempts by outcome
	// (logged, rejected, denied, timed_out, busy, upload_failed, persist_failed)
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifeguard_checkins_total",
		Help: "Check-in attempts by outcome",
	}, []string{"outcome"})

	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifeguard_gate_decisions_total",
		Help: "Proximity gate results (admitted, rejected, denied, timed_out)",
	}, []string{"result"})

	UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lifeguard_photo_upload_seconds",
		Help:    "Time spent uploading check-in photos to object storage",
		Buckets: prometheus.DefBuckets,
	})
)

var (
	PreventionSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifeguard_prevention_submissions_total",
		Help: "Prevention log submissions by outcome",
	}, []string{"outcome"})

	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifeguard_auth_attempts_total",
		Help: "Login and registration attempts by operation and outcome",
	}, []string{"operation", "outcome"})

	FeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lifeguard_feed_clients",
		Help: "Websocket clients connected to the live feed",
	})
)
