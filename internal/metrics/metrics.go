// Package metrics exposes prometheus collectors for the check-in service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "scans_total",
		Help:      "Scan decodes by outcome.",
	}, []string{"outcome"})

	MatchStrategy = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "match_strategy_total",
		Help:      "Successful lookups by the strategy that matched.",
	}, []string{"strategy"})

	RosterSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "checkin",
		Name:      "roster_size",
		Help:      "Attendees in the current roster.",
	})

	RosterEntered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "checkin",
		Name:      "roster_entered",
		Help:      "Attendees marked entered.",
	})

	SyncPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "sync_passes_total",
		Help:      "Reconciliation pulls by result (ok, failed, dropped).",
	}, []string{"result"})

	SyncPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "sync_pushes_total",
		Help:      "Fire-and-forget writes to the remote sheet by result.",
	}, []string{"action", "result"})

	BadgeEncodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "badge_encodes_total",
		Help:      "QR encodes for printable badges by result.",
	}, []string{"result"})
)

// ObserveRoster updates the roster gauges.
func ObserveRoster(total, entered int) {
	RosterSize.Set(float64(total))
	RosterEntered.Set(float64(entered))
}
