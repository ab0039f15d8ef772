package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the Prometheus registry used by this package. The main program
// exposes it over HTTP when a metrics address is configured.
var Registry = prometheus.NewRegistry()

var (
	kicksTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "warden_kicks_total",
		Help: "Total kicks issued",
	})

	bansTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "warden_bans_total",
		Help: "Total bans issued by identifier kind",
	}, []string{"kind"})

	unbansTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "warden_unbans_total",
		Help: "Total unbans issued",
	})

	jailMovesTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "warden_jail_moves_total",
		Help: "Total forced moves into the jail channel",
	})

	floodEscalations = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "warden_jail_flood_escalations_total",
		Help: "Jail flood trackers escalated to a ban",
	})

	commandsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "warden_commands_total",
		Help: "Commands executed by name",
	}, []string{"command"})

	commandsDenied = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "warden_commands_denied_total",
		Help: "Commands refused by the authorization policy",
	})
)
