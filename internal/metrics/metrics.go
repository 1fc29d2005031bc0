// Package metrics holds the bot's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lilyguard_events_handled_total",
		Help: "Gateway events handled, by event type",
	}, []string{"event"})

	CommandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lilyguard_commands_executed_total",
		Help: "Slash commands executed, by command and outcome",
	}, []string{"command", "outcome"})

	LogMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lilyguard_log_messages_total",
		Help: "Log embeds posted to guild channels, by log kind and result",
	}, []string{"kind", "result"})

	LedgerReconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lilyguard_ledger_reconciliations_total",
		Help: "Ban and unban confirmations matched against recorded actions, by outcome",
	}, []string{"event", "outcome"})

	ThreadsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lilyguard_autothreads_created_total",
		Help: "Threads opened by auto-threading",
	})

	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lilyguard_audit_entries_total",
		Help: "Audit entries written, by level and event",
	}, []string{"level", "event"})

	TempBansExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lilyguard_temp_bans_expired_total",
		Help: "Temporary bans lifted by the expiry sweep",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
