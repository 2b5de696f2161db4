package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mobiwave_provider_calls_total",
			Help: "Provider API calls by operation, transport and outcome",
		},
		[]string{"operation", "transport", "outcome"}, // post|get , ok|error
	)

	ProviderRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mobiwave_provider_retries_total",
			Help: "Retries performed against the provider by error code",
		},
		[]string{"code"},
	)

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mobiwave_messages_total",
			Help: "Outbound message attempts by final status",
		},
		[]string{"status"}, // sent|failed
	)

	CreditsMovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mobiwave_credits_moved_total",
			Help: "Credit units moved through the ledger by operation",
		},
		[]string{"op"}, // purchase|distribute|charge
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		ProviderCallsTotal,
		ProviderRetriesTotal,
		MessagesTotal,
		CreditsMovedTotal,
	)
}
