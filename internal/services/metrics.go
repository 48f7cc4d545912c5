package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Inbound voice-platform webhook events by message type.",
	}, []string{"type"})

	retrievalFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retrieval_failures_total",
		Help: "Context retrievals that failed and degraded to empty context.",
	})

	toolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tool_invocations_total",
		Help: "Server-side tool handler invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})
)
