package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneylink_webhook_events_total",
		Help: "Webhook deliveries by provider and outcome",
	}, []string{"provider", "outcome"})

	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneylink_reconciliations_total",
		Help: "Ledger entries moved out of PENDING by target status",
	}, []string{"status"})

	TransfersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneylink_transfers_created_total",
		Help: "Transfers accepted by the rail and recorded in the ledger",
	}, []string{"type"})

	LimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneylink_limit_rejections_total",
		Help: "P2P transfers rejected by the limit validator",
	}, []string{"rule"})

	RailRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneylink_rail_requests_total",
		Help: "Payment rail API calls by operation and outcome",
	}, []string{"operation", "outcome"})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneylink_job_runs_total",
		Help: "Scheduled job executions by outcome",
	}, []string{"job", "outcome"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moneylink_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route", "status"})
)

// Webhook outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeIgnored   = "ignored"
)
