package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Gated requests by outcome (admitted, unauthorized, rate_limited, store_error).",
		},
		[]string{"outcome"},
	)

	WebhookVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_webhook_verifications_total",
			Help: "Webhook signature verifications by result (valid, invalid).",
		},
		[]string{"result"},
	)

	PartnerWindowUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_partner_window_usage",
			Help: "Admissions in the current rate-limit window per partner, refreshed by the snapshot worker.",
		},
		[]string{"partner_id"},
	)
)
