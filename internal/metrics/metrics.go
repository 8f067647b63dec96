package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "welfare_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_application_submissions_total",
			Help: "Application submission attempts by outcome",
		},
		[]string{"outcome"},
	)

	DocumentUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_document_uploads_total",
			Help: "Document uploads to the blob store by outcome",
		},
		[]string{"outcome"},
	)

	ReviewDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_review_decisions_total",
			Help: "Administrator review decisions by target status",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_notifications_total",
			Help: "Outbound notifications by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_chat_requests_total",
			Help: "Chat assistant requests by outcome",
		},
		[]string{"outcome"},
	)
)
