package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduled_emails_created_total",
			Help: "Total scheduled email jobs created",
		},
	)

	JobsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduled_emails_cancelled_total",
			Help: "Total scheduled email jobs cancelled",
		},
	)

	JobsDueSelected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduled_emails_due_selected_total",
			Help: "Total due jobs handed to the dispatcher",
		},
	)

	SendsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduled_emails_send_started_total",
			Help: "Total jobs that passed the pending guard and started sending",
		},
	)

	JobsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduled_emails_skipped_total",
			Help: "Total jobs skipped because they were no longer pending",
		},
	)

	JobsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduled_emails_sent_total",
			Help: "Total jobs resolved as sent",
		},
	)

	JobsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduled_emails_failed_total",
			Help: "Total jobs resolved as failed",
		},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduled_email_dispatch_duration_seconds",
			Help:    "Duration of one dispatch, reload through terminal write",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init() {
	prometheus.MustRegister(
		JobsCreated,
		JobsCancelled,
		JobsDueSelected,
		SendsStarted,
		JobsSkipped,
		JobsSent,
		JobsFailed,
		DispatchDuration,
	)
}
