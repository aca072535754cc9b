// Package metrics registers the Prometheus collectors shared by the API and
// the worker. Everything lives under the mailflow_ namespace.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailflow"

func counter(subsystem, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

var (
	APIRequestsTotal   = counterVec("api", "http_requests_total", "HTTP requests by route and status", "method", "route", "status")
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	SendRequestsRejected = counter("api", "send_requests_rejected_total", "Send requests that failed validation")
	// path has list indices folded, e.g. sendTo.contacts[]
	SendViolations     = counterVec("api", "send_violations_total", "Validation violations by field path", "path")
	CampaignsAccepted  = counterVec("api", "campaigns_accepted_total", "Campaigns accepted, by initial status", "status")
	PublishedJobsTotal = counter("queue", "published_jobs_total", "Send jobs published to the queue")

	WorkerJobsConsumed    = counter("worker", "jobs_consumed_total", "Jobs consumed")
	WorkerJobsSent        = counter("worker", "jobs_sent_total", "Jobs sent successfully")
	WorkerJobsFailed      = counter("worker", "jobs_failed_total", "Failed send attempts")
	WorkerJobRetries      = counter("worker", "job_retries_total", "Jobs requeued for another attempt")
	WorkerProcessDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_process_duration_seconds",
			Help:      "Time spent processing a job",
			Buckets:   prometheus.DefBuckets,
		},
	)

	DispatcherCampaignsDue = counter("dispatcher", "campaigns_due_total", "Scheduled campaigns picked up")
	DispatcherRescheduled  = counter("dispatcher", "campaigns_rescheduled_total", "Recurring campaigns moved to their next run")
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal, APIRequestDuration, SendRequestsRejected, SendViolations, CampaignsAccepted, PublishedJobsTotal,
		WorkerJobsConsumed, WorkerJobsSent, WorkerJobsFailed, WorkerJobRetries, WorkerProcessDuration,
		DispatcherCampaignsDue, DispatcherRescheduled,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
