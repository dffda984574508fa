package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsCollector struct {
	registry          *prometheus.Registry
	transfers         *prometheus.CounterVec
	billPayments      *prometheus.CounterVec
	postings          *prometheus.CounterVec
	otpVerifications  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	jobRuns           *prometheus.CounterVec
	logger            *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,
		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "banking_transfers_total",
			Help: "Transfers by resulting status",
		}, []string{"status"}),
		billPayments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "banking_bill_payments_total",
			Help: "Bill payments by resulting status",
		}, []string{"status"}),
		postings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "banking_postings_total",
			Help: "Account postings by category and direction",
		}, []string{"category", "direction"}),
		otpVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "banking_otp_verifications_total",
			Help: "OTP verification attempts by result",
		}, []string{"result"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "banking_operation_duration_seconds",
			Help:    "Time taken by orchestrator operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "banking_job_runs_total",
			Help: "Scheduled job runs by job and result",
		}, []string{"job", "result"}),
		logger: logger,
	}
}

func (m *MetricsCollector) RecordTransfer(status string) {
	m.transfers.WithLabelValues(status).Inc()
}

func (m *MetricsCollector) RecordBillPayment(status string) {
	m.billPayments.WithLabelValues(status).Inc()
}

func (m *MetricsCollector) RecordPosting(category, direction string) {
	m.postings.WithLabelValues(category, direction).Inc()
}

func (m *MetricsCollector) RecordOTPVerification(result string) {
	m.otpVerifications.WithLabelValues(result).Inc()
}

func (m *MetricsCollector) ObserveOperation(operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operationDuration.WithLabelValues(operation, outcome).Observe(time.Since(started).Seconds())
}

func (m *MetricsCollector) RecordJobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		m.logger.Warn("scheduled job reported an error", slog.String("job", job), slog.String("error", err.Error()))
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}

func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
