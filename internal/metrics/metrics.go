package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nurpe/policy-billing/internal/model"
)

// Metrics holds the billing counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	InvoicesGenerated *prometheus.CounterVec
	ScheduleFallbacks prometheus.Counter
	PaymentsRecorded  prometheus.Counter
	PoliciesCanceled  prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		InvoicesGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_invoices_generated_total",
				Help: "Total number of invoices written by the scheduler",
			},
			[]string{"schedule"},
		),
		ScheduleFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_schedule_fallbacks_total",
			Help: "Invoice runs for an unrecognized billing schedule",
		}),
		PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_payments_recorded_total",
			Help: "Total number of payments recorded",
		}),
		PoliciesCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_policies_canceled_total",
			Help: "Policies canceled for non-payment",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
	}

	registry.MustRegister(
		m.InvoicesGenerated,
		m.ScheduleFallbacks,
		m.PaymentsRecorded,
		m.PoliciesCanceled,
		m.HTTPRequestsTotal,
	)
	return m
}

func (m *Metrics) RecordInvoices(schedule model.BillingSchedule, count int, recognized bool) {
	if m == nil {
		return
	}
	m.InvoicesGenerated.WithLabelValues(string(schedule)).Add(float64(count))
	if !recognized {
		m.ScheduleFallbacks.Inc()
	}
}

func (m *Metrics) RecordPayment() {
	if m == nil {
		return
	}
	m.PaymentsRecorded.Inc()
}

func (m *Metrics) RecordCancellation() {
	if m == nil {
		return
	}
	m.PoliciesCanceled.Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
