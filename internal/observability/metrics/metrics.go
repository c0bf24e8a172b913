package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "novacare"

func registererOrDefault(reg prometheus.Registerer) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}

// OnboardingMetrics counts workflow transitions.
type OnboardingMetrics struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

func NewOnboardingMetrics(reg prometheus.Registerer) *OnboardingMetrics {
	m := &OnboardingMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "transitions_total",
			Help:      "Committed onboarding status transitions",
		}, []string{"workflow", "from", "to"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "invalid_transitions_total",
			Help:      "Stage operations refused because the application was in the wrong status",
		}, []string{"workflow", "operation"}),
	}
	registererOrDefault(reg).MustRegister(m.transitions, m.rejected)
	return m
}

func (m *OnboardingMetrics) ObserveTransition(workflow, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(workflow, from, to).Inc()
}

func (m *OnboardingMetrics) ObserveInvalidTransition(workflow, operation string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(workflow, operation).Inc()
}

// AdvisoryMetrics tracks calls to the text-generation collaborator.
type AdvisoryMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewAdvisoryMetrics(reg prometheus.Registerer) *AdvisoryMetrics {
	m := &AdvisoryMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "advisory",
			Name:      "requests_total",
			Help:      "AI advisory requests by task and outcome",
		}, []string{"task", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "advisory",
			Name:      "latency_seconds",
			Help:      "Latency of AI advisory requests",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"task"}),
	}
	registererOrDefault(reg).MustRegister(m.requests, m.latency)
	return m
}

func (m *AdvisoryMetrics) ObserveRequest(task, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(task, outcome).Inc()
	m.latency.WithLabelValues(task).Observe(seconds)
}

// BookingMetrics counts booking attempts.
type BookingMetrics struct {
	bookings *prometheus.CounterVec
	statuses *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "total",
			Help:      "Booking create attempts by result",
		}, []string{"result"}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "status_changes_total",
			Help:      "Booking status updates by new status",
		}, []string{"status"}),
	}
	registererOrDefault(reg).MustRegister(m.bookings, m.statuses)
	return m
}

func (m *BookingMetrics) ObserveCreate(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveStatusChange(status string) {
	if m == nil {
		return
	}
	m.statuses.WithLabelValues(status).Inc()
}

// NotificationMetrics counts email delivery outcomes.
type NotificationMetrics struct {
	sent *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "total",
			Help:      "Notification delivery attempts by kind and result",
		}, []string{"kind", "result"}),
	}
	registererOrDefault(reg).MustRegister(m.sent)
	return m
}

func (m *NotificationMetrics) Observe(kind, result string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(kind, result).Inc()
}
