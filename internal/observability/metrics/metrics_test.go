package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestOnboardingMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOnboardingMetrics(reg)
	m.ObserveTransition("doctor", "draft", "submitted")
	m.ObserveTransition("doctor", "draft", "submitted")
	m.ObserveInvalidTransition("doctor", "schedule-interview")

	assert.Equal(t, 2.0, counterValue(t, reg, "novacare_onboarding_transitions_total",
		map[string]string{"workflow": "doctor", "from": "draft", "to": "submitted"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "novacare_onboarding_invalid_transitions_total",
		map[string]string{"operation": "schedule-interview"}))
}

func TestAdvisoryAndBookingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewAdvisoryMetrics(reg)
	a.ObserveRequest("credentials", "unavailable", 20)
	b := NewBookingMetrics(reg)
	b.ObserveCreate("conflict")
	b.ObserveStatusChange("confirmed")
	n := NewNotificationMetrics(reg)
	n.Observe("booking_confirmed", "sent")

	assert.Equal(t, 1.0, counterValue(t, reg, "novacare_advisory_requests_total", map[string]string{"outcome": "unavailable"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "novacare_bookings_total", map[string]string{"result": "conflict"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "novacare_notifications_total", map[string]string{"kind": "booking_confirmed"}))
}

func TestDefaultRegistry(t *testing.T) {
	m := NewNotificationMetrics(nil)
	m.Observe("onboarding_status", "failed")
}

func TestMetricsNilSafe(t *testing.T) {
	var o *OnboardingMetrics
	o.ObserveTransition("doctor", "a", "b")
	o.ObserveInvalidTransition("doctor", "op")
	var a *AdvisoryMetrics
	a.ObserveRequest("t", "ok", 1)
	var b *BookingMetrics
	b.ObserveCreate("ok")
	b.ObserveStatusChange("pending")
	var n *NotificationMetrics
	n.Observe("k", "sent")
}
