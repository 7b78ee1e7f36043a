package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "order-expiry-sweep"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.AddProcessed(job, 7)
	metrics.AddProcessed(job, 0)
	metrics.IncLockSkipped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	runs := findMetricFamily(mfs, "market_cron_job_runs_total")
	if runs == nil || len(runs.GetMetric()) != 2 {
		t.Fatalf("expected success and failure series, got %v", runs)
	}
	for _, m := range runs.GetMetric() {
		if !matchesLabel(m.GetLabel(), "job", job) || m.GetCounter().GetValue() != 1 {
			t.Fatalf("unexpected run series %v", m)
		}
	}

	if got, err := fetchCounterValue(mfs, "market_cron_job_items_processed_total", "job", job); err != nil {
		t.Fatalf("fetch processed: %v", err)
	} else if got != 7 {
		t.Fatalf("expected processed=7, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "market_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	skips := findMetricFamily(mfs, "market_cron_lock_skips_total")
	if skips == nil || skips.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one lock skip")
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestOrderMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.AddCreated(2)
	m.IncConfirmation("confirmed")
	m.IncConfirmation("out_of_stock")
	m.IncConfirmation("confirmed")
	m.IncTransition("override", "REFUNDED")
	m.AddRestocked(5)
	m.AddRestocked(-1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "payment_confirmations_total", "outcome", "confirmed"); err != nil {
		t.Fatalf("fetch confirmations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected confirmed=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_transitions_total", "path", "override"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected override=1, got %f", got)
	}
	restocked := findMetricFamily(mfs, "order_restocked_units_total")
	if restocked == nil || restocked.GetMetric()[0].GetCounter().GetValue() != 5 {
		t.Fatalf("expected 5 restocked units")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *OrderMetrics
	m.AddCreated(1)
	m.IncConfirmation("confirmed")
	m.IncCancelFailure()
	NewOrderMetrics(nil).IncTransition("normal", "PAID")

	var c *CronJobMetrics
	c.IncSuccess("sweep")
	c.AddProcessed("sweep", 3)
	NewCronJobMetrics(nil).IncLockSkipped()
}
