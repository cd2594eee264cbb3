package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

func TestNewValidationMetrics(t *testing.T) {
	metrics := NewValidationMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("NewValidationMetricsWithRegisterer should not return nil")
	}
	if metrics.validations == nil || metrics.failures == nil || metrics.orderItems == nil {
		t.Error("counter vecs should not be nil")
	}
	if metrics.duration == nil || metrics.stepDuration == nil {
		t.Error("histograms should not be nil")
	}
	if metrics.messages == nil || metrics.inFlight == nil {
		t.Error("kafka counter and in-flight gauge should not be nil")
	}
}

func TestNewValidationMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewValidationMetricsWithRegisterer(reg)
	second := NewValidationMetricsWithRegisterer(reg)

	first.RecordOrderItem("rent")
	second.RecordOrderItem("rent")

	if got := testutil.ToFloat64(first.orderItems.WithLabelValues("rent")); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestRecordValidation(t *testing.T) {
	metrics := NewValidationMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordValidation("", 10*time.Millisecond)
	metrics.RecordValidation(domain.KindPriceMismatch, 5*time.Millisecond)
	metrics.RecordValidation(domain.KindPriceMismatch, 5*time.Millisecond)
	metrics.RecordValidation(domain.KindInternal, time.Millisecond)

	tests := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{"accepted", metrics.validations.WithLabelValues(resultAccepted), 1},
		{"rejected", metrics.validations.WithLabelValues(resultRejected), 2},
		{"error", metrics.validations.WithLabelValues(resultError), 1},
		{"price mismatch kind", metrics.failures.WithLabelValues(domain.KindPriceMismatch), 2},
		{"internal kind", metrics.failures.WithLabelValues(domain.KindInternal), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.collector); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	metric := &dto.Metric{}
	if err := metrics.duration.Write(metric); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 4 {
		t.Fatalf("expected 4 duration samples, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestRecordStepDuration(t *testing.T) {
	metrics := NewValidationMetricsWithRegisterer(prometheus.NewRegistry())
	metrics.RecordStepDuration("order_items", 2*time.Millisecond)

	if got := testutil.CollectAndCount(metrics.stepDuration); got != 1 {
		t.Fatalf("expected 1 step series, got %d", got)
	}
}

func TestInFlightAndMessages(t *testing.T) {
	metrics := NewValidationMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordInFlightStarted()
	metrics.RecordInFlightStarted()
	metrics.RecordInFlightFinished()
	metrics.RecordMessage("dlq")

	if got := testutil.ToFloat64(metrics.inFlight); got != 1 {
		t.Fatalf("expected 1 in flight, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.messages.WithLabelValues("dlq")); got != 1 {
		t.Fatalf("expected 1 dlq message, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *ValidationMetrics

	metrics.RecordValidation("", time.Millisecond)
	metrics.RecordStepDuration("fields", time.Millisecond)
	metrics.RecordOrderItem("buy")
	metrics.RecordMessage("ok")
	metrics.RecordInFlightStarted()
	metrics.RecordInFlightFinished()
}
