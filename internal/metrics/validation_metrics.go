// Package metrics содержит Prometheus-метрики конвейера валидации.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultError    = "error"
)

// ValidationMetrics содержит метрики проверок заказов.
type ValidationMetrics struct {
	// Счётчики результатов
	validations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	orderItems  *prometheus.CounterVec

	// Гистограммы времени выполнения
	duration     prometheus.Histogram
	stepDuration *prometheus.HistogramVec

	// Kafka
	messages *prometheus.CounterVec

	inFlight prometheus.Gauge
}

// NewValidationMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewValidationMetrics() *ValidationMetrics {
	return NewValidationMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewValidationMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewValidationMetricsWithRegisterer(registerer prometheus.Registerer) *ValidationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ValidationMetrics{
		validations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderguard_validations_total",
			Help: "Total number of order validations by result",
		}, []string{"result"}),
		failures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderguard_validation_failures_total",
			Help: "Total number of failed order validations by error kind",
		}, []string{"kind"}),
		orderItems: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderguard_order_items_validated_total",
			Help: "Total number of order items that passed validation by type",
		}, []string{"type"}),
		duration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orderguard_validation_duration_seconds",
			Help:    "Duration of order validation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orderguard_validation_step_duration_seconds",
			Help:    "Duration of individual validation steps in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"step"}),
		messages: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderguard_kafka_messages_total",
			Help: "Total number of validation request messages by outcome",
		}, []string{"outcome"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "orderguard_validations_in_flight",
			Help: "Number of order validations currently running",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordValidation учитывает результат проверки. kind берётся из domain.ErrorKind(err):
// пустая строка означает успех, domain.KindInternal означает сбой инфраструктуры.
func (m *ValidationMetrics) RecordValidation(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(duration.Seconds())

	switch kind {
	case "":
		m.validations.WithLabelValues(resultAccepted).Inc()
		return
	case domain.KindInternal:
		m.validations.WithLabelValues(resultError).Inc()
	default:
		m.validations.WithLabelValues(resultRejected).Inc()
	}
	m.failures.WithLabelValues(kind).Inc()
}

// RecordStepDuration записывает время шага конвейера.
func (m *ValidationMetrics) RecordStepDuration(step string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordOrderItem учитывает позицию, прошедшую проверку.
func (m *ValidationMetrics) RecordOrderItem(itemType string) {
	if m == nil {
		return
	}
	m.orderItems.WithLabelValues(itemType).Inc()
}

// RecordMessage учитывает обработанное Kafka-сообщение.
func (m *ValidationMetrics) RecordMessage(outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcome).Inc()
}

// RecordInFlightStarted увеличивает число активных проверок.
func (m *ValidationMetrics) RecordInFlightStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RecordInFlightFinished уменьшает число активных проверок.
func (m *ValidationMetrics) RecordInFlightFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
