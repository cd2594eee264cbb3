package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/orderguard/internal/health"
	"github.com/vladislavdragonenkov/orderguard/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderguard/internal/metrics"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

// kafkaRuntime объединяет асинхронную проверку: consumer запросов и producer результатов.
type kafkaRuntime struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
}

// initKafka поднимает producer и consumer. Возвращает nil, nil, если брокеры не заданы.
func initKafka(cfg Config, validator validation.Validator, recorder *metrics.ValidationMetrics, logger *log.Entry) (*kafkaRuntime, error) {
	if !cfg.KafkaEnabled() {
		return nil, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return nil, err
	}

	handler := kafka.NewValidationHandler(validator, producer, logger.WithField("layer", "kafka-handler"), recorder)
	consumer, err := kafka.NewConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaGroupID,
		[]string{kafka.TopicValidationRequests},
		handler.Handle,
		kafka.WithDLQ(producer),
		kafka.WithRetry(cfg.KafkaMaxRetries, cfg.KafkaRetryDelay),
		kafka.WithConsumerLogger(logger.WithField("layer", "kafka-consumer")),
		kafka.WithMessageRecorder(recorder),
	)
	if err != nil {
		closeKafkaProducer(producer, logger)
		return nil, err
	}

	logger.WithFields(log.Fields{
		"brokers":  cfg.KafkaBrokers,
		"group_id": cfg.KafkaGroupID,
	}).Info("kafka validation initialized")
	return &kafkaRuntime{producer: producer, consumer: consumer}, nil
}

// registerHealth добавляет некритичную проверку consumer group: её сбой даёт degraded,
// gRPC-проверка заказов продолжает работать.
func (k *kafkaRuntime) registerHealth(h *healthcheck.Handler) {
	if k == nil {
		return
	}
	h.RegisterChecker("kafka", healthcheck.NewFuncChecker("kafka", false, k.consumer.SessionErr))
}

func (k *kafkaRuntime) start(ctx context.Context) error {
	if k == nil {
		return nil
	}
	return k.consumer.Start(ctx)
}

// close останавливает consumer раньше producer: обработчик ещё может публиковать результаты.
func (k *kafkaRuntime) close(logger *log.Entry) {
	if k == nil {
		return
	}
	if err := k.consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
	closeKafkaProducer(k.producer, logger)
}

func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
