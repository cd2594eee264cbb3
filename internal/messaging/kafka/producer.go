package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// EventPublisher публикует JSON-событие в topic.
type EventPublisher interface {
	PublishEvent(topic, key string, event any) error
}

// Producer публикует результаты проверок и сообщения DLQ.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
	now    func() time.Time
}

// NewProducer подключает идемпотентный sync producer сервиса.
func NewProducer(brokers []string) (*Producer, error) {
	sync, err := sarama.NewSyncProducer(brokers, ProducerConfig(ClientIDService))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewProducerFromSync(sync, nil), nil
}

// NewProducerFromSync оборачивает готовый sarama.SyncProducer.
func NewProducerFromSync(sync sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{sync: sync, logger: logger, now: time.Now}
}

func (p *Producer) PublishEvent(topic, key string, event any) error {
	msg, err := jsonMessage(topic, key, event)
	if err != nil {
		return err
	}
	msg.Timestamp = p.now()
	return p.send(msg)
}

// PublishResult публикует результат с ключом orderId; x-request-id связывает его с запросом.
func (p *Producer) PublishResult(result *ValidationResult) error {
	msg, err := jsonMessage(TopicValidationResults, result.OrderID, result)
	if err != nil {
		return err
	}
	msg.Headers = []sarama.RecordHeader{{Key: []byte(HeaderRequestID), Value: []byte(result.RequestID)}}
	msg.Timestamp = result.ValidatedAt
	return p.send(msg)
}

func jsonMessage(topic, key string, payload any) (*sarama.ProducerMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", topic, err)
	}
	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
	}, nil
}

func (p *Producer) send(msg *sarama.ProducerMessage) error {
	entry := p.logger.WithField("topic", msg.Topic)

	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		entry.WithError(err).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", msg.Topic, err)
	}
	entry.WithFields(log.Fields{"partition": partition, "offset": offset}).Debug("kafka message sent")
	return nil
}

func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

var _ EventPublisher = (*Producer)(nil)
