package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает одно сообщение топика запросов.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// retryPolicy: сколько раз повторять обработку в процессе и с какой паузой.
type retryPolicy struct {
	max   int
	delay time.Duration
}

var defaultRetryPolicy = retryPolicy{max: 3, delay: 200 * time.Millisecond}

// exhausted сообщает, что попытка attempt была последней.
func (p retryPolicy) exhausted(attempt int, err error) bool {
	return attempt >= p.max || errors.Is(err, ErrMalformedMessage)
}

// Consumer читает запросы на проверку и отправляет неразрешимые сообщения в DLQ.
type Consumer struct {
	group    sarama.ConsumerGroup
	topics   []string
	handler  MessageHandler
	retry    retryPolicy
	dlq      EventPublisher
	recorder MessageRecorder
	logger   *log.Entry
	now      func() time.Time
	wg       sync.WaitGroup

	mu         sync.Mutex
	sessionErr error
}

// ConsumerOption настраивает Consumer.
type ConsumerOption func(*Consumer)

// WithDLQ включает отправку в Dead Letter Queue.
func WithDLQ(dlq EventPublisher) ConsumerOption {
	return func(c *Consumer) { c.dlq = dlq }
}

// WithRetry задаёт число повторов и паузу между ними. Отрицательные значения игнорируются.
func WithRetry(maxRetries int, delay time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if maxRetries >= 0 {
			c.retry.max = maxRetries
		}
		if delay >= 0 {
			c.retry.delay = delay
		}
	}
}

func WithConsumerLogger(logger *log.Entry) ConsumerOption {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMessageRecorder включает метрики сообщений.
func WithMessageRecorder(recorder MessageRecorder) ConsumerOption {
	return func(c *Consumer) { c.recorder = recorder }
}

// NewConsumer подключается к брокерам как участник группы groupID.
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler, opts ...ConsumerOption) (*Consumer, error) {
	group, err := sarama.NewConsumerGroup(brokers, groupID, ConsumerGroupConfig(ClientIDService))
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group %s: %w", groupID, err)
	}
	return NewConsumerFromGroup(group, topics, handler, opts...), nil
}

// NewConsumerFromGroup оборачивает готовый sarama.ConsumerGroup.
func NewConsumerFromGroup(group sarama.ConsumerGroup, topics []string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		group:   group,
		topics:  topics,
		handler: handler,
		retry:   defaultRetryPolicy,
		logger:  log.WithField("component", "kafka-consumer"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start запускает цикл группы и чтение её ошибок. Оба завершаются в Stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(2)
	go c.consumeLoop(ctx)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("kafka consumer group error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// consumeLoop перезапускает Consume после каждого rebalance, пока жив ctx.
func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, c.topics, c)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return
		}
		if err != nil {
			c.logger.WithError(err).Error("kafka consume session failed")
			c.setSessionErr(err)
		}
	}
}

// Stop закрывает группу и ждёт горутины Start.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается sarama при открытии сессии: группа снова работает.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	c.setSessionErr(nil)
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// SessionErr возвращает ошибку последней неудачной сессии группы, пока не откроется новая.
func (c *Consumer) SessionErr(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionErr
}

func (c *Consumer) setSessionErr(err error) {
	c.mu.Lock()
	c.sessionErr = err
	c.mu.Unlock()
}

// ConsumeClaim обрабатывает сообщения partition по одному.
// Offset сдвигается только после успеха или публикации в DLQ.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			entry := c.logger.WithFields(log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			})
			entry.Debug("received validation request")

			if err := c.process(ctx, message); err != nil {
				entry.WithError(err).Error("validation request left uncommitted")
				continue
			}
			session.MarkMessage(message, "")
		}
	}
}

// process вызывает handler с повторами; после исчерпания попыток сообщение уходит в DLQ.
// Счёт попыток продолжается с заголовка x-retry-count.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	attempt := retryCount(message)
	for {
		err := c.handler(ctx, message)
		if err == nil {
			return nil
		}
		if c.retry.exhausted(attempt, err) {
			return c.deadLetter(message, err)
		}

		attempt++
		c.logger.WithError(err).WithFields(log.Fields{
			"topic":       message.Topic,
			"retry_count": attempt,
			"max_retries": c.retry.max,
		}).Warn("validation request failed, retrying")

		if sleepErr := sleepContext(ctx, c.retry.delay); sleepErr != nil {
			return fmt.Errorf("retry interrupted: %w", err)
		}
	}
}

func (c *Consumer) deadLetter(message *sarama.ConsumerMessage, cause error) error {
	if c.dlq == nil {
		return cause
	}

	letter := newDeadLetter(message, cause, c.now())
	if err := c.dlq.PublishEvent(TopicDeadLetterQueue, string(message.Key), letter); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	if c.recorder != nil {
		c.recorder.RecordMessage(outcomeDLQ)
	}
	c.logger.WithError(cause).WithFields(log.Fields{
		"topic":  message.Topic,
		"offset": message.Offset,
	}).Warn("validation request moved to DLQ")
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
