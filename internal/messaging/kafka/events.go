package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeValidationRequested EventType = "order.validation.requested"
	EventTypeValidationAccepted  EventType = "order.validation.accepted"
	EventTypeValidationRejected  EventType = "order.validation.rejected"
)

// Topics для Kafka
const (
	TopicValidationRequests = "orderguard.validation.requests"
	TopicValidationResults  = "orderguard.validation.results"
	TopicDeadLetterQueue    = "orderguard.validation.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	HeaderRequestID     = "x-request-id"
)

// ErrMalformedMessage: сообщение нельзя разобрать; повтор не поможет.
var ErrMalformedMessage = errors.New("malformed message")

// ValidationRequest: запрос на проверку заказа из topic запросов.
type ValidationRequest struct {
	RequestID   string       `json:"request_id"`
	Order       domain.Order `json:"order"`
	RequestedAt time.Time    `json:"requested_at"`
}

// NewValidationRequest создаёт запрос с новым request_id.
func NewValidationRequest(order domain.Order) *ValidationRequest {
	return &ValidationRequest{
		RequestID:   uuid.NewString(),
		Order:       order,
		RequestedAt: time.Now().UTC(),
	}
}

// ValidationResult: итог проверки, публикуется в topic результатов.
type ValidationResult struct {
	EventID     string    `json:"event_id"`
	EventType   EventType `json:"event_type"`
	RequestID   string    `json:"request_id"`
	OrderID     string    `json:"order_id"`
	Valid       bool      `json:"valid"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	ValidatedAt time.Time `json:"validated_at"`
}

// NewValidationResult собирает результат по ошибке конвейера (nil значит, что заказ принят).
func NewValidationResult(requestID, orderID string, err error) *ValidationResult {
	result := &ValidationResult{
		EventID:     uuid.NewString(),
		EventType:   EventTypeValidationAccepted,
		RequestID:   requestID,
		OrderID:     orderID,
		Valid:       err == nil,
		ValidatedAt: time.Now().UTC(),
	}
	if err != nil {
		result.EventType = EventTypeValidationRejected
		result.ErrorKind = domain.ErrorKind(err)
		result.Error = err.Error()
	}
	return result
}

// ParseValidationRequest разбирает запрос. Пустой request_id заменяется ключом сообщения.
func ParseValidationRequest(message *sarama.ConsumerMessage) (*ValidationRequest, error) {
	var request ValidationRequest
	if err := json.Unmarshal(message.Value, &request); err != nil {
		return nil, fmt.Errorf("%w: unmarshal validation request: %v", ErrMalformedMessage, err)
	}
	if request.RequestID == "" {
		request.RequestID = headerValue(message, HeaderRequestID)
	}
	if request.RequestID == "" {
		request.RequestID = string(message.Key)
	}
	return &request, nil
}

// ParseValidationResult разбирает событие результата.
func ParseValidationResult(message *sarama.ConsumerMessage) (*ValidationResult, error) {
	var result ValidationResult
	if err := json.Unmarshal(message.Value, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal validation result: %w", err)
	}
	return &result, nil
}

func headerValue(message *sarama.ConsumerMessage, key string) string {
	for _, header := range message.Headers {
		if header != nil && string(header.Key) == key {
			return string(header.Value)
		}
	}
	return ""
}
