package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

// Исходы обработки сообщения для метрик.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeDLQ      = "dlq"
)

// MessageRecorder учитывает исходы обработки сообщений.
type MessageRecorder interface {
	RecordMessage(outcome string)
}

// ResultPublisher публикует результаты проверок.
type ResultPublisher interface {
	PublishResult(result *ValidationResult) error
}

// ValidationHandler прогоняет заказ из запроса через конвейер и публикует результат.
// Отказ валидации считается нормальным результатом; ошибкой обработки считается только сбой
// хранилища или публикации.
type ValidationHandler struct {
	validator validation.Validator
	results   ResultPublisher
	logger    *log.Entry
	recorder  MessageRecorder
}

// NewValidationHandler создаёт обработчик запросов. recorder может быть nil.
func NewValidationHandler(validator validation.Validator, results ResultPublisher, logger *log.Entry, recorder MessageRecorder) *ValidationHandler {
	if logger == nil {
		logger = log.WithField("component", "kafka-validation-handler")
	}
	return &ValidationHandler{
		validator: validator,
		results:   results,
		logger:    logger,
		recorder:  recorder,
	}
}

// Handle реализует MessageHandler.
func (h *ValidationHandler) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	request, err := ParseValidationRequest(message)
	if err != nil {
		return err
	}

	validationErr := h.validator.Validate(ctx, request.Order)
	if validationErr != nil && !domain.IsValidationFailure(validationErr) {
		return fmt.Errorf("validate order %q: %w", request.Order.ID, validationErr)
	}

	result := NewValidationResult(request.RequestID, request.Order.ID, validationErr)
	if err := h.results.PublishResult(result); err != nil {
		return fmt.Errorf("publish validation result: %w", err)
	}

	outcome := outcomeAccepted
	if !result.Valid {
		outcome = outcomeRejected
	}
	if h.recorder != nil {
		h.recorder.RecordMessage(outcome)
	}

	h.logger.WithFields(log.Fields{
		"request_id": request.RequestID,
		"order_id":   request.Order.ID,
		"valid":      result.Valid,
		"error_kind": result.ErrorKind,
	}).Debug("validation result published")

	return nil
}
