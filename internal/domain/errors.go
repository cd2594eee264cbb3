package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField: структурная ошибка: обязательное поле не заполнено.
	ErrMissingField = errors.New("missing field")
	// ErrNotFound: связанная сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrPriceMismatch: расчётная сумма не совпадает с присланной клиентом.
	ErrPriceMismatch = errors.New("price mismatch")
	// ErrRuleViolation: нарушено нечисловое бизнес-правило (период, лимит продлений и т.п.).
	ErrRuleViolation = errors.New("rule violation")
	// ErrPlacementViolation: заказ нельзя перевести в состояние placed.
	ErrPlacementViolation = errors.New("placement violation")
)

// ValidationError описывает отказ валидации. Message уже содержит
// конкретные значения, которые не сошлись.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// MissingField создаёт ошибку отсутствующего поля.
func MissingField(format string, args ...any) error {
	return &ValidationError{Kind: ErrMissingField, Message: fmt.Sprintf(format, args...)}
}

// PriceMismatch создаёт ошибку расхождения сумм.
func PriceMismatch(format string, args ...any) error {
	return &ValidationError{Kind: ErrPriceMismatch, Message: fmt.Sprintf(format, args...)}
}

// RuleViolation создаёт ошибку нарушения бизнес-правила.
func RuleViolation(format string, args ...any) error {
	return &ValidationError{Kind: ErrRuleViolation, Message: fmt.Sprintf(format, args...)}
}

// PlacementViolation создаёт ошибку гейта размещения заказа.
func PlacementViolation(format string, args ...any) error {
	return &ValidationError{Kind: ErrPlacementViolation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError возвращается репозиториями, если сущность с таким ID отсутствует.
type NotFoundError struct {
	Entity Entity
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError создаёт ошибку отсутствующей сущности.
func NewNotFoundError(entity Entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound проверяет, что ошибка означает отсутствие сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Метки видов ошибок для логов, метрик и внешних ответов.
const (
	KindMissingField       = "missing_field"
	KindNotFound           = "not_found"
	KindPriceMismatch      = "price_mismatch"
	KindRuleViolation      = "rule_violation"
	KindPlacementViolation = "placement_violation"
	KindInternal           = "internal"
)

// ErrorKind возвращает стабильную метку вида ошибки.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return KindMissingField
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPriceMismatch):
		return KindPriceMismatch
	case errors.Is(err, ErrRuleViolation):
		return KindRuleViolation
	case errors.Is(err, ErrPlacementViolation):
		return KindPlacementViolation
	default:
		return KindInternal
	}
}

// IsValidationFailure сообщает, что ошибка означает отказ валидации, а не сбой инфраструктуры.
func IsValidationFailure(err error) bool {
	kind := ErrorKind(err)
	return kind != "" && kind != KindInternal
}
