package validation

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// ItemValidator проверяет формулу цены и правила одного вида позиции.
// orderItem к этому моменту уже прошёл FieldValidator.
type ItemValidator interface {
	Validate(ctx context.Context, branch domain.Branch, orderItem domain.OrderItem, item domain.Item) error
}

// TypeValidators хранит по одному валидатору на каждый вид позиции.
type TypeValidators struct {
	Buy           ItemValidator
	Rent          ItemValidator
	Extend        ItemValidator
	PartlyPayment ItemValidator
	Buyout        ItemValidator
	Sell          ItemValidator
}

// For выбирает валидатор по виду позиции. Неизвестный вид всегда даёт ошибку.
func (v TypeValidators) For(itemType domain.OrderItemType) (ItemValidator, error) {
	var validator ItemValidator
	switch itemType {
	case domain.OrderItemTypeBuy:
		validator = v.Buy
	case domain.OrderItemTypeRent:
		validator = v.Rent
	case domain.OrderItemTypeExtend:
		validator = v.Extend
	case domain.OrderItemTypePartlyPayment:
		validator = v.PartlyPayment
	case domain.OrderItemTypeBuyout:
		validator = v.Buyout
	case domain.OrderItemTypeSell:
		validator = v.Sell
	default:
		return nil, domain.RuleViolation("orderItem.type %q is not supported", string(itemType))
	}

	if validator == nil {
		return nil, fmt.Errorf("no validator configured for orderItem.type %q", itemType)
	}
	return validator, nil
}

// Check убеждается, что для каждого вида из domain.OrderItemTypes есть валидатор.
func (v TypeValidators) Check() error {
	for _, itemType := range domain.OrderItemTypes() {
		if _, err := v.For(itemType); err != nil {
			return err
		}
	}
	return nil
}
