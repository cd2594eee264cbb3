package validation

import (
	"context"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
)

// OrderItemValidator сверяет общий итог заказа и проверяет позиции по очереди,
// останавливаясь на первой ошибке.
type OrderItemValidator struct {
	items      domain.ItemRepository
	validators TypeValidators
	// lineSanitizer округляет налог строки: taxAmount == sanitize(round(unitPrice * taxRate)).
	lineSanitizer pricing.Sanitizer
	recorder      Recorder
}

// NewOrderItemValidator создаёт оркестратор позиций. Возвращает ошибку, если
// для какого-то вида позиции не задан валидатор.
func NewOrderItemValidator(
	items domain.ItemRepository,
	validators TypeValidators,
	lineSanitizer pricing.Sanitizer,
	recorder Recorder,
) (*OrderItemValidator, error) {
	if err := validators.Check(); err != nil {
		return nil, err
	}
	return &OrderItemValidator{
		items:         items,
		validators:    validators,
		lineSanitizer: lineSanitizer,
		recorder:      recorder,
	}, nil
}

// Validate проверяет итог и каждую позицию заказа.
func (v *OrderItemValidator) Validate(ctx context.Context, branch domain.Branch, order domain.Order) error {
	total := order.ItemsTotal()
	if !total.Equal(order.Amount.Decimal) {
		return domain.PriceMismatch(
			"order.amount %q is not equal to the total of all orderItems amount %q",
			order.Amount.Decimal.String(), total.String(),
		)
	}

	for _, orderItem := range order.OrderItems {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.validateOrderItem(ctx, branch, orderItem); err != nil {
			return err
		}
		if v.recorder != nil {
			v.recorder.RecordOrderItem(string(orderItem.Type))
		}
	}

	return nil
}

func (v *OrderItemValidator) validateOrderItem(ctx context.Context, branch domain.Branch, orderItem domain.OrderItem) error {
	item, err := v.items.Get(ctx, orderItem.Item)
	if err != nil {
		return err
	}

	validator, err := v.validators.For(orderItem.Type)
	if err != nil {
		return err
	}
	if err := validator.Validate(ctx, branch, orderItem, item); err != nil {
		return err
	}

	return v.validateLineArithmetic(orderItem)
}

func (v *OrderItemValidator) validateLineArithmetic(orderItem domain.OrderItem) error {
	amount := orderItem.Amount.Decimal
	unitPrice := orderItem.UnitPrice.Decimal
	taxAmount := orderItem.TaxAmount.Decimal

	if gross := unitPrice.Add(taxAmount); !amount.Equal(gross) {
		return domain.PriceMismatch(
			"orderItem.amount %q is not equal to orderItem.unitPrice %q + orderItem.taxAmount %q",
			amount.String(), unitPrice.String(), taxAmount.String(),
		)
	}

	expectedTax := v.lineSanitizer.Sanitize(pricing.Round(unitPrice.Mul(orderItem.TaxRate.Decimal)))
	if !taxAmount.Equal(expectedTax) {
		return domain.PriceMismatch(
			"orderItem.taxAmount %q is not equal to orderItem.unitPrice * orderItem.taxRate %q",
			taxAmount.String(), expectedTax.String(),
		)
	}

	return nil
}
