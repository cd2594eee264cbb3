package validation

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
)

// DefaultMaxLineageDepth ограничивает длину цепочки movedFromOrder.
const DefaultMaxLineageDepth = 16

// LineageValidator проверяет позиции, перенесённые из раннего заказа:
// клиент доплачивает только разницу между новой ценой и уже оплаченной строкой.
type LineageValidator struct {
	orders    domain.OrderRepository
	payments  domain.PaymentRepository
	sanitizer pricing.Sanitizer
	maxDepth  int
}

// NewLineageValidator создаёт проверку цепочки movedFromOrder.
func NewLineageValidator(
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	sanitizer pricing.Sanitizer,
	maxDepth int,
) *LineageValidator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxLineageDepth
	}
	return &LineageValidator{
		orders:    orders,
		payments:  payments,
		sanitizer: sanitizer,
		maxDepth:  maxDepth,
	}
}

// Validate сверяет orderItem.amount с sanitize(round(newPrice)) - amount исходной строки.
func (v *LineageValidator) Validate(ctx context.Context, orderItem domain.OrderItem, newPrice decimal.Decimal) error {
	original, err := v.orders.Get(ctx, orderItem.MovedFromOrder)
	if err != nil {
		return err
	}

	originalItem, ok := original.FindItem(orderItem.Item)
	if !ok {
		return domain.RuleViolation(
			"orderItem.item %q is not found in original order %q", orderItem.Item, original.ID,
		)
	}

	if err := v.checkChain(ctx, original, orderItem.Item); err != nil {
		return err
	}

	paid, err := v.isPaid(ctx, original)
	if err != nil {
		return err
	}

	amount := orderItem.Amount.Decimal
	if !paid && amount.IsZero() {
		return domain.RuleViolation("original order has not been paid, but current amount is 0")
	}

	newAmount := v.sanitizer.Sanitize(pricing.Round(newPrice))
	expected := newAmount.Sub(originalItem.Amount.Decimal)
	if !amount.Equal(expected) {
		return domain.PriceMismatch(
			"orderItem.amount %q is not equal to the price difference %q (new price %q - original orderItem.amount %q)",
			amount.String(), expected.String(), newAmount.String(), originalItem.Amount.Decimal.String(),
		)
	}

	return nil
}

// checkChain проходит по movedFromOrder дальше исходного заказа и отклоняет циклы
// и слишком длинные цепочки.
func (v *LineageValidator) checkChain(ctx context.Context, start domain.Order, itemID string) error {
	visited := map[string]struct{}{start.ID: {}}
	current := start

	for depth := 1; ; depth++ {
		line, ok := current.FindItem(itemID)
		if !ok || line.MovedFromOrder == "" {
			return nil
		}
		if _, seen := visited[line.MovedFromOrder]; seen {
			return domain.RuleViolation(
				"movedFromOrder chain for item %q forms a cycle at order %q", itemID, line.MovedFromOrder,
			)
		}
		if depth >= v.maxDepth {
			return domain.RuleViolation(
				"movedFromOrder chain for item %q exceeds max depth %d", itemID, v.maxDepth,
			)
		}
		visited[line.MovedFromOrder] = struct{}{}

		next, err := v.orders.Get(ctx, line.MovedFromOrder)
		if err != nil {
			return err
		}
		current = next
	}
}

func (v *LineageValidator) isPaid(ctx context.Context, order domain.Order) (bool, error) {
	if len(order.Payments) == 0 {
		return false, nil
	}
	payments, err := v.payments.GetMany(ctx, order.Payments)
	if err != nil {
		return false, err
	}
	return domain.HasConfirmed(payments), nil
}
