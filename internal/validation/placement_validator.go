package validation

import (
	"context"
	"errors"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// PlacementValidator проверяет гейт перехода заказа в состояние placed. Только здесь
// итог позиций, стоимость доставки и подтверждённые платежи сводятся вместе.
type PlacementValidator struct {
	deliveries domain.DeliveryRepository
	payments   domain.PaymentRepository
}

// NewPlacementValidator создаёт гейт размещения.
func NewPlacementValidator(deliveries domain.DeliveryRepository, payments domain.PaymentRepository) *PlacementValidator {
	return &PlacementValidator{deliveries: deliveries, payments: payments}
}

// Validate ничего не проверяет, пока order.placed == false.
func (v *PlacementValidator) Validate(ctx context.Context, branch domain.Branch, order domain.Order) error {
	if !order.Placed {
		return nil
	}
	if order.Delivery == "" {
		return domain.PlacementViolation("order.placed is set but delivery is undefined")
	}
	if len(order.Payments) == 0 {
		return domain.PlacementViolation("order.placed is set but payments is empty")
	}

	// каждый платёж входит в сумму один раз
	if id, ok := firstDuplicate(order.Payments); ok {
		return domain.PlacementViolation("order.payments lists payment %q more than once", id)
	}

	delivery, err := v.deliveries.Get(ctx, order.Delivery)
	if err != nil {
		return err
	}

	itemsTotal := order.ItemsTotal()
	if withDelivery := itemsTotal.Add(delivery.Amount); !withDelivery.Equal(order.Amount.Decimal) {
		return domain.PlacementViolation(
			"order.amount %q is not equal to orderItems total %q + delivery.amount %q",
			order.Amount.Decimal.String(), itemsTotal.String(), delivery.Amount.String(),
		)
	}

	payments, err := v.payments.GetMany(ctx, order.Payments)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return domain.PlacementViolation("order.payments not found: payment %q is missing", notFound.ID)
		}
		return err
	}

	for _, payment := range payments {
		if payment.Order != "" && payment.Order != order.ID {
			return domain.PlacementViolation(
				"payment %q belongs to order %q, not to %q", payment.ID, payment.Order, order.ID,
			)
		}
		if !payment.Confirmed {
			return domain.PlacementViolation("payment is not confirmed: payment %q", payment.ID)
		}
		if !branch.AcceptsMethod(payment.Method) {
			return domain.PlacementViolation(
				"payment %q method %q is not accepted on branch %q", payment.ID, payment.Method, branch.ID,
			)
		}
	}

	if paid := domain.PaymentsTotal(payments); !paid.Equal(order.Amount.Decimal) {
		return domain.PlacementViolation(
			"total amount of payments is not equal to order.amount: payments total %q, order.amount %q",
			paid.String(), order.Amount.Decimal.String(),
		)
	}

	return nil
}

func firstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}
