package validation

import (
	"context"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// PartlyPaymentValidator проверяет позицию с частичной оплатой.
type PartlyPaymentValidator struct{}

// NewPartlyPaymentValidator создаёт валидатор частичной оплаты.
func NewPartlyPaymentValidator() PartlyPaymentValidator {
	return PartlyPaymentValidator{}
}

func (PartlyPaymentValidator) Validate(_ context.Context, branch domain.Branch, orderItem domain.OrderItem, _ domain.Item) error {
	info := orderItem.Info
	switch {
	case info == nil:
		return domain.MissingField("orderItem.info is not specified")
	case info.To == nil:
		return domain.MissingField("orderItem.info.to is not specified")
	case !info.AmountLeftToPay.Valid:
		return domain.MissingField("orderItem.info.amountLeftToPay is not specified")
	}

	if !branch.SupportsPartlyPayment(info.PeriodType) {
		return domain.RuleViolation("partly-payment period %q is not valid on branch %q", info.PeriodType, branch.ID)
	}

	return nil
}
