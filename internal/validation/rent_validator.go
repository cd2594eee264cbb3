package validation

import (
	"context"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
)

// RentPeriodResolver находит период аренды филиала по orderItem.info.periodType.
type RentPeriodResolver struct{}

// Resolve возвращает период аренды или ошибку, если филиал такой период не предлагает.
func (RentPeriodResolver) Resolve(branch domain.Branch, orderItem domain.OrderItem) (domain.RentPeriod, error) {
	if orderItem.Info == nil {
		return domain.RentPeriod{}, domain.MissingField("orderItem.info is not specified")
	}
	period, ok := branch.RentPeriod(orderItem.Info.PeriodType)
	if !ok {
		return domain.RentPeriod{}, domain.RuleViolation(
			"orderItem.info.periodType %q is not valid on branch %q", orderItem.Info.PeriodType, branch.ID,
		)
	}
	return period, nil
}

// RentValidator проверяет аренду: amount == sanitize(round(price * percentage)) - discount.
type RentValidator struct {
	sanitizer pricing.Sanitizer
	periods   RentPeriodResolver
	lineage   *LineageValidator
}

// NewRentValidator создаёт валидатор аренды.
func NewRentValidator(sanitizer pricing.Sanitizer, periods RentPeriodResolver, lineage *LineageValidator) *RentValidator {
	return &RentValidator{sanitizer: sanitizer, periods: periods, lineage: lineage}
}

// Validate определяет период аренды и сверяет amount с его ценой.
func (v *RentValidator) Validate(ctx context.Context, branch domain.Branch, orderItem domain.OrderItem, item domain.Item) error {
	period, err := v.periods.Resolve(branch, orderItem)
	if err != nil {
		return err
	}

	// Филиал платит сам: клиент не должен ничего, цена товара не важна.
	if branch.PaymentInfo.Responsible {
		if !orderItem.Amount.Decimal.IsZero() || !orderItem.TaxAmount.Decimal.IsZero() || !orderItem.UnitPrice.Decimal.IsZero() {
			return domain.PriceMismatch(
				"branch.paymentInfo.responsible is set, but orderItem.amount %q, orderItem.taxAmount %q and orderItem.unitPrice %q are not all 0",
				orderItem.Amount.Decimal.String(), orderItem.TaxAmount.Decimal.String(), orderItem.UnitPrice.Decimal.String(),
			)
		}
		return nil
	}

	rentPrice := item.Price.Mul(period.Percentage)
	if orderItem.MovedFromOrder != "" {
		return v.lineage.Validate(ctx, orderItem, rentPrice)
	}

	expected := v.sanitizer.Sanitize(pricing.Round(rentPrice)).Sub(orderItem.DiscountAmount())
	if !orderItem.Amount.Decimal.Equal(expected) {
		return domain.PriceMismatch(
			"orderItem.amount %q is not equal to the rental price %q",
			orderItem.Amount.Decimal.String(), expected.String(),
		)
	}

	return nil
}
