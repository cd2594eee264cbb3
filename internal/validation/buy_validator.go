package validation

import (
	"context"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
)

// BuyValidator проверяет покупку: amount == sanitize(item.price - discount).
type BuyValidator struct {
	sanitizer pricing.Sanitizer
	lineage   *LineageValidator
}

// NewBuyValidator создаёт валидатор покупки.
func NewBuyValidator(sanitizer pricing.Sanitizer, lineage *LineageValidator) *BuyValidator {
	return &BuyValidator{sanitizer: sanitizer, lineage: lineage}
}

// Validate сверяет налог и цену покупки; перенесённую строку сверяет с исходным заказом.
func (v *BuyValidator) Validate(ctx context.Context, _ domain.Branch, orderItem domain.OrderItem, item domain.Item) error {
	if !orderItem.TaxRate.Decimal.Equal(item.TaxRate) {
		return domain.PriceMismatch(
			"orderItem.taxRate %q is not equal to item.taxRate %q",
			orderItem.TaxRate.Decimal.String(), item.TaxRate.String(),
		)
	}

	expectedTax := orderItem.Amount.Decimal.Mul(item.TaxRate)
	if !orderItem.TaxAmount.Decimal.Equal(expectedTax) {
		return domain.PriceMismatch(
			"orderItem.taxAmount %q is not equal to orderItem.amount * item.taxRate %q",
			orderItem.TaxAmount.Decimal.String(), expectedTax.String(),
		)
	}

	if orderItem.MovedFromOrder != "" {
		return v.lineage.Validate(ctx, orderItem, item.Price)
	}

	expected := v.sanitizer.Sanitize(item.Price.Sub(orderItem.DiscountAmount()))
	if !orderItem.Amount.Decimal.Equal(expected) {
		return domain.PriceMismatch(
			"orderItem.amount %q is not equal to item.price - discount %q",
			orderItem.Amount.Decimal.String(), expected.String(),
		)
	}

	return nil
}
