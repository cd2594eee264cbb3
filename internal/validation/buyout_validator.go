package validation

import (
	"context"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
)

// BuyoutValidator: amount == sanitize(round(price * buyout.percentage)) - discount.
type BuyoutValidator struct {
	sanitizer pricing.Sanitizer
}

// NewBuyoutValidator создаёт валидатор выкупа.
func NewBuyoutValidator(sanitizer pricing.Sanitizer) *BuyoutValidator {
	return &BuyoutValidator{sanitizer: sanitizer}
}

// Validate сверяет amount с ценой выкупа филиала.
func (v *BuyoutValidator) Validate(_ context.Context, branch domain.Branch, orderItem domain.OrderItem, item domain.Item) error {
	term := branch.PaymentInfo.Buyout
	if term == nil {
		return domain.RuleViolation("buyout is not valid on branch %q", branch.ID)
	}

	expected := v.sanitizer.Sanitize(pricing.Round(item.Price.Mul(term.Percentage))).Sub(orderItem.DiscountAmount())
	if !orderItem.Amount.Decimal.Equal(expected) {
		return domain.PriceMismatch(
			"orderItem.amount %q is not equal to the buyout price %q",
			orderItem.Amount.Decimal.String(), expected.String(),
		)
	}
	return nil
}

// SellValidator: amount == sanitize(round(price * sell.percentage)).
type SellValidator struct {
	sanitizer pricing.Sanitizer
}

// NewSellValidator создаёт валидатор продажи.
func NewSellValidator(sanitizer pricing.Sanitizer) *SellValidator {
	return &SellValidator{sanitizer: sanitizer}
}

// Validate сверяет amount с ценой продажи филиала.
func (v *SellValidator) Validate(_ context.Context, branch domain.Branch, orderItem domain.OrderItem, item domain.Item) error {
	term := branch.PaymentInfo.Sell
	if term == nil {
		return domain.RuleViolation("sell is not valid on branch %q", branch.ID)
	}

	expected := v.sanitizer.Sanitize(pricing.Round(item.Price.Mul(term.Percentage)))
	if !orderItem.Amount.Decimal.Equal(expected) {
		return domain.PriceMismatch(
			"orderItem.amount %q is not equal to the sell price %q",
			orderItem.Amount.Decimal.String(), expected.String(),
		)
	}
	return nil
}
