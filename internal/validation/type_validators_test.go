package validation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
	"github.com/vladislavdragonenkov/orderguard/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

type noopItemValidator struct{}

func (noopItemValidator) Validate(context.Context, domain.Branch, domain.OrderItem, domain.Item) error {
	return nil
}

func fullValidators() validation.TypeValidators {
	v := noopItemValidator{}
	return validation.TypeValidators{Buy: v, Rent: v, Extend: v, PartlyPayment: v, Buyout: v, Sell: v}
}

func TestTypeValidators_CheckCoversEveryType(t *testing.T) {
	if err := fullValidators().Check(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	partial := fullValidators()
	partial.Sell = nil
	if err := partial.Check(); err == nil {
		t.Fatal("expected error for missing sell validator")
	}
}

func TestTypeValidators_ForUnknownType(t *testing.T) {
	_, err := fullValidators().For("lease")
	if !errors.Is(err, domain.ErrRuleViolation) {
		t.Fatalf("expected ErrRuleViolation, got %v", err)
	}
}

func TestNewOrderItemValidator_RejectsIncompleteTable(t *testing.T) {
	validators := fullValidators()
	validators.Extend = nil

	_, err := validation.NewOrderItemValidator(memory.NewItemRepository(), validators, pricing.NewSanitizer(pricing.RoundingExact), nil)
	if err == nil {
		t.Fatal("expected construction error")
	}
}

func TestRentPeriodResolver(t *testing.T) {
	branch := domain.Branch{
		ID: "b",
		PaymentInfo: domain.BranchPaymentInfo{
			RentPeriods: []domain.RentPeriod{{Type: semester, Percentage: dec("0.5")}},
		},
	}

	period, err := validation.RentPeriodResolver{}.Resolve(branch, rentLine("200"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !period.Percentage.Equal(dec("0.5")) {
		t.Fatalf("unexpected percentage %s", period.Percentage)
	}

	noInfo := rentLine("200")
	noInfo.Info = nil
	if _, err := (validation.RentPeriodResolver{}).Resolve(branch, noInfo); !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestRentValidator_RoundsDown(t *testing.T) {
	branch := domain.Branch{
		ID: "b",
		PaymentInfo: domain.BranchPaymentInfo{
			RentPeriods: []domain.RentPeriod{{Type: semester, Percentage: dec("0.33")}},
		},
	}
	validator := validation.NewRentValidator(downSanitizer(), validation.RentPeriodResolver{}, nil)
	item := domain.Item{ID: rentItemID, Price: dec("100")}

	// 100 * 0.33 = 33 → 30
	if err := validator.Validate(context.Background(), branch, rentLine("30"), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validator.Validate(context.Background(), branch, rentLine("33"), item); !errors.Is(err, domain.ErrPriceMismatch) {
		t.Fatalf("expected ErrPriceMismatch, got %v", err)
	}
}

func TestBuyoutValidator_NotOffered(t *testing.T) {
	validator := validation.NewBuyoutValidator(downSanitizer())
	err := validator.Validate(context.Background(), domain.Branch{ID: "b"}, line(domain.OrderItemTypeBuyout, rentItemID, "120"), domain.Item{Price: dec("400")})
	if !errors.Is(err, domain.ErrRuleViolation) {
		t.Fatalf("expected ErrRuleViolation, got %v", err)
	}
}

func TestExtendValidator_RequiresCustomerItem(t *testing.T) {
	validator := validation.NewExtendValidator(memory.NewCustomerItemRepository())
	err := validator.Validate(context.Background(), domain.Branch{ID: "b"}, line(domain.OrderItemTypeExtend, rentItemID, "100"), domain.Item{})
	if !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}
