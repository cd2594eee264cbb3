package validation_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

func TestFieldValidator(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *domain.Order)
		wantErr string
	}{
		{name: "complete order", mutate: func(*domain.Order) {}},
		{
			name:    "order amount",
			mutate:  func(o *domain.Order) { o.Amount = decimal.NullDecimal{} },
			wantErr: "order.amount is undefined",
		},
		{
			name:    "no order items",
			mutate:  func(o *domain.Order) { o.OrderItems = nil },
			wantErr: "order.orderItems is empty or undefined",
		},
		{
			name:    "item ref",
			mutate:  func(o *domain.Order) { o.OrderItems[1].Item = "" },
			wantErr: "orderItems[1].item is undefined",
		},
		{
			name:    "unit price",
			mutate:  func(o *domain.Order) { o.OrderItems[0].UnitPrice = decimal.NullDecimal{} },
			wantErr: "orderItems[0].unitPrice is undefined",
		},
		{
			name:    "tax amount",
			mutate:  func(o *domain.Order) { o.OrderItems[0].TaxAmount = decimal.NullDecimal{} },
			wantErr: "orderItems[0].taxAmount is undefined",
		},
		{
			name:    "tax rate",
			mutate:  func(o *domain.Order) { o.OrderItems[0].TaxRate = decimal.NullDecimal{} },
			wantErr: "orderItems[0].taxRate is undefined",
		},
		{
			name:    "type",
			mutate:  func(o *domain.Order) { o.OrderItems[1].Type = "" },
			wantErr: "orderItems[1].type is undefined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := orderOf(rentLine("200"), line(domain.OrderItemTypeBuy, buyItemID, "200"))
			tt.mutate(&order)

			err := validation.NewFieldValidator().Validate(order)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrMissingField) {
				t.Fatalf("expected ErrMissingField, got %v", err)
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("expected %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestFieldValidator_ZeroAmountIsPresent(t *testing.T) {
	order := orderOf(rentLine("0"))
	if err := validation.NewFieldValidator().Validate(order); err != nil {
		t.Fatalf("zero amounts must count as present: %v", err)
	}
}
