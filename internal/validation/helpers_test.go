package validation_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
	"github.com/vladislavdragonenkov/orderguard/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

const (
	branchID   = "branch-1"
	semester   = "semester"
	rentItemID = "item-rent"
	buyItemID  = "item-buy"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func nullDec(value string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(value))
}

type recorderStub struct {
	mu          sync.Mutex
	validations []string
	steps       []string
	items       []string
}

func (r *recorderStub) RecordValidation(kind string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validations = append(r.validations, kind)
}

func (r *recorderStub) RecordStepDuration(step string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

func (r *recorderStub) RecordOrderItem(itemType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, itemType)
}

// seedStore наполняет хранилище типовым филиалом и прайс-листом.
func seedStore(t *testing.T) *memory.Store {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, store.Load(memory.Snapshot{
		Branches: []domain.Branch{{
			ID:   branchID,
			Name: "Oslo",
			PaymentInfo: domain.BranchPaymentInfo{
				RentPeriods: []domain.RentPeriod{
					{Type: semester, Percentage: dec("0.5")},
				},
				ExtendPeriods: []domain.ExtendPeriod{
					{Type: semester, MaxNumberOfPeriods: 1, Price: dec("100")},
				},
				PartlyPaymentPeriods: []domain.PartlyPaymentPeriod{{Type: semester}},
				Buyout:               &domain.PercentageTerm{Percentage: dec("0.3")},
				Sell:                 &domain.PercentageTerm{Percentage: dec("0.2")},
				AcceptedMethods:      []string{"card", "vipps"},
			},
		}},
		Items: []domain.Item{
			{ID: rentItemID, Title: "Calculus", Type: "book", Price: dec("400"), TaxRate: dec("0")},
			{ID: buyItemID, Title: "Algebra", Type: "book", Price: dec("200"), TaxRate: dec("0")},
			{ID: "item-500", Title: "Physics", Type: "book", Price: dec("500"), TaxRate: dec("0")},
		},
	}))
	return store
}

func newPipeline(t *testing.T, store *memory.Store, recorder validation.Recorder) *validation.Pipeline {
	t.Helper()

	cfg := validation.DefaultConfig()
	pipeline, err := validation.NewPipeline(store.Stores(), cfg, nil, recorder)
	require.NoError(t, err)
	return pipeline
}

// line собирает позицию без налога: amount == unitPrice.
func line(itemType domain.OrderItemType, itemID, amount string) domain.OrderItem {
	return domain.OrderItem{
		Type:      itemType,
		Item:      itemID,
		Title:     itemID,
		Amount:    nullDec(amount),
		UnitPrice: nullDec(amount),
		TaxRate:   nullDec("0"),
		TaxAmount: nullDec("0"),
	}
}

func rentLine(amount string) domain.OrderItem {
	item := line(domain.OrderItemTypeRent, rentItemID, amount)
	item.Info = &domain.OrderItemInfo{PeriodType: semester, NumberOfPeriods: 1}
	return item
}

func orderOf(items ...domain.OrderItem) domain.Order {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount.Decimal)
	}
	return domain.Order{
		ID:         "order-new",
		Amount:     decimal.NewNullDecimal(total),
		OrderItems: items,
		Branch:     branchID,
	}
}

func downSanitizer() pricing.Sanitizer {
	return pricing.NewSanitizer(pricing.RoundingDown)
}
