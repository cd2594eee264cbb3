package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

func movedRent(amount, from string) domain.OrderItem {
	item := rentLine(amount)
	item.MovedFromOrder = from
	return item
}

func seedOriginal(store *memory.Store, id string, payments []string, items ...domain.OrderItem) {
	original := orderOf(items...)
	original.ID = id
	original.Payments = payments
	store.Orders.Put(original)
}

func TestLineage_PaidOriginalChargesDifference(t *testing.T) {
	store := seedStore(t)
	store.Payments.Put(domain.Payment{ID: "p-old", Amount: dec("150"), Confirmed: true})
	seedOriginal(store, "order-old", []string{"p-old"}, rentLine("150"))
	pipeline := newPipeline(t, store, nil)

	require.NoError(t, pipeline.Validate(context.Background(), orderOf(movedRent("50", "order-old"))))

	err := pipeline.Validate(context.Background(), orderOf(movedRent("200", "order-old")))
	require.ErrorIs(t, err, domain.ErrPriceMismatch)
	assert.Contains(t, err.Error(), `the price difference "50"`)
}

func TestLineage_UnpaidOriginalWithZeroAmount(t *testing.T) {
	store := seedStore(t)
	store.Payments.Put(domain.Payment{ID: "p-old", Amount: dec("200"), Confirmed: false})
	seedOriginal(store, "order-old", []string{"p-old"}, rentLine("200"))
	pipeline := newPipeline(t, store, nil)

	err := pipeline.Validate(context.Background(), orderOf(movedRent("0", "order-old")))
	require.ErrorIs(t, err, domain.ErrRuleViolation)
	assert.Contains(t, err.Error(), "has not been paid")
}

func TestLineage_ItemMissingInOriginal(t *testing.T) {
	store := seedStore(t)
	seedOriginal(store, "order-old", nil, line(domain.OrderItemTypeBuy, buyItemID, "200"))
	pipeline := newPipeline(t, store, nil)

	err := pipeline.Validate(context.Background(), orderOf(movedRent("50", "order-old")))
	require.ErrorIs(t, err, domain.ErrRuleViolation)
	assert.Contains(t, err.Error(), "is not found in original order")
}

func TestLineage_OriginalOrderMissing(t *testing.T) {
	store := seedStore(t)
	pipeline := newPipeline(t, store, nil)

	err := pipeline.Validate(context.Background(), orderOf(movedRent("50", "order-404")))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLineage_CycleIsRejected(t *testing.T) {
	store := seedStore(t)
	seedOriginal(store, "order-a", nil, movedRent("150", "order-b"))
	seedOriginal(store, "order-b", nil, movedRent("150", "order-a"))
	pipeline := newPipeline(t, store, nil)

	err := pipeline.Validate(context.Background(), orderOf(movedRent("50", "order-a")))
	require.ErrorIs(t, err, domain.ErrRuleViolation)
	assert.Contains(t, err.Error(), "forms a cycle")
}

func TestLineage_DepthLimit(t *testing.T) {
	store := seedStore(t)
	seedOriginal(store, "order-1", nil, movedRent("150", "order-2"))
	seedOriginal(store, "order-2", nil, movedRent("150", "order-3"))
	seedOriginal(store, "order-3", nil, rentLine("150"))

	lineage := validation.NewLineageValidator(store.Orders, store.Payments, downSanitizer(), 2)

	err := lineage.Validate(context.Background(), movedRent("50", "order-1"), dec("200"))
	require.ErrorIs(t, err, domain.ErrRuleViolation)
	assert.Contains(t, err.Error(), "exceeds max depth 2")

	deep := validation.NewLineageValidator(store.Orders, store.Payments, downSanitizer(), 0)
	err = deep.Validate(context.Background(), movedRent("50", "order-1"), dec("200"))
	require.NoError(t, err)
}
