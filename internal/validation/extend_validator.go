package validation

import (
	"context"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// ExtendValidator ограничивает количество продлений экземпляра по типу периода.
// Счётчик читается без блокировки: два параллельных продления могут пройти
// проверку оба, сериализация остаётся на стороне записи.
type ExtendValidator struct {
	customerItems domain.CustomerItemRepository
}

// NewExtendValidator создаёт валидатор продления.
func NewExtendValidator(customerItems domain.CustomerItemRepository) *ExtendValidator {
	return &ExtendValidator{customerItems: customerItems}
}

// Validate проверяет, что продление не превышает лимит периодов филиала.
func (v *ExtendValidator) Validate(ctx context.Context, branch domain.Branch, orderItem domain.OrderItem, _ domain.Item) error {
	if orderItem.Info == nil || orderItem.Info.CustomerItem == "" {
		return domain.MissingField("orderItem.info.customerItem is not specified")
	}

	periodType := orderItem.Info.PeriodType
	extendPeriod, ok := branch.ExtendPeriod(periodType)
	if !ok {
		return domain.RuleViolation("extend period %q is not valid on branch %q", periodType, branch.ID)
	}

	customerItem, err := v.customerItems.Get(ctx, orderItem.Info.CustomerItem)
	if err != nil {
		return err
	}

	count := customerItem.ExtendCount(periodType)
	if count >= extendPeriod.MaxNumberOfPeriods {
		return domain.RuleViolation(
			"orderItem can not be extended any more times: customerItem %q has %d %q extends, max is %d",
			customerItem.ID, count, periodType, extendPeriod.MaxNumberOfPeriods,
		)
	}

	return nil
}
