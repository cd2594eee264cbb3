package validation

import (
	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// FieldValidator проверяет только форму заказа: наличие обязательных полей.
// Арифметику он не трогает.
type FieldValidator struct{}

// NewFieldValidator создаёт валидатор полей.
func NewFieldValidator() FieldValidator {
	return FieldValidator{}
}

// Validate возвращает ErrMissingField для первого незаполненного поля.
func (FieldValidator) Validate(order domain.Order) error {
	if !order.Amount.Valid {
		return domain.MissingField("order.amount is undefined")
	}
	if len(order.OrderItems) == 0 {
		return domain.MissingField("order.orderItems is empty or undefined")
	}

	for idx, orderItem := range order.OrderItems {
		if err := validateOrderItemFields(idx, orderItem); err != nil {
			return err
		}
	}

	return nil
}

func validateOrderItemFields(idx int, orderItem domain.OrderItem) error {
	switch {
	case orderItem.Item == "":
		return domain.MissingField("orderItems[%d].item is undefined", idx)
	case orderItem.Title == "":
		return domain.MissingField("orderItems[%d].title is undefined", idx)
	case !orderItem.Amount.Valid:
		return domain.MissingField("orderItems[%d].amount is undefined", idx)
	case !orderItem.UnitPrice.Valid:
		return domain.MissingField("orderItems[%d].unitPrice is undefined", idx)
	case !orderItem.TaxAmount.Valid:
		return domain.MissingField("orderItems[%d].taxAmount is undefined", idx)
	case !orderItem.TaxRate.Valid:
		return domain.MissingField("orderItems[%d].taxRate is undefined", idx)
	case orderItem.Type == "":
		return domain.MissingField("orderItems[%d].type is undefined", idx)
	}
	return nil
}
