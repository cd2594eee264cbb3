package domain

import "github.com/shopspring/decimal"

// Payment описывает платёж, привязанный к заказу.
type Payment struct {
	ID        string          `json:"id"`
	Order     string          `json:"order,omitempty"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Confirmed bool            `json:"confirmed"`
}

// Delivery описывает выбранный способ доставки и его стоимость.
type Delivery struct {
	ID     string          `json:"id"`
	Order  string          `json:"order,omitempty"`
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentsTotal суммирует платежи.
func PaymentsTotal(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range payments {
		total = total.Add(payment.Amount)
	}
	return total
}

// HasConfirmed сообщает, есть ли среди платежей хотя бы один подтверждённый.
func HasConfirmed(payments []Payment) bool {
	for _, payment := range payments {
		if payment.Confirmed {
			return true
		}
	}
	return false
}
