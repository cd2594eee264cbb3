package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemType: закрытое множество видов позиций заказа.
type OrderItemType string

const (
	// OrderItemTypeBuy: покупка экземпляра.
	OrderItemTypeBuy OrderItemType = "buy"
	// OrderItemTypeRent: аренда на период филиала.
	OrderItemTypeRent OrderItemType = "rent"
	// OrderItemTypeExtend: продление уже арендованного экземпляра.
	OrderItemTypeExtend OrderItemType = "extend"
	// OrderItemTypePartlyPayment: частичная оплата с остатком к доплате.
	OrderItemTypePartlyPayment OrderItemType = "partly-payment"
	// OrderItemTypeBuyout: выкуп арендованного экземпляра.
	OrderItemTypeBuyout OrderItemType = "buyout"
	// OrderItemTypeSell: продажа экземпляра клиентом филиалу.
	OrderItemTypeSell OrderItemType = "sell"
)

// OrderItemTypes возвращает все поддерживаемые виды позиций.
func OrderItemTypes() []OrderItemType {
	return []OrderItemType{
		OrderItemTypeBuy,
		OrderItemTypeRent,
		OrderItemTypeExtend,
		OrderItemTypePartlyPayment,
		OrderItemTypeBuyout,
		OrderItemTypeSell,
	}
}

// Valid проверяет, что вид позиции относится к поддерживаемым значениям.
func (t OrderItemType) Valid() bool {
	for _, known := range OrderItemTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// OrderItemDiscount: скидка на позицию.
type OrderItemDiscount struct {
	Amount decimal.Decimal `json:"amount"`
}

// OrderItemInfo: данные, специфичные для вида позиции.
type OrderItemInfo struct {
	From            *time.Time          `json:"from,omitempty"`
	To              *time.Time          `json:"to,omitempty"`
	NumberOfPeriods int                 `json:"numberOfPeriods,omitempty"`
	PeriodType      string              `json:"periodType,omitempty"`
	CustomerItem    string              `json:"customerItem,omitempty"`
	AmountLeftToPay decimal.NullDecimal `json:"amountLeftToPay"`
}

// OrderItem: одна строка заказа.
type OrderItem struct {
	Type  OrderItemType `json:"type"`
	Item  string        `json:"item"`
	Title string        `json:"title"`
	// Amount: итог строки с налогом.
	Amount decimal.NullDecimal `json:"amount"`
	// UnitPrice: цена без налога.
	UnitPrice decimal.NullDecimal `json:"unitPrice"`
	// TaxRate: доля, например 0.25.
	TaxRate   decimal.NullDecimal `json:"taxRate"`
	TaxAmount decimal.NullDecimal `json:"taxAmount"`
	Discount  *OrderItemDiscount  `json:"discount,omitempty"`
	// MovedFromOrder ссылается на ранний заказ, строку которого заменяет эта позиция.
	MovedFromOrder string         `json:"movedFromOrder,omitempty"`
	Info           *OrderItemInfo `json:"info,omitempty"`
}

// DiscountAmount возвращает сумму скидки или ноль.
func (i OrderItem) DiscountAmount() decimal.Decimal {
	if i.Discount == nil {
		return decimal.Zero
	}
	return i.Discount.Amount
}

// Order агрегирует позиции и ссылки на доставку и платежи.
type Order struct {
	ID         string              `json:"id"`
	Amount     decimal.NullDecimal `json:"amount"`
	OrderItems []OrderItem         `json:"orderItems"`
	Branch     string              `json:"branch"`
	Delivery   string              `json:"delivery,omitempty"`
	Payments   []string            `json:"payments,omitempty"`
	Placed     bool                `json:"placed"`
	ByCustomer bool                `json:"byCustomer"`
}

// ItemsTotal суммирует amount всех позиций.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.OrderItems {
		total = total.Add(item.Amount.Decimal)
	}
	return total
}

// FindItem возвращает первую позицию заказа, ссылающуюся на itemID.
func (o Order) FindItem(itemID string) (OrderItem, bool) {
	for _, orderItem := range o.OrderItems {
		if orderItem.Item == itemID {
			return orderItem, true
		}
	}
	return OrderItem{}, false
}
