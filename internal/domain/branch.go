package domain

import "github.com/shopspring/decimal"

// RentPeriod: процент от цены товара за аренду на период.
type RentPeriod struct {
	Type       string          `json:"type"`
	Date       string          `json:"date,omitempty"`
	Percentage decimal.Decimal `json:"percentage"`
}

// ExtendPeriod: ограничение и цена продления на период.
type ExtendPeriod struct {
	Type               string          `json:"type"`
	Date               string          `json:"date,omitempty"`
	MaxNumberOfPeriods int             `json:"maxNumberOfPeriods"`
	Price              decimal.Decimal `json:"price"`
	Percentage         decimal.Decimal `json:"percentage,omitempty"`
}

// PartlyPaymentPeriod: период, для которого разрешена частичная оплата.
type PartlyPaymentPeriod struct {
	Type string `json:"type"`
	Date string `json:"date,omitempty"`
}

// PercentageTerm: условие выкупа или продажи.
type PercentageTerm struct {
	Percentage decimal.Decimal `json:"percentage"`
}

// BranchPaymentInfo: договорные условия филиала.
type BranchPaymentInfo struct {
	// Responsible: филиал платит сам, клиент не должен ничего.
	Responsible          bool                  `json:"responsible"`
	RentPeriods          []RentPeriod          `json:"rentPeriods"`
	ExtendPeriods        []ExtendPeriod        `json:"extendPeriods"`
	PartlyPaymentPeriods []PartlyPaymentPeriod `json:"partlyPaymentPeriods"`
	Buyout               *PercentageTerm       `json:"buyout,omitempty"`
	Sell                 *PercentageTerm       `json:"sell,omitempty"`
	AcceptedMethods      []string              `json:"acceptedMethods"`
}

// Branch: филиал-продавец с условиями оплаты.
type Branch struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	PaymentInfo BranchPaymentInfo `json:"paymentInfo"`
}

// RentPeriod ищет период аренды по типу.
func (b Branch) RentPeriod(periodType string) (RentPeriod, bool) {
	for _, period := range b.PaymentInfo.RentPeriods {
		if period.Type == periodType {
			return period, true
		}
	}
	return RentPeriod{}, false
}

// ExtendPeriod ищет период продления по типу.
func (b Branch) ExtendPeriod(periodType string) (ExtendPeriod, bool) {
	for _, period := range b.PaymentInfo.ExtendPeriods {
		if period.Type == periodType {
			return period, true
		}
	}
	return ExtendPeriod{}, false
}

// SupportsPartlyPayment проверяет, разрешена ли частичная оплата для типа периода.
func (b Branch) SupportsPartlyPayment(periodType string) bool {
	for _, period := range b.PaymentInfo.PartlyPaymentPeriods {
		if period.Type == periodType {
			return true
		}
	}
	return false
}

// AcceptsMethod проверяет способ оплаты. Пустой список означает отсутствие ограничений.
func (b Branch) AcceptsMethod(method string) bool {
	if len(b.PaymentInfo.AcceptedMethods) == 0 {
		return true
	}
	for _, accepted := range b.PaymentInfo.AcceptedMethods {
		if accepted == method {
			return true
		}
	}
	return false
}
