package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item: справочная запись прайс-листа.
type Item struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Type    string          `json:"type"`
	Price   decimal.Decimal `json:"price"`
	TaxRate decimal.Decimal `json:"taxRate"`
}

// PeriodExtend: одно продление экземпляра.
type PeriodExtend struct {
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	PeriodType string    `json:"periodType"`
	Time       time.Time `json:"time"`
}

// CustomerItem: запись об аренде конкретного экземпляра клиентом.
type CustomerItem struct {
	ID            string         `json:"id"`
	Item          string         `json:"item"`
	Customer      string         `json:"customer"`
	Deadline      time.Time      `json:"deadline"`
	PeriodExtends []PeriodExtend `json:"periodExtends"`
}

// ExtendCount считает продления заданного типа периода.
func (c CustomerItem) ExtendCount(periodType string) int {
	count := 0
	for _, extend := range c.PeriodExtends {
		if extend.PeriodType == periodType {
			count++
		}
	}
	return count
}
