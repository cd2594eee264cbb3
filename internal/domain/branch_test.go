package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testBranch() Branch {
	return Branch{
		ID: "b-1",
		PaymentInfo: BranchPaymentInfo{
			RentPeriods:          []RentPeriod{{Type: "semester", Percentage: decimal.RequireFromString("0.5")}},
			ExtendPeriods:        []ExtendPeriod{{Type: "semester", MaxNumberOfPeriods: 1}},
			PartlyPaymentPeriods: []PartlyPaymentPeriod{{Type: "year"}},
		},
	}
}

func TestBranchPeriods(t *testing.T) {
	branch := testBranch()

	if _, ok := branch.RentPeriod("semester"); !ok {
		t.Fatal("semester rent period expected")
	}
	if _, ok := branch.RentPeriod("day"); ok {
		t.Fatal("day rent period unexpected")
	}
	if period, ok := branch.ExtendPeriod("semester"); !ok || period.MaxNumberOfPeriods != 1 {
		t.Fatalf("unexpected extend period %+v", period)
	}
	if !branch.SupportsPartlyPayment("year") || branch.SupportsPartlyPayment("semester") {
		t.Fatal("unexpected partly payment support")
	}
}

func TestBranchAcceptsMethod(t *testing.T) {
	branch := testBranch()
	if !branch.AcceptsMethod("cash") {
		t.Fatal("empty accepted list allows every method")
	}

	branch.PaymentInfo.AcceptedMethods = []string{"card"}
	if !branch.AcceptsMethod("card") || branch.AcceptsMethod("cash") {
		t.Fatal("unexpected accepted method result")
	}
}

func TestCustomerItemExtendCount(t *testing.T) {
	now := time.Now()
	customerItem := CustomerItem{
		PeriodExtends: []PeriodExtend{
			{PeriodType: "semester", Time: now},
			{PeriodType: "year", Time: now},
			{PeriodType: "semester", Time: now},
		},
	}
	if got := customerItem.ExtendCount("semester"); got != 2 {
		t.Fatalf("expected 2 semester extends, got %d", got)
	}
}

func TestPaymentsTotalAndConfirmed(t *testing.T) {
	payments := []Payment{
		{ID: "p-1", Amount: decimal.NewFromInt(100)},
		{ID: "p-2", Amount: decimal.NewFromInt(50), Confirmed: true},
	}
	if total := PaymentsTotal(payments); !total.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected total %s", total)
	}
	if !HasConfirmed(payments) {
		t.Fatal("p-2 is confirmed")
	}
	if HasConfirmed(payments[:1]) {
		t.Fatal("p-1 alone is not confirmed")
	}
}
