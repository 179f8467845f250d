package banksim

import (
	"testing"

	"banksim/internal/bank"
)

func TestCloneStateSharesNoMutableState(t *testing.T) {
	state := &bank.BankState{Cohorts: map[bank.ProductType][]bank.LoanCohort{}}
	state.SetItem(bank.BalanceSheetItem{Product: bank.CashReserves, Balance: 100})
	state.Cohorts[bank.Mortgages] = []bank.LoanCohort{{Product: bank.Mortgages, CohortID: 1, OutstandingPrincipal: 50}}

	clone := cloneState(state)

	item, _ := clone.Item(bank.CashReserves)
	item.Balance = 5
	clone.SetItem(item)
	clone.Cohorts[bank.Mortgages][0].OutstandingPrincipal = 999

	if orig, _ := state.Item(bank.CashReserves); orig.Balance != 100 {
		t.Fatalf("mutating clone's balance sheet affected the original: %v", orig.Balance)
	}
	if state.Cohorts[bank.Mortgages][0].OutstandingPrincipal != 50 {
		t.Fatalf("mutating clone's cohorts affected the original: %v", state.Cohorts[bank.Mortgages][0].OutstandingPrincipal)
	}
}

func TestCloneStatePreservesItemOrder(t *testing.T) {
	state := &bank.BankState{}
	state.SetItem(bank.BalanceSheetItem{Product: bank.CorporateDeposits, Balance: 1})
	state.SetItem(bank.BalanceSheetItem{Product: bank.CashReserves, Balance: 2})
	state.SetItem(bank.BalanceSheetItem{Product: bank.Gilts, Balance: 3})

	clone := cloneState(state)
	if len(clone.ItemOrder) != 3 {
		t.Fatalf("expected 3 items in order, got %d", len(clone.ItemOrder))
	}
	for i, p := range state.ItemOrder {
		if clone.ItemOrder[i] != p {
			t.Fatalf("item order diverged at %d: %v != %v", i, clone.ItemOrder[i], p)
		}
	}
}
