package invariant

import (
	"testing"

	"banksim/internal/bank"
)

func balancedState() *bank.BankState {
	s := &bank.BankState{}
	s.SetItem(bank.BalanceSheetItem{Product: bank.CashReserves, Balance: 900})
	s.SetItem(bank.BalanceSheetItem{Product: bank.RetailDeposits, Balance: 800})
	s.Capital.CET1 = 100
	s.Risk.CET1Ratio = 1
	s.Risk.LeverageRatio = 1
	s.Risk.LCR = 1
	s.Risk.NSFR = 1
	s.CashFlow = bank.CashFlowStatement{CashStart: 800, Operating: 100, CashEnd: 900}
	return s
}

func TestCheckPassesOnBalancedState(t *testing.T) {
	cfg := bank.DefaultConfig()
	if got := Check(balancedState(), cfg); len(got) != 0 {
		t.Fatalf("expected no violations, got %+v", got)
	}
}

func TestCheckCatchesBalanceIdentityBreak(t *testing.T) {
	s := balancedState()
	s.SetItem(bank.BalanceSheetItem{Product: bank.CashReserves, Balance: 950})
	cfg := bank.DefaultConfig()

	violations := Check(s, cfg)
	found := false
	for _, v := range violations {
		if v.Rule == "balance-identity" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a balance-identity violation, got %+v", violations)
	}
}

func TestCheckCatchesNegativeBalance(t *testing.T) {
	s := balancedState()
	item, _ := s.Item(bank.CashReserves)
	item.Balance = -10
	s.SetItem(item)
	cfg := bank.DefaultConfig()

	violations := Check(s, cfg)
	found := false
	for _, v := range violations {
		if v.Rule == "non-negative-balance" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a non-negative-balance violation, got %+v", violations)
	}
}

func TestCheckCatchesNaNRatio(t *testing.T) {
	s := balancedState()
	s.Risk.LCR = nanValue()
	cfg := bank.DefaultConfig()

	violations := Check(s, cfg)
	found := false
	for _, v := range violations {
		if v.Rule == "finite-ratio" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a finite-ratio violation for NaN LCR, got %+v", violations)
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestCheckCatchesCashFlowTieOutBreak(t *testing.T) {
	s := balancedState()
	s.CashFlow.CashEnd = 10_000
	cfg := bank.DefaultConfig()

	violations := Check(s, cfg)
	found := false
	for _, v := range violations {
		if v.Rule == "cash-flow-tie-out" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a cash-flow-tie-out violation, got %+v", violations)
	}
}
