// Package invariant checks the universal properties every successful Step
// must leave true: the balance-sheet identity, non-negative balances,
// finite ratios, and a reconciled cash-flow statement. Check never fails
// fast on the first violation — it collects every violation found and
// returns them together as human-readable messages.
package invariant

import (
	"fmt"
	"math"

	"banksim/internal/bank"
)

// Violation is a single failed invariant, carrying enough context to log
// or surface to a caller without re-deriving the failure.
type Violation struct {
	Rule    string
	Message string
}

func (v Violation) Error() string { return fmt.Sprintf("%s: %s", v.Rule, v.Message) }

// Check runs every universal invariant against state and returns every
// violation found (nil if the state is fully consistent). It never mutates
// state.
func Check(state *bank.BankState, cfg bank.Config) []Violation {
	var violations []Violation

	violations = append(violations, checkBalanceIdentity(state, cfg)...)
	violations = append(violations, checkNonNegativeBalances(state)...)
	violations = append(violations, checkFiniteRatios(state)...)
	violations = append(violations, checkCashFlowTieOut(state, cfg)...)

	return violations
}

// balanceIdentityTolerance is the balance-sheet identity's tolerance, fixed
// at 1 unit independent of the configurable cash-flow-rounding tolerance
// (which governs only the cash-flow tie-out check below).
const balanceIdentityTolerance = 1.0

func checkBalanceIdentity(state *bank.BankState, cfg bank.Config) []Violation {
	assets := state.TotalAssets()
	liabilitiesPlusEquity := state.TotalLiabilities() + state.TotalEquity()
	diff := math.Abs(assets - liabilitiesPlusEquity)
	tol := balanceIdentityTolerance
	if diff > tol {
		return []Violation{{
			Rule:    "balance-identity",
			Message: fmt.Sprintf("assets %v != liabilities+equity %v (diff %v > tol %v)", assets, liabilitiesPlusEquity, diff, tol),
		}}
	}
	return nil
}

func checkNonNegativeBalances(state *bank.BankState) []Violation {
	var out []Violation
	for _, item := range state.Items() {
		if item.Balance < -1e-6 {
			out = append(out, Violation{Rule: "non-negative-balance", Message: fmt.Sprintf("%s balance %v < 0", item.Product, item.Balance)})
		}
		if item.Encumbered < -1e-6 || item.Encumbered > item.Balance+1e-6 {
			out = append(out, Violation{Rule: "non-negative-balance", Message: fmt.Sprintf("%s encumbered %v out of [0, balance=%v]", item.Product, item.Encumbered, item.Balance)})
		}
	}
	for product, cohorts := range state.Cohorts {
		for _, c := range cohorts {
			if c.OutstandingPrincipal < -1e-6 {
				out = append(out, Violation{Rule: "non-negative-balance", Message: fmt.Sprintf("%s cohort %d outstanding %v < 0", product, c.CohortID, c.OutstandingPrincipal)})
			}
		}
	}
	return out
}

func checkFiniteRatios(state *bank.BankState) []Violation {
	var out []Violation
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, -1) {
			out = append(out, Violation{Rule: "finite-ratio", Message: fmt.Sprintf("%s is %v", name, v)})
		}
	}
	check("CET1Ratio", state.Risk.CET1Ratio)
	check("LeverageRatio", state.Risk.LeverageRatio)
	check("LCR", state.Risk.LCR)
	check("NSFR", state.Risk.NSFR)
	return out
}

func checkCashFlowTieOut(state *bank.BankState, cfg bank.Config) []Violation {
	cf := state.CashFlow
	reconciled := cf.CashStart + cf.Operating + cf.Investing + cf.Financing
	diff := math.Abs(reconciled - cf.CashEnd)
	threshold := cfg.Tolerances.CashFlowBreachThreshold
	if threshold <= 0 {
		threshold = 1.0
	}
	if diff > threshold {
		return []Violation{{
			Rule:    "cash-flow-tie-out",
			Message: fmt.Sprintf("reconciled cash %v != reported CashEnd %v (diff %v > threshold %v)", reconciled, cf.CashEnd, diff, threshold),
		}}
	}
	return nil
}
