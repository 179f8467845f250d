package banksim

import (
	"math"

	"banksim/internal/bank"
	"banksim/internal/cohort"
)

// applyDepositBehaviour grows or shrinks each customer-deposit product
// toward its rate-elasticity-implied target. Growth is a cash inflow;
// shrinkage is paid out of cash, and a cash shortfall flips HasFailed.
func applyDepositBehaviour(state *bank.BankState, cfg bank.Config, dtMonths float64, emit func(bank.Severity, string)) {
	for _, p := range bank.AllProducts() {
		meta := bank.Meta(p)
		if !meta.IsCustomerDeposit {
			continue
		}
		item, ok := state.Item(p)
		if !ok {
			continue
		}
		params := cfg.ProductParameters[p]

		var competitorRate float64
		if meta.DepositSegment == bank.DepositSegmentRetail {
			competitorRate = state.Market.CompetitorRetailDepositRate
		} else if state.Market.CompetitorCorporateDepositRate != nil {
			competitorRate = *state.Market.CompetitorCorporateDepositRate
		} else {
			competitorRate = state.Market.CompetitorRetailDepositRate
		}

		g := cfg.Behaviour.DepositBaselineGrowthMonthly + params.VolumeElasticityToRate*(item.Rate-competitorRate)
		g = clampF(g, cfg.Behaviour.MinDepositGrowthPerStep, cfg.Global.MaxDepositGrowthPerStep)

		growthFactor := math.Max(0, 1+g*dtMonths)
		desired := item.Balance * growthFactor
		delta := desired - item.Balance

		if delta >= 0 {
			item.Balance = desired
			state.SetItem(item)
			creditCashDirect(state, delta)
		} else {
			before := item.Balance
			requested := -delta
			available := state.CashBalance()
			paid := math.Min(requested, available)
			item.Balance = before - paid
			state.SetItem(item)
			creditCashDirect(state, -paid)
			if paid < requested {
				state.Status.HasFailed = true
				emit(bank.SeverityError, "deposit behaviour: cash shortfall funding "+string(p)+" outflow")
			}
		}
	}
}

// applyLoanBehaviour grows or shrinks each loan product toward its
// rate-elasticity-implied target via origination or prepayment.
func applyLoanBehaviour(state *bank.BankState, cfg bank.Config, dtMonths float64, stepNumber int64, emit func(bank.Severity, string)) {
	for _, p := range bank.AllProducts() {
		meta := bank.Meta(p)
		if !meta.IsLoan {
			continue
		}
		item, ok := state.Item(p)
		if !ok {
			continue
		}
		params := cfg.ProductParameters[p]

		var benchmark float64
		if meta.LoanBenchmark == bank.LoanBenchmarkMortgage {
			benchmark = state.Market.CompetitorMortgageRate
		} else {
			benchmark = state.Market.RiskFreeLong + state.Market.CorporateLoanSpread
		}

		g := cfg.Behaviour.LoanBaselineGrowthMonthly + params.VolumeElasticityToRate*(benchmark-item.Rate)
		g = clampF(g, cfg.Behaviour.MinLoanGrowthPerStep, cfg.Global.MaxLoanGrowthPerStep)

		growthFactor := math.Max(0, 1+g*dtMonths)
		desired := item.Balance * growthFactor
		delta := desired - item.Balance

		if delta >= 0 {
			rate := item.Rate
			if rate <= 0 {
				rate = benchmark
			}
			annualPd := params.BaseDefaultRate
			lgd := params.LossGivenDefault
			term := 0
			if params.Loan != nil {
				term = params.Loan.DefaultTermMonths
			}
			if _, err := cohort.Originate(state, cfg, p, stepNumber, delta, rate, term, annualPd, lgd); err != nil {
				emit(bank.SeverityError, "loan behaviour origination failed for "+string(p)+": "+err.Error())
			}
		} else {
			if _, err := cohort.Prepay(state, p, -delta); err != nil {
				emit(bank.SeverityError, "loan behaviour prepay failed for "+string(p)+": "+err.Error())
			}
		}
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
