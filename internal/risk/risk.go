// Package risk computes the bank's regulatory risk metrics and compliance
// flags from a BankState and Config: RWA, leverage ratio, HQLA, LCR, NSFR.
// Compute is a single pure function that recomputes every metric from the
// current balance sheet rather than updating metrics incrementally.
package risk

import (
	"math"

	"banksim/internal/bank"
)

const lcrInflowCapRatio = 0.75 // Basel III LCR inflow cap: inflows <= 75% of outflows

// Compute derives RiskMetrics and Compliance from the bank's current
// balance sheet, capital, and configuration. lcrOutflowMultiplier is the
// step's composed stress multiplier, applied only to retail/corporate
// deposit outflows (1.0 elsewhere). It never mutates cohorts or cash — it
// is a pure read of the ledger.
func Compute(state *bank.BankState, cfg bank.Config, lcrOutflowMultiplier float64) (bank.RiskMetrics, bank.Compliance) {
	if lcrOutflowMultiplier <= 0 {
		lcrOutflowMultiplier = 1
	}
	metrics := bank.RiskMetrics{}

	rwa := 0.0
	exposure := 0.0
	hqla := 0.0
	outflows := 0.0
	inflows := 0.0
	asf := 0.0
	rsf := 0.0

	equity := state.TotalEquity()

	for _, p := range bank.AllProducts() {
		item, ok := state.Item(p)
		if !ok {
			continue
		}
		params := cfg.ProductParameters[p]
		tag := cfg.LiquidityTagFor(p)
		meta := bank.Meta(p)

		if meta.Side == bank.SideAsset {
			exposure += item.Balance
		}
		rwa += item.Balance * params.RiskWeight

		switch tag.HQLALevel {
		case bank.HQLALevel1:
			hqla += item.Unencumbered()
		case bank.HQLALevel2A:
			hqla += item.Unencumbered() * 0.85
		case bank.HQLALevel2B:
			hqla += item.Unencumbered() * 0.50
		}

		if meta.Side == bank.SideLiability {
			if tag.LCROutflowRate != nil {
				stressMult := 1.0
				if meta.IsCustomerDeposit {
					stressMult = lcrOutflowMultiplier
				}
				outflows += item.Balance * (*tag.LCROutflowRate) * stressMult
			}
			if tag.NSFRAsfFactor != nil {
				asf += item.Balance * (*tag.NSFRAsfFactor)
			} else {
				asf += item.Balance // unconfigured liabilities treated as fully stable
			}
		} else {
			if tag.LCRInflowRate != nil {
				inflows += item.Balance * (*tag.LCRInflowRate)
			}
			if tag.NSFRRsfFactor != nil {
				rsf += item.Balance * (*tag.NSFRRsfFactor)
			} else if p != bank.CashReserves {
				rsf += item.Balance
			}
		}
	}
	asf += equity

	metrics.RWA = rwa
	metrics.LeverageExposure = exposure
	metrics.HQLA = hqla
	metrics.ASF = asf
	metrics.RSF = rsf

	if rwa > 0 {
		metrics.CET1Ratio = state.Capital.CET1 / rwa
	} else {
		metrics.CET1Ratio = math.Inf(1)
	}
	if exposure > 0 {
		metrics.LeverageRatio = equity / exposure
	} else {
		metrics.LeverageRatio = math.Inf(1)
	}

	cappedInflows := math.Min(inflows, outflows*lcrInflowCapRatio)
	netOutflows := outflows - cappedInflows
	metrics.LCROutflowMultiplier = lcrOutflowMultiplier
	if netOutflows > 0 {
		metrics.LCR = hqla / netOutflows
	} else {
		metrics.LCR = math.Inf(1)
	}

	if rsf > 0 {
		metrics.NSFR = asf / rsf
	} else {
		metrics.NSFR = math.Inf(1)
	}

	compliance := bank.Compliance{
		CET1Breach:     metrics.CET1Ratio < cfg.RiskLimits.MinCET1Ratio,
		LeverageBreach: metrics.LeverageRatio < cfg.RiskLimits.MinLeverageRatio,
		LCRBreach:      metrics.LCR < cfg.RiskLimits.MinLCR,
		NSFRBreach:     metrics.NSFR < cfg.RiskLimits.MinNSFR,
	}

	return metrics, compliance
}
