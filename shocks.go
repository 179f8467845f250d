package banksim

import (
	"math"

	"banksim/internal/bank"
)

// shockContext accumulates the composed effect of a step's shock list — a
// mutable accumulator threaded by exclusive reference through the fold.
type shockContext struct {
	pdMultiplier         float64
	lgdMultiplier        float64
	lcrOutflowMultiplier float64
	extraLosses          map[bank.ProductType]float64
}

func newShockContext() *shockContext {
	return &shockContext{
		pdMultiplier:         1,
		lgdMultiplier:        1,
		lcrOutflowMultiplier: 1,
		extraLosses:          make(map[bank.ProductType]float64),
	}
}

func applyShock(state *bank.BankState, cfg bank.Config, ctx *shockContext, s bank.Shock, emit func(bank.Severity, string)) {
	switch s.Kind {
	case bank.ShockDepositCompetition:
		state.Market.CompetitorRetailDepositRate += s.RetailRateIncrease
		if state.Market.CompetitorCorporateDepositRate != nil {
			v := *state.Market.CompetitorCorporateDepositRate + s.CorporateRateIncrease
			state.Market.CompetitorCorporateDepositRate = &v
		} else {
			v := state.Market.CompetitorRetailDepositRate + s.CorporateRateIncrease
			state.Market.CompetitorCorporateDepositRate = &v
		}

	case bank.ShockMarketSpread:
		bps := s.Bps / 10000.0
		state.Market.WholesaleSpread += bps
		state.Market.SeniorDebtSpread += bps
		state.Market.CreditSpread += bps
		state.Market.CorporateLoanSpread += bps
		state.Market.GiltRepoHaircut += s.HaircutIncreasePct

	case bank.ShockIdiosyncraticRun:
		ctx.lcrOutflowMultiplier *= s.Multiplier
		p := cfg.ShockParameters.IdiosyncraticRun
		runOff := p.BaseRunOffRate + math.Max(0, ctx.lcrOutflowMultiplier-1)*p.IncrementalRate
		if runOff > p.MaxRunOffRate {
			runOff = p.MaxRunOffRate
		}
		applyIdiosyncraticRun(state, runOff, emit)

	case bank.ShockMacroDownturn:
		ctx.pdMultiplier *= s.PDMultiplier
		ctx.lgdMultiplier *= s.LGDMultiplier

	case bank.ShockCounterpartyDefault:
		ctx.extraLosses[s.Product] += s.LossAmount

	default:
		emit(bank.SeverityWarning, "unrecognised shock kind: "+string(s.Kind))
	}
}

func applyIdiosyncraticRun(state *bank.BankState, runOff float64, emit func(bank.Severity, string)) {
	retailItem, hasRetail := state.Item(bank.RetailDeposits)
	corpItem, hasCorp := state.Item(bank.CorporateDeposits)

	retailRequested := 0.0
	if hasRetail {
		retailRequested = retailItem.Balance * runOff
	}
	corpRequested := 0.0
	if hasCorp {
		corpRequested = corpItem.Balance * runOff
	}
	totalRequested := retailRequested + corpRequested
	if totalRequested <= 0 {
		return
	}

	available := state.CashBalance()
	paid := math.Min(totalRequested, available)

	retailPaid := math.Min(retailRequested, paid*retailRequested/totalRequested)
	corpPaid := paid - retailPaid

	if hasRetail {
		retailItem.Balance -= retailPaid
		state.SetItem(retailItem)
	}
	if hasCorp {
		corpItem.Balance -= corpPaid
		state.SetItem(corpItem)
	}
	if cashItem, ok := state.Item(bank.CashReserves); ok {
		cashItem.Balance -= paid
		state.SetItem(cashItem)
	}

	if paid < totalRequested {
		state.Status.HasFailed = true
		emit(bank.SeverityError, "idiosyncratic run: cash shortfall, requested outflow exceeded available cash")
	}
}
