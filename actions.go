package banksim

import (
	"math"

	"banksim/internal/bank"
	"banksim/internal/cohort"
)

func applyAction(state *bank.BankState, cfg bank.Config, a bank.Action, stepNumber int64, emit func(bank.Severity, string)) {
	switch a.Kind {
	case bank.ActionAdjustRate:
		item, ok := state.Item(a.Product)
		if !ok {
			item = bank.BalanceSheetItem{Product: a.Product, Liquidity: cfg.LiquidityTagFor(a.Product)}
		}
		item.Rate = a.Rate
		state.SetItem(item)

	case bank.ActionIssueEquity:
		state.Capital.CET1 += a.Amount
		creditCashDirect(state, a.Amount)

	case bank.ActionIssueDebt:
		applyIssueDebt(state, a)

	case bank.ActionBuySellAsset:
		applyBuySellAsset(state, cfg, a, stepNumber, emit)

	case bank.ActionEnterRepo:
		applyEnterRepo(state, a, emit)

	default:
		emit(bank.SeverityWarning, "unrecognised action kind: "+string(a.Kind))
	}
}

func creditCashDirect(state *bank.BankState, amount float64) {
	item, ok := state.Item(bank.CashReserves)
	if !ok {
		item = bank.BalanceSheetItem{Product: bank.CashReserves}
	}
	item.Balance += amount
	state.SetItem(item)
}

func applyIssueDebt(state *bank.BankState, a bank.Action) {
	var pricingRate float64
	if a.RateOverride != nil {
		pricingRate = *a.RateOverride
	} else if a.Product == bank.WholesaleFundingST {
		pricingRate = state.Market.RiskFreeShort + state.Market.WholesaleSpread
	} else {
		pricingRate = state.Market.RiskFreeLong + state.Market.SeniorDebtSpread
	}

	item, ok := state.Item(a.Product)
	if !ok {
		item = bank.BalanceSheetItem{Product: a.Product, Rate: pricingRate}
	} else {
		item.Rate = weightedRate(item.Balance, item.Rate, a.Amount, pricingRate)
	}
	item.Balance += a.Amount
	state.SetItem(item)
	creditCashDirect(state, a.Amount)
}

func weightedRate(w1, r1, w2, r2 float64) float64 {
	total := w1 + w2
	if total <= 0 {
		return r2
	}
	return (w1*r1 + w2*r2) / total
}

func applyBuySellAsset(state *bank.BankState, cfg bank.Config, a bank.Action, stepNumber int64, emit func(bank.Severity, string)) {
	meta := bank.Meta(a.Product)
	if meta.IsLoan {
		if a.Amount >= 0 {
			rate := a.Rate
			term := 0
			if a.TermMonths != nil {
				term = *a.TermMonths
			}
			annualPd := cfg.ProductParameters[a.Product].BaseDefaultRate
			if a.AnnualPD != nil {
				annualPd = *a.AnnualPD
			}
			lgd := cfg.ProductParameters[a.Product].LossGivenDefault
			if a.LGD != nil {
				lgd = *a.LGD
			}
			if _, err := cohort.Originate(state, cfg, a.Product, stepNumber, a.Amount, rate, term, annualPd, lgd); err != nil {
				emit(bank.SeverityError, "buySellAsset origination failed: "+err.Error())
			}
		} else if _, err := cohort.Prepay(state, a.Product, -a.Amount); err != nil {
			emit(bank.SeverityError, "buySellAsset prepay failed: "+err.Error())
		}
		return
	}

	item, ok := state.Item(a.Product)
	if !ok {
		item = bank.BalanceSheetItem{Product: a.Product, Liquidity: cfg.LiquidityTagFor(a.Product)}
	}

	if a.Amount >= 0 {
		available := state.CashBalance()
		bought := math.Min(a.Amount, available)
		if bought < a.Amount {
			emit(bank.SeverityInfo, "buySellAsset: purchase truncated to available cash")
		}
		item.Balance += bought
		state.SetItem(item)
		creditCashDirect(state, -bought)
	} else {
		sold := math.Min(-a.Amount, item.Balance)
		item.Balance -= sold
		state.SetItem(item)
		creditCashDirect(state, sold)
	}
}

func applyEnterRepo(state *bank.BankState, a bank.Action, emit func(bank.Severity, string)) {
	haircut := 0.0
	if a.Haircut != nil {
		haircut = math.Max(0, *a.Haircut)
	}

	switch a.Direction {
	case bank.RepoBorrow:
		collateral, ok := state.Item(a.CollateralProduct)
		if !ok {
			emit(bank.SeverityError, "enterRepo: no collateral item for "+string(a.CollateralProduct))
			return
		}
		req := 1 + haircut
		available := collateral.Unencumbered()
		maxBorrow := available / req
		borrowed := math.Min(a.Amount, maxBorrow)
		if borrowed <= 0 {
			return
		}

		repoItem, ok := state.Item(bank.RepurchaseAgreements)
		if !ok {
			repoItem = bank.BalanceSheetItem{Product: bank.RepurchaseAgreements, Rate: a.Rate}
		} else {
			repoItem.Rate = weightedRate(repoItem.Balance, repoItem.Rate, borrowed, a.Rate)
		}
		repoItem.Balance += borrowed
		state.SetItem(repoItem)
		creditCashDirect(state, borrowed)

		encumbrance := math.Min(borrowed*req, collateral.Balance)
		collateral.Encumbered += encumbrance
		if collateral.Encumbered > collateral.Balance {
			collateral.Encumbered = collateral.Balance
		}
		state.SetItem(collateral)

	case bank.RepoLend:
		available := state.CashBalance()
		lent := math.Min(available, a.Amount)
		if lent <= 0 {
			return
		}
		item, ok := state.Item(bank.ReverseRepo)
		if !ok {
			item = bank.BalanceSheetItem{Product: bank.ReverseRepo, Rate: a.Rate}
		} else {
			item.Rate = weightedRate(item.Balance, item.Rate, lent, a.Rate)
		}
		item.Balance += lent
		state.SetItem(item)
		creditCashDirect(state, -lent)

	default:
		emit(bank.SeverityWarning, "enterRepo: unrecognised direction "+string(a.Direction))
	}
}
