package banksim

import "banksim/internal/bank"

// cloneState returns a deep, fully independent copy of state: every map
// and slice is a fresh allocation, so mutating the clone (as Step does on
// its working copy) can never affect the caller's original. ItemOrder is
// copied verbatim so insertion order, as returned by Items(), is
// preserved exactly.
func cloneState(state *bank.BankState) *bank.BankState {
	clone := *state

	copyF64 := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}

	if state.BalanceSheet != nil {
		clone.BalanceSheet = make(map[bank.ProductType]bank.BalanceSheetItem, len(state.BalanceSheet))
		for k, v := range state.BalanceSheet {
			v.Liquidity.LCROutflowRate = copyF64(v.Liquidity.LCROutflowRate)
			v.Liquidity.LCRInflowRate = copyF64(v.Liquidity.LCRInflowRate)
			v.Liquidity.NSFRAsfFactor = copyF64(v.Liquidity.NSFRAsfFactor)
			v.Liquidity.NSFRRsfFactor = copyF64(v.Liquidity.NSFRRsfFactor)
			clone.BalanceSheet[k] = v
		}
	}
	clone.Market.CompetitorCorporateDepositRate = copyF64(state.Market.CompetitorCorporateDepositRate)
	if state.ItemOrder != nil {
		clone.ItemOrder = append([]bank.ProductType(nil), state.ItemOrder...)
	}
	if state.Cohorts != nil {
		clone.Cohorts = make(map[bank.ProductType][]bank.LoanCohort, len(state.Cohorts))
		for product, cohorts := range state.Cohorts {
			copied := make([]bank.LoanCohort, len(cohorts))
			for i, c := range cohorts {
				copied[i] = c.Clone()
			}
			clone.Cohorts[product] = copied
		}
	}

	return &clone
}
