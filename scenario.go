package banksim

import "banksim/internal/bank"

// ScenarioOverrides is a sparse set of overrides layered onto a base
// Config and BankState. Each pointer-typed group (Global, RiskLimits,
// Behaviour, ShockParameters, Tolerances, and the BankState substates) is
// a whole-record replace when provided — the caller supplies a complete
// replacement record for that group, never individual fields within it.
// The per-product maps (ProductParameters, LiquidityTags, BalanceSheet)
// merge key-by-key, so overriding one product leaves every other
// product's configured record untouched.
type ScenarioOverrides struct {
	Global            *bank.GlobalConfig
	ProductParameters map[bank.ProductType]bank.ProductParams
	LiquidityTags     map[bank.ProductType]bank.LiquidityTagConfig
	RiskLimits        *bank.RiskLimits
	Behaviour         *bank.BehaviourConfig
	ShockParameters   *bank.ShockParameters
	Tolerances        *bank.Tolerances

	Capital       *bank.CapitalState
	IncomeStatement *bank.IncomeStatement
	CashFlow      *bank.CashFlowStatement
	Market        *bank.MarketState
	BankBehaviour *bank.BehaviouralState
	Status        *bank.Status

	BalanceSheet map[bank.ProductType]bank.BalanceSheetItem
}

// ApplyScenario folds overrides onto cfg and initialState, returning fresh
// records — neither input is mutated.
func ApplyScenario(cfg bank.Config, initialState *bank.BankState, overrides ScenarioOverrides) (bank.Config, *bank.BankState) {
	mergedCfg := cfg
	if overrides.Global != nil {
		mergedCfg.Global = *overrides.Global
	}
	if overrides.RiskLimits != nil {
		mergedCfg.RiskLimits = *overrides.RiskLimits
	}
	if overrides.Behaviour != nil {
		mergedCfg.Behaviour = *overrides.Behaviour
	}
	if overrides.ShockParameters != nil {
		mergedCfg.ShockParameters = *overrides.ShockParameters
	}
	if overrides.Tolerances != nil {
		mergedCfg.Tolerances = *overrides.Tolerances
	}

	if len(overrides.ProductParameters) > 0 {
		merged := make(map[bank.ProductType]bank.ProductParams, len(cfg.ProductParameters))
		for k, v := range cfg.ProductParameters {
			merged[k] = v
		}
		for k, v := range overrides.ProductParameters {
			merged[k] = v
		}
		mergedCfg.ProductParameters = merged
	}
	if len(overrides.LiquidityTags) > 0 {
		merged := make(map[bank.ProductType]bank.LiquidityTagConfig, len(cfg.LiquidityTags))
		for k, v := range cfg.LiquidityTags {
			merged[k] = v
		}
		for k, v := range overrides.LiquidityTags {
			merged[k] = v
		}
		mergedCfg.LiquidityTags = merged
	}

	mergedState := cloneState(initialState)
	if overrides.Capital != nil {
		mergedState.Capital = *overrides.Capital
	}
	if overrides.IncomeStatement != nil {
		mergedState.Income = *overrides.IncomeStatement
	}
	if overrides.CashFlow != nil {
		mergedState.CashFlow = *overrides.CashFlow
	}
	if overrides.Market != nil {
		mergedState.Market = *overrides.Market
	}
	if overrides.BankBehaviour != nil {
		mergedState.Behaviour = *overrides.BankBehaviour
	}
	if overrides.Status != nil {
		mergedState.Status = *overrides.Status
	}
	for _, item := range overrides.BalanceSheet {
		mergedState.SetItem(item)
	}

	return mergedCfg, mergedState
}
