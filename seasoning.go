package banksim

import (
	"fmt"

	"github.com/google/uuid"

	"banksim/internal/bank"
	"banksim/internal/cohort"
)

// InitialSeasonedPortfolio builds a starting BankState from cfg's opening
// book: every product gets its configured opening balance, loan products
// are seeded with a seasoned cohort distribution (rather than a single
// fresh cohort) so the simulation doesn't start with every loan at age
// zero, and non-loan lines are created as flat balances at their
// configured rate. Mortgage cohorts are seeded from baseSeed+0, corporate
// loan cohorts from baseSeed+1, so the two loan books never share a
// stream. baseSeed defaults to cfg.Global.InitialPortfolioSeed, overridden
// by seedOverride when non-nil.
func InitialSeasonedPortfolio(cfg bank.Config, seedOverride *int64) (*bank.BankState, error) {
	baseSeed := int64(1)
	if cfg.Global.InitialPortfolioSeed != nil {
		baseSeed = *cfg.Global.InitialPortfolioSeed
	}
	if seedOverride != nil {
		baseSeed = *seedOverride
	}

	state := &bank.BankState{
		Cohorts:  make(map[bank.ProductType][]bank.LoanCohort),
		Version:  "1",
		Clock:    bank.Clock{Step: 0, StepLengthMonths: 1},
		Capital:  cfg.OpeningBook.Capital,
		Metadata: bank.Metadata{RunID: uuid.New().String()},
	}

	loanSeedOffset := map[bank.ProductType]int64{
		bank.Mortgages:      0,
		bank.CorporateLoans: 1,
	}

	for _, p := range bank.AllProducts() {
		target, ok := cfg.OpeningBook.Balances[p]
		if !ok {
			continue
		}
		rate := cfg.OpeningBook.Rates[p]
		meta := bank.Meta(p)

		if meta.IsLoan {
			params := cfg.ProductParameters[p]
			seed := baseSeed + loanSeedOffset[p]
			cohorts, err := cohort.GenerateSeasoned(p, target, rate, params.BaseDefaultRate, params.LossGivenDefault, cfg, seed)
			if err != nil {
				return nil, fmt.Errorf("initial seasoned portfolio: %s: %w", p, err)
			}
			for _, c := range cohorts {
				if err := cohort.Validate(c, cohortMaxTerm(params)); err != nil {
					return nil, fmt.Errorf("initial seasoned portfolio: %s: %w", p, err)
				}
			}
			state.Cohorts[p] = cohorts
		}

		state.SetItem(bank.BalanceSheetItem{
			Product:   p,
			Balance:   target,
			Rate:      rate,
			Liquidity: cfg.LiquidityTagFor(p),
		})
	}

	cohort.SyncBalances(state)

	state.Market.CompetitorRetailDepositRate = cfg.OpeningBook.Rates[bank.RetailDeposits]
	state.Market.CompetitorMortgageRate = cfg.OpeningBook.Rates[bank.Mortgages]
	state.Market.BaseRate = 0.04
	state.Market.RiskFreeShort = 0.04
	state.Market.RiskFreeLong = 0.045
	state.Market.MacroModel.RNGSeed = uint32(baseSeed + 1000)

	return state, nil
}

func cohortMaxTerm(params bank.ProductParams) int {
	if params.Loan != nil && params.Loan.MaxTermMonths > 0 {
		return params.Loan.MaxTermMonths
	}
	return 420
}
