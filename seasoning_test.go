package banksim

import (
	"math"
	"testing"

	"banksim/internal/bank"
)

func TestInitialSeasonedPortfolioMatchesTargets(t *testing.T) {
	cfg := bank.DefaultConfig()
	seed := int64(7)

	state, err := InitialSeasonedPortfolio(cfg, &seed)
	if err != nil {
		t.Fatalf("InitialSeasonedPortfolio: %v", err)
	}

	for product, target := range cfg.OpeningBook.Balances {
		item, ok := state.Item(product)
		if !ok {
			t.Fatalf("missing opening balance for %s", product)
		}
		if math.Abs(item.Balance-target) > math.Max(1e6, target*1e-6) {
			t.Fatalf("%s balance %v does not match opening target %v", product, item.Balance, target)
		}
	}

	assets := state.TotalAssets()
	liabEquity := state.TotalLiabilities() + state.TotalEquity()
	if math.Abs(assets-liabEquity) > 1 {
		t.Fatalf("opening balance sheet does not balance: assets=%v liab+equity=%v", assets, liabEquity)
	}
}

func TestInitialSeasonedPortfolioDeterministic(t *testing.T) {
	cfg := bank.DefaultConfig()
	seed := int64(99)

	a, err := InitialSeasonedPortfolio(cfg, &seed)
	if err != nil {
		t.Fatalf("InitialSeasonedPortfolio a: %v", err)
	}
	b, err := InitialSeasonedPortfolio(cfg, &seed)
	if err != nil {
		t.Fatalf("InitialSeasonedPortfolio b: %v", err)
	}

	for _, product := range []bank.ProductType{bank.Mortgages, bank.CorporateLoans} {
		ca, cb := a.Cohorts[product], b.Cohorts[product]
		if len(ca) != len(cb) {
			t.Fatalf("%s: cohort count diverged: %d != %d", product, len(ca), len(cb))
		}
		for i := range ca {
			if ca[i] != cb[i] {
				t.Fatalf("%s: cohort %d diverged: %+v != %+v", product, i, ca[i], cb[i])
			}
		}
	}
}

func TestInitialSeasonedPortfolioMortgageAndCorporateSeedsDiffer(t *testing.T) {
	cfg := bank.DefaultConfig()
	state, err := InitialSeasonedPortfolio(cfg, nil)
	if err != nil {
		t.Fatalf("InitialSeasonedPortfolio: %v", err)
	}

	mortgages := state.Cohorts[bank.Mortgages]
	corporate := state.Cohorts[bank.CorporateLoans]
	if len(mortgages) == 0 || len(corporate) == 0 {
		t.Fatalf("expected seasoned cohorts for both loan books")
	}
	// The two books are seeded from baseSeed+0 and baseSeed+1, so their
	// coupon dispersion draws should not coincide across every cohort.
	identical := len(mortgages) == len(corporate)
	if identical {
		for i := range mortgages {
			if mortgages[i].AnnualInterestRate != corporate[i].AnnualInterestRate {
				identical = false
				break
			}
		}
	}
	if identical {
		t.Fatalf("expected mortgage and corporate seasoning streams to diverge")
	}
}
