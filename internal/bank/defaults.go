package bank

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// DefaultConfig returns a fully-populated, literal configuration covering
// every product in the taxonomy. Every ratio below is a plausible
// mid-market figure, not a placeholder; a few of the constants carry an
// inline comment naming their real-world basis.
func DefaultConfig() Config {
	return Config{
		Global: GlobalConfig{
			TaxRate:                    0.25, // UK-ish corporation tax on bank profit
			OperatingCostRatio:         0.015, // 1.5% of assets per annum run-rate opex
			MaxDepositGrowthPerStep:    0.08,  // cap franchise growth at 8%/month
			MaxLoanGrowthPerStep:       0.08,
			FixedOperatingCostPerMonth: 5_000_000,
			InitialPortfolioSeed:       nil,
		},
		ProductParameters: map[ProductType]ProductParams{
			CashReserves: {RiskWeight: 0.0, BaseDefaultRate: 0, LossGivenDefault: 0, VolumeElasticityToRate: 0},
			Gilts:        {RiskWeight: 0.0, BaseDefaultRate: 0, LossGivenDefault: 0, VolumeElasticityToRate: 0},
			Mortgages: {
				RiskWeight: 0.35, BaseDefaultRate: 0.005, LossGivenDefault: 0.15, VolumeElasticityToRate: 6.0,
				Loan: &LoanProductParams{
					DefaultTermMonths: 300, MaxTermMonths: 420,
					InitialSeasoningEnabled:     true,
					InitialCouponDispersionBps:  40,
					InitialPdMultiplierRange:    [2]float64{0.7, 1.3},
					InitialLgdMultiplierRange:   [2]float64{0.8, 1.2},
					InitialMinBucketOutstanding: 1_000_000,
				},
			},
			CorporateLoans: {
				RiskWeight: 1.0, BaseDefaultRate: 0.015, LossGivenDefault: 0.40, VolumeElasticityToRate: 4.0,
				Loan: &LoanProductParams{
					DefaultTermMonths: 60, MaxTermMonths: 120,
					InitialSeasoningEnabled:     true,
					InitialCouponDispersionBps:  60,
					InitialPdMultiplierRange:    [2]float64{0.7, 1.3},
					InitialLgdMultiplierRange:   [2]float64{0.8, 1.2},
					InitialMinBucketOutstanding: 1_000_000,
				},
			},
			ReverseRepo: {RiskWeight: 0.2, BaseDefaultRate: 0, LossGivenDefault: 0, VolumeElasticityToRate: 0},

			RetailDeposits:       {RiskWeight: 0, BaseDefaultRate: 0, LossGivenDefault: 0, VolumeElasticityToRate: 8.0},
			CorporateDeposits:    {RiskWeight: 0, BaseDefaultRate: 0, LossGivenDefault: 0, VolumeElasticityToRate: 5.0},
			WholesaleFundingST:   {RiskWeight: 0, BaseDefaultRate: 0, LossGivenDefault: 0, VolumeElasticityToRate: 0},
			WholesaleFundingLT:   {RiskWeight: 0, BaseDefaultRate: 0, LossGivenDefault: 0, VolumeElasticityToRate: 0},
			RepurchaseAgreements: {RiskWeight: 0, BaseDefaultRate: 0, LossGivenDefault: 0, VolumeElasticityToRate: 0},
		},
		LiquidityTags: map[ProductType]LiquidityTagConfig{
			CashReserves: {HQLALevel: HQLALevel1},
			Gilts:        {HQLALevel: HQLALevel1, NSFRAsfFactor: f64(0), NSFRRsfFactor: f64(0.05)},
			Mortgages:    {HQLALevel: HQLANone, NSFRRsfFactor: f64(0.65)},
			CorporateLoans: {HQLALevel: HQLANone, NSFRRsfFactor: f64(0.85)},
			ReverseRepo:  {HQLALevel: HQLANone, LCRInflowRate: f64(1.0), NSFRRsfFactor: f64(0.10)},

			RetailDeposits:       {HQLALevel: HQLANone, LCROutflowRate: f64(0.05), NSFRAsfFactor: f64(0.90)},
			CorporateDeposits:    {HQLALevel: HQLANone, LCROutflowRate: f64(0.25), NSFRAsfFactor: f64(0.50)},
			WholesaleFundingST:   {HQLALevel: HQLANone, LCROutflowRate: f64(1.00), NSFRAsfFactor: f64(0.0)},
			WholesaleFundingLT:   {HQLALevel: HQLANone, NSFRAsfFactor: f64(1.0)},
			RepurchaseAgreements: {HQLALevel: HQLANone, LCROutflowRate: f64(1.00), NSFRAsfFactor: f64(0.0)},
		},
		RiskLimits: RiskLimits{
			MinCET1Ratio:     0.045, // Basel III CET1 minimum
			MinLeverageRatio: 0.03,
			MinLCR:           1.0,
			MinNSFR:          1.0,
		},
		Behaviour: BehaviourConfig{
			DepositBaselineGrowthMonthly: 0.002,
			LoanBaselineGrowthMonthly:    0.002,
			MinDepositGrowthPerStep:      -0.10,
			MinLoanGrowthPerStep:         -0.10,
			LoanFeeRateMonthly:           0.0005,
		},
		ShockParameters: ShockParameters{
			IdiosyncraticRun: IdiosyncraticRunParams{
				BaseRunOffRate:  0.05,
				IncrementalRate: 0.20,
				MaxRunOffRate:   0.60,
			},
		},
		Tolerances: Tolerances{
			CashFlowRoundingTolerance: 1e-2,
			CashFlowBreachThreshold:   1.0,
		},
		OpeningBook: OpeningBookConfig{
			Balances: map[ProductType]float64{
				CashReserves:      8_000_000_000,
				Gilts:             12_000_000_000,
				Mortgages:         60_000_000_000,
				CorporateLoans:    25_000_000_000,
				RetailDeposits:    70_000_000_000,
				CorporateDeposits: 20_000_000_000,
				WholesaleFundingLT: 9_000_000_000,
			},
			Rates: map[ProductType]float64{
				Gilts:              0.035,
				Mortgages:          0.045,
				CorporateLoans:     0.065,
				RetailDeposits:     0.01,
				CorporateDeposits:  0.015,
				WholesaleFundingLT: 0.04,
			},
			Capital: CapitalState{CET1: 5_000_000_000, AT1: 1_000_000_000},
		},
	}
}
