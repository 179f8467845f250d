package bank

// LoanProductParams configures a loan product's origination defaults.
type LoanProductParams struct {
	DefaultTermMonths int
	MaxTermMonths     int

	InitialSeasoningEnabled      bool
	InitialCouponDispersionBps   float64
	InitialPdMultiplierRange     [2]float64
	InitialLgdMultiplierRange    [2]float64
	InitialMinBucketOutstanding  float64
}

// ProductParams configures the per-product economics the risk and
// behavioural models consume.
type ProductParams struct {
	RiskWeight             float64
	BaseDefaultRate        float64
	LossGivenDefault       float64
	VolumeElasticityToRate float64
	Loan                   *LoanProductParams // non-nil only for loan products
}

// LiquidityTagConfig mirrors bank.LiquidityTag but as configuration input
// (pointers distinguish "not configured" from "configured as zero").
type LiquidityTagConfig struct {
	HQLALevel      HQLALevel
	LCROutflowRate *float64
	LCRInflowRate  *float64
	NSFRAsfFactor  *float64
	NSFRRsfFactor  *float64
}

func (c LiquidityTagConfig) toTag() LiquidityTag {
	return LiquidityTag{
		HQLALevel:      c.HQLALevel,
		LCROutflowRate: c.LCROutflowRate,
		LCRInflowRate:  c.LCRInflowRate,
		NSFRAsfFactor:  c.NSFRAsfFactor,
		NSFRRsfFactor:  c.NSFRRsfFactor,
	}
}

// RiskLimits are the minimum regulatory ratios the bank must maintain.
type RiskLimits struct {
	MinCET1Ratio     float64
	MinLeverageRatio float64
	MinLCR           float64
	MinNSFR          float64
}

// BehaviourConfig configures the deposit/loan behavioural-flow model.
type BehaviourConfig struct {
	DepositBaselineGrowthMonthly float64
	LoanBaselineGrowthMonthly    float64
	MinDepositGrowthPerStep      float64
	MinLoanGrowthPerStep         float64
	LoanFeeRateMonthly           float64
}

// IdiosyncraticRunParams configures the run-off shock.
type IdiosyncraticRunParams struct {
	BaseRunOffRate  float64
	IncrementalRate float64
	MaxRunOffRate   float64
}

// ShockParameters groups the configuration for every shock kind that needs
// tunable parameters beyond what the shock itself carries.
type ShockParameters struct {
	IdiosyncraticRun IdiosyncraticRunParams
}

// Tolerances groups the configurable numeric tolerances used by the cash
// flow statement's tie-out check.
type Tolerances struct {
	CashFlowRoundingTolerance float64
	CashFlowBreachThreshold   float64
}

// GlobalConfig groups the whole-of-bank parameters.
type GlobalConfig struct {
	TaxRate                     float64
	OperatingCostRatio          float64
	MaxDepositGrowthPerStep     float64
	MaxLoanGrowthPerStep        float64
	FixedOperatingCostPerMonth  float64
	InitialPortfolioSeed        *int64
}

// OpeningBookConfig describes the target balance sheet that seasoned
// portfolio construction builds toward: a per-product opening balance and
// rate, plus the bank's starting capital.
type OpeningBookConfig struct {
	Balances map[ProductType]float64
	Rates    map[ProductType]float64
	Capital  CapitalState
}

// Config is the single configuration record every component reads from.
// It carries no file-path or I/O concerns: loading it from disk, env, or a
// flag set is entirely the caller's job.
type Config struct {
	Global            GlobalConfig
	ProductParameters map[ProductType]ProductParams
	LiquidityTags     map[ProductType]LiquidityTagConfig
	RiskLimits        RiskLimits
	Behaviour         BehaviourConfig
	ShockParameters   ShockParameters
	Tolerances        Tolerances
	OpeningBook       OpeningBookConfig
}

// LiquidityTagFor resolves the LiquidityTag a balance-sheet item should
// carry for a product, per the configured tags (zero value if unconfigured,
// which resolves to HQLANone with no LCR/NSFR factors).
func (c Config) LiquidityTagFor(p ProductType) LiquidityTag {
	if tag, ok := c.LiquidityTags[p]; ok {
		return tag.toTag()
	}
	return LiquidityTag{HQLALevel: HQLANone}
}
