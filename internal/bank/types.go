// Package bank defines the data model shared by every component of the
// simulation engine: the product taxonomy, balance-sheet items, loan
// cohorts, capital/income/cash-flow statements, risk metrics, market
// state, and the composed BankState that the step pipeline evolves.
package bank

// Side identifies which half of the balance sheet a product sits on.
type Side string

const (
	SideAsset     Side = "asset"
	SideLiability Side = "liability"
)

// DepositSegment distinguishes retail from corporate deposit behaviour.
type DepositSegment string

const (
	DepositSegmentNone     DepositSegment = ""
	DepositSegmentRetail   DepositSegment = "retail"
	DepositSegmentCorporate DepositSegment = "corporate"
)

// LoanBenchmark identifies which competitor/benchmark rate a loan product
// reprices against.
type LoanBenchmark string

const (
	LoanBenchmarkNone       LoanBenchmark = ""
	LoanBenchmarkMortgage   LoanBenchmark = "mortgage"
	LoanBenchmarkCorporate  LoanBenchmark = "corporate"
)

// ProductType is the closed enumeration of balance-sheet products.
type ProductType string

const (
	CashReserves        ProductType = "CashReserves"
	Gilts                ProductType = "Gilts"
	Mortgages            ProductType = "Mortgages"
	CorporateLoans       ProductType = "CorporateLoans"
	ReverseRepo          ProductType = "ReverseRepo"
	RetailDeposits       ProductType = "RetailDeposits"
	CorporateDeposits    ProductType = "CorporateDeposits"
	WholesaleFundingST   ProductType = "WholesaleFundingST"
	WholesaleFundingLT   ProductType = "WholesaleFundingLT"
	RepurchaseAgreements ProductType = "RepurchaseAgreements"
)

// ProductMeta carries the fixed, non-configurable metadata for a product.
type ProductMeta struct {
	Side            Side
	Label           string
	IsLoan          bool
	IsCustomerDeposit bool
	DepositSegment  DepositSegment
	LoanBenchmark   LoanBenchmark
}

// productMetadata is the closed table of product metadata. It is read-only
// after package init and never mutated.
var productMetadata = map[ProductType]ProductMeta{
	CashReserves:   {Side: SideAsset, Label: "Cash & Reserves"},
	Gilts:          {Side: SideAsset, Label: "Gilts"},
	Mortgages:      {Side: SideAsset, Label: "Mortgages", IsLoan: true, LoanBenchmark: LoanBenchmarkMortgage},
	CorporateLoans: {Side: SideAsset, Label: "Corporate Loans", IsLoan: true, LoanBenchmark: LoanBenchmarkCorporate},
	ReverseRepo:    {Side: SideAsset, Label: "Reverse Repo"},

	RetailDeposits:       {Side: SideLiability, Label: "Retail Deposits", IsCustomerDeposit: true, DepositSegment: DepositSegmentRetail},
	CorporateDeposits:    {Side: SideLiability, Label: "Corporate Deposits", IsCustomerDeposit: true, DepositSegment: DepositSegmentCorporate},
	WholesaleFundingST:   {Side: SideLiability, Label: "Wholesale Funding (ST)"},
	WholesaleFundingLT:   {Side: SideLiability, Label: "Wholesale Funding (LT)"},
	RepurchaseAgreements: {Side: SideLiability, Label: "Repurchase Agreements"},
}

// Meta returns the fixed metadata for a product. Callers must not mutate
// the returned value's zero-value fields as if they were configuration —
// risk weights, liquidity tags etc. live in Config, not here.
func Meta(p ProductType) ProductMeta {
	return productMetadata[p]
}

// AllProducts returns every product in the closed taxonomy, in a stable
// order. The step pipeline's floating-point results are sensitive to this
// order, so nothing should range over the product-metadata map directly;
// this slice is the canonical order used whenever a component needs to
// range over all products.
func AllProducts() []ProductType {
	return []ProductType{
		CashReserves, Gilts, Mortgages, CorporateLoans, ReverseRepo,
		RetailDeposits, CorporateDeposits, WholesaleFundingST, WholesaleFundingLT, RepurchaseAgreements,
	}
}

// HQLALevel is the Basel liquidity tiering of an asset.
type HQLALevel string

const (
	HQLANone   HQLALevel = "None"
	HQLALevel1 HQLALevel = "Level1"
	HQLALevel2A HQLALevel = "Level2A"
	HQLALevel2B HQLALevel = "Level2B"
)

// LiquidityTag carries the regulatory liquidity treatment of a balance
// sheet item: HQLA tier plus optional LCR/NSFR factors.
type LiquidityTag struct {
	HQLALevel      HQLALevel
	LCROutflowRate *float64
	LCRInflowRate  *float64
	NSFRAsfFactor  *float64
	NSFRRsfFactor  *float64
}

// BalanceSheetItem is one line of the balance sheet for a single product.
type BalanceSheetItem struct {
	Product     ProductType
	Balance     float64 // >= 0
	Rate        float64 // annualised interest rate, >= 0
	MaturityTag string  // informational only
	Encumbered  float64 // 0 <= Encumbered <= Balance
	Liquidity   LiquidityTag
}

// Unencumbered returns the portion of the item not pledged as collateral.
func (b BalanceSheetItem) Unencumbered() float64 {
	u := b.Balance - b.Encumbered
	if u < 0 {
		return 0
	}
	return u
}

// LoanCohort is one bucket of loans sharing product, rate, term, age, PD
// and LGD, tracked as a single outstanding-principal line.
type LoanCohort struct {
	Product            ProductType
	CohortID           int64 // step number for originations; -ageMonths for seasoned cohorts
	OriginalPrincipal  float64
	OutstandingPrincipal float64
	AnnualInterestRate float64
	TermMonths         int
	AgeMonths          int
	AnnualPD           float64 // [0, 1)
	LGD                float64 // [0, 1]
}

// Clone returns a value copy; LoanCohort has no reference fields, so a
// plain copy is a correct deep clone.
func (c LoanCohort) Clone() LoanCohort { return c }

// CapitalState is the bank's regulatory capital.
type CapitalState struct {
	CET1 float64
	AT1  float64
}

// IncomeStatement is the monthly P&L.
type IncomeStatement struct {
	InterestIncome      float64
	InterestExpense     float64
	NetInterestIncome   float64
	FeeIncome           float64
	CreditLosses        float64
	OperatingExpenses   float64
	PreTaxProfit        float64
	Tax                 float64
	NetIncome           float64
}

// CashFlowStatement is the monthly cash-flow reconciliation.
type CashFlowStatement struct {
	CashStart  float64
	CashEnd    float64
	NetChange  float64
	Operating  float64
	Investing  float64
	Financing  float64
}

// RiskMetrics holds the computed regulatory ratios. Ratios may legitimately
// be +Inf when their denominator is zero; they must never be NaN or -Inf.
type RiskMetrics struct {
	RWA                 float64
	LeverageExposure     float64
	CET1Ratio            float64
	LeverageRatio        float64
	HQLA                 float64
	LCR                  float64
	LCROutflowMultiplier float64
	ASF                  float64
	RSF                  float64
	NSFR                 float64
}

// Compliance is the 4-tuple of regulatory breach flags.
type Compliance struct {
	CET1Breach     bool
	LeverageBreach bool
	LCRBreach      bool
	NSFRBreach     bool
}

// AnyBreach reports whether any of the four ratios is in breach.
func (c Compliance) AnyBreach() bool {
	return c.CET1Breach || c.LeverageBreach || c.LCRBreach || c.NSFRBreach
}

// GiltCurve is the fitted Nelson-Siegel curve plus the explicit yields it
// implies at the tenors the rest of the model consumes.
type GiltCurve struct {
	Level     float64
	Slope     float64
	Curvature float64
	Lambda    float64

	Y1  float64
	Y2  float64
	Y3  float64
	Y5  float64
	Y10 float64
	Y20 float64
	Y30 float64
}

// GDPRegime is the Markov regime driving the macro model's mean shift.
type GDPRegime string

const (
	RegimeNormal    GDPRegime = "normal"
	RegimeRecession GDPRegime = "recession"
)

// MacroModelState is the latent state of the 4-factor macro model, carried
// forward step to step so the model is a Markov process in (factors,
// regime, latent unemployment, term premium, RNG seed).
type MacroModelState struct {
	FactorD float64
	FactorS float64
	FactorF float64
	FactorR float64

	Regime GDPRegime

	LatentUnemployment float64
	TermPremium        float64

	// RNGSeed is the macro RNG's state, written back after every advance so
	// the next call resumes the same stream. This is the only place process
	// state persists between Step calls; it lives inside BankState, not in
	// any package-level variable.
	RNGSeed uint32
}

// MarketState is the exogenous macro-market environment.
type MarketState struct {
	BaseRate       float64
	RiskFreeShort  float64 // y1
	RiskFreeLong   float64 // y30

	MortgageSpread      float64
	CorporateLoanSpread float64
	WholesaleSpread     float64
	SeniorDebtSpread    float64
	CreditSpread        float64

	GiltRepoHaircut float64
	CorpBondRepoHaircut float64

	CompetitorRetailDepositRate    float64
	CompetitorCorporateDepositRate *float64
	CompetitorMortgageRate         float64

	GDPGrowthMoM      float64
	UnemploymentRate  float64
	InflationRate     float64

	Curve GiltCurve

	MacroModel MacroModelState
}

// BehaviouralState captures the franchise-level, slow-moving behavioural
// parameters of the bank.
type BehaviouralState struct {
	DepositFranchiseStrength float64
	Reputation               float64
	RatingNotchOffset        int // informational only
}

// Status carries the bank's pass/fail state.
type Status struct {
	IsInResolution bool
	HasFailed      bool
}

// Clock is the simulation's calendar.
type Clock struct {
	Step             int64
	DateUnixMillis    int64
	StepLengthMonths float64
}

// Metadata carries caller-facing correlation fields that the step pipeline
// never reads as simulation inputs: a RunID is purely for the caller's own
// log/event correlation across steps of the same run.
type Metadata struct {
	RunID string
}

// BankState is the complete, owned state the step pipeline evolves. Every
// BalanceSheetItem and LoanCohort slice/map below is exclusively owned by
// this BankState; nothing aliases another BankState's collections.
type BankState struct {
	BalanceSheet map[ProductType]BalanceSheetItem
	// ItemOrder is the insertion order of BalanceSheet entries. Balance
	// sheet lines for products not in the initial book (Repurchase
	// Agreements, Reverse Repo) are created lazily, and the pipeline's
	// floating-point result is sensitive to iteration order, so this order
	// — not Go's randomised map iteration — is authoritative whenever code
	// must range over "every item on the book".
	ItemOrder []ProductType
	Capital      CapitalState
	Income       IncomeStatement
	CashFlow     CashFlowStatement

	Risk       RiskMetrics
	Compliance Compliance

	Market MarketState
	Behaviour BehaviouralState

	Cohorts map[ProductType][]LoanCohort

	Status Status
	Clock  Clock

	Version  string
	Metadata Metadata
}

// Item returns the balance-sheet item for a product and whether it exists.
func (s *BankState) Item(p ProductType) (BalanceSheetItem, bool) {
	item, ok := s.BalanceSheet[p]
	return item, ok
}

// SetItem inserts or updates a balance-sheet line, appending to ItemOrder
// only the first time a product appears.
func (s *BankState) SetItem(item BalanceSheetItem) {
	if s.BalanceSheet == nil {
		s.BalanceSheet = make(map[ProductType]BalanceSheetItem)
	}
	if _, exists := s.BalanceSheet[item.Product]; !exists {
		s.ItemOrder = append(s.ItemOrder, item.Product)
	}
	s.BalanceSheet[item.Product] = item
}

// Items returns every balance-sheet line in insertion order.
func (s *BankState) Items() []BalanceSheetItem {
	out := make([]BalanceSheetItem, 0, len(s.ItemOrder))
	for _, p := range s.ItemOrder {
		out = append(out, s.BalanceSheet[p])
	}
	return out
}

// CashBalance returns the current CashReserves balance, or 0 if the line
// does not exist yet.
func (s *BankState) CashBalance() float64 {
	if item, ok := s.BalanceSheet[CashReserves]; ok {
		return item.Balance
	}
	return 0
}

// TotalAssets sums every asset-side balance-sheet line.
func (s *BankState) TotalAssets() float64 {
	total := 0.0
	for _, p := range AllProducts() {
		if Meta(p).Side != SideAsset {
			continue
		}
		if item, ok := s.BalanceSheet[p]; ok {
			total += item.Balance
		}
	}
	return total
}

// TotalLiabilities sums every liability-side balance-sheet line.
func (s *BankState) TotalLiabilities() float64 {
	total := 0.0
	for _, p := range AllProducts() {
		if Meta(p).Side != SideLiability {
			continue
		}
		if item, ok := s.BalanceSheet[p]; ok {
			total += item.Balance
		}
	}
	return total
}

// TotalEquity returns CET1 + AT1.
func (s *BankState) TotalEquity() float64 {
	return s.Capital.CET1 + s.Capital.AT1
}
