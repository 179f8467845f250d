// Package banksim simulates the monthly balance sheet, earnings, and
// regulatory position of a single retail-and-commercial bank under
// player-issued actions and exogenous shocks. It is a discrete-time,
// deterministic engine: given the same initial BankState, Config, action
// list, and shock schedule, Step always produces an identical next state
// and the same sequence of event severities and messages. Error events
// also carry a random ID (Event.ID), which differs from run to run.
//
// The public surface is deliberately small — InitialSeasonedPortfolio,
// Step, ApplyScenario — with every type it reads or returns re-exported
// from internal/bank so callers never import an internal package
// directly.
package banksim

import (
	"banksim/internal/bank"
	"banksim/internal/cohort"
)

// Re-exported domain types. Callers build and inspect these without ever
// importing banksim/internal/bank.
type (
	ProductType      = bank.ProductType
	Side             = bank.Side
	DepositSegment   = bank.DepositSegment
	LoanBenchmark    = bank.LoanBenchmark
	HQLALevel        = bank.HQLALevel
	LiquidityTag     = bank.LiquidityTag
	BalanceSheetItem  = bank.BalanceSheetItem
	LoanCohort        = bank.LoanCohort
	CapitalState      = bank.CapitalState
	IncomeStatement   = bank.IncomeStatement
	CashFlowStatement = bank.CashFlowStatement
	RiskMetrics       = bank.RiskMetrics
	Compliance        = bank.Compliance
	GiltCurve         = bank.GiltCurve
	GDPRegime         = bank.GDPRegime
	MacroModelState   = bank.MacroModelState
	MarketState       = bank.MarketState
	BehaviouralState  = bank.BehaviouralState
	Status            = bank.Status
	Clock             = bank.Clock
	Metadata          = bank.Metadata
	BankState         = bank.BankState

	LoanProductParams      = bank.LoanProductParams
	ProductParams          = bank.ProductParams
	LiquidityTagConfig     = bank.LiquidityTagConfig
	RiskLimits             = bank.RiskLimits
	BehaviourConfig        = bank.BehaviourConfig
	IdiosyncraticRunParams = bank.IdiosyncraticRunParams
	ShockParameters        = bank.ShockParameters
	Tolerances             = bank.Tolerances
	GlobalConfig           = bank.GlobalConfig
	Config                 = bank.Config

	ActionKind    = bank.ActionKind
	RepoDirection = bank.RepoDirection
	Action        = bank.Action
	ShockKind     = bank.ShockKind
	Shock         = bank.Shock
	Severity      = bank.Severity
	Event         = bank.Event
)

// Re-exported constants.
const (
	SideAsset     = bank.SideAsset
	SideLiability = bank.SideLiability

	CashReserves         = bank.CashReserves
	Gilts                = bank.Gilts
	Mortgages            = bank.Mortgages
	CorporateLoans       = bank.CorporateLoans
	ReverseRepo          = bank.ReverseRepo
	RetailDeposits       = bank.RetailDeposits
	CorporateDeposits    = bank.CorporateDeposits
	WholesaleFundingST   = bank.WholesaleFundingST
	WholesaleFundingLT   = bank.WholesaleFundingLT
	RepurchaseAgreements = bank.RepurchaseAgreements

	HQLANone    = bank.HQLANone
	HQLALevel1  = bank.HQLALevel1
	HQLALevel2A = bank.HQLALevel2A
	HQLALevel2B = bank.HQLALevel2B

	RegimeNormal    = bank.RegimeNormal
	RegimeRecession = bank.RegimeRecession

	ActionAdjustRate   = bank.ActionAdjustRate
	ActionIssueEquity  = bank.ActionIssueEquity
	ActionIssueDebt    = bank.ActionIssueDebt
	ActionBuySellAsset = bank.ActionBuySellAsset
	ActionEnterRepo    = bank.ActionEnterRepo

	RepoBorrow = bank.RepoBorrow
	RepoLend   = bank.RepoLend

	ShockDepositCompetition  = bank.ShockDepositCompetition
	ShockMarketSpread        = bank.ShockMarketSpread
	ShockIdiosyncraticRun    = bank.ShockIdiosyncraticRun
	ShockMacroDownturn       = bank.ShockMacroDownturn
	ShockCounterpartyDefault = bank.ShockCounterpartyDefault

	SeverityInfo    = bank.SeverityInfo
	SeverityWarning = bank.SeverityWarning
	SeverityError   = bank.SeverityError
)

// DefaultConfig returns a fully populated configuration sufficient to run
// the engine out of the box.
func DefaultConfig() Config { return bank.DefaultConfig() }

// AllProducts returns every product in the closed taxonomy, in the stable
// order the engine uses internally.
func AllProducts() []ProductType { return bank.AllProducts() }

// OutstandingFactor exposes the amortising-loan survival-factor formula
// used by seasoned-portfolio generation, for callers that want to build
// their own cohort shapes.
func OutstandingFactor(annualRate float64, termMonths, ageMonths int) float64 {
	return cohort.OutstandingFactor(annualRate, termMonths, ageMonths)
}
