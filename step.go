package banksim

import (
	"math"

	"github.com/google/uuid"

	"banksim/internal/bank"
	"banksim/internal/cohort"
	"banksim/internal/invariant"
	"banksim/internal/market"
	"banksim/internal/obslog"
	"banksim/internal/risk"
)

const millisPerDay = 86400 * 1000

// Step advances the bank one tick: clone, sync, shocks, actions,
// behavioural flows, loan amortisation, P&L accrual, loss recognition,
// capital close, risk metrics, statements, invariants, and finally the
// macro-market advance — in that fixed order. It never mutates the input
// state; actions and shocks are applied in input order.
func Step(state *bank.BankState, cfg bank.Config, actions []bank.Action, shocks []bank.Shock) (*bank.BankState, []bank.Event, error) {
	var events []bank.Event
	emit := func(sev bank.Severity, msg string) {
		obslog.Tracef("event[%s]: %s", sev, msg)
		e := bank.Event{Severity: sev, Message: msg}
		if sev == bank.SeverityError {
			// A fresh random ID per event so a caller can refer to or
			// acknowledge a specific breach/shortfall event; info and
			// warning events skip the allocation.
			e.ID = uuid.NewString()
		}
		events = append(events, e)
	}

	// 1. Clone.
	next := cloneState(state)
	cashStart := next.CashBalance()
	stepNumber := next.Clock.Step

	// 2. Sync.
	cohort.SyncBalances(next)

	// 3. Shocks.
	ctx := newShockContext()
	for _, s := range shocks {
		applyShock(next, cfg, ctx, s, emit)
	}

	// 4. Actions.
	for _, a := range actions {
		applyAction(next, cfg, a, stepNumber, emit)
	}

	dtMonths := next.Clock.StepLengthMonths
	dtYears := dtMonths / 12.0

	// 5. Deposit behaviour.
	applyDepositBehaviour(next, cfg, dtMonths, emit)

	// 6. Loan behaviour.
	applyLoanBehaviour(next, cfg, dtMonths, stepNumber, emit)

	// 7. Cohort step.
	cohortResult, err := cohort.StepCohorts(next, cfg, dtMonths, ctx.pdMultiplier, ctx.lgdMultiplier, ctx.extraLosses)
	if err != nil {
		return nil, nil, err
	}

	// 8. Accrue P&L.
	nonLoanInterestIncome := 0.0
	interestExpense := 0.0
	for _, p := range bank.AllProducts() {
		item, ok := next.Item(p)
		if !ok {
			continue
		}
		meta := bank.Meta(p)
		if meta.Side == bank.SideAsset && !meta.IsLoan {
			nonLoanInterestIncome += item.Balance * item.Rate * dtYears
		} else if meta.Side == bank.SideLiability {
			interestExpense += item.Balance * item.Rate * dtYears
		}
	}

	// 9. Recognise losses.
	nonLoanLosses := make(map[bank.ProductType]float64)
	creditLosses := 0.0
	for _, loss := range cohortResult.RecognizedLoanLosses {
		creditLosses += loss
	}
	for product, extra := range ctx.extraLosses {
		if bank.Meta(product).IsLoan {
			continue // already absorbed by the cohort engine in step 7
		}
		item, ok := next.Item(product)
		if !ok {
			continue
		}
		loss := math.Min(item.Balance, extra)
		item.Balance -= loss
		next.SetItem(item)
		creditLosses += loss
		nonLoanLosses[product] = loss
	}

	// 10. Close capital.
	loanBook := 0.0
	for _, p := range bank.AllProducts() {
		if !bank.Meta(p).IsLoan {
			continue
		}
		if item, ok := next.Item(p); ok {
			loanBook += item.Balance
		}
	}
	fee := cfg.Behaviour.LoanFeeRateMonthly * dtMonths * loanBook
	opEx := cfg.Global.OperatingCostRatio*next.TotalAssets()*dtYears + cfg.Global.FixedOperatingCostPerMonth*dtMonths

	totalInterestIncome := nonLoanInterestIncome + cohortResult.LoanInterestIncome
	nii := totalInterestIncome - interestExpense
	preTax := nii + fee - creditLosses - opEx
	tax := math.Max(0, preTax) * cfg.Global.TaxRate
	net := preTax - tax

	equityBefore := state.TotalEquity()
	next.Income = bank.IncomeStatement{
		InterestIncome:    totalInterestIncome,
		InterestExpense:   interestExpense,
		NetInterestIncome: nii,
		FeeIncome:         fee,
		CreditLosses:      creditLosses,
		OperatingExpenses: opEx,
		PreTaxProfit:      preTax,
		Tax:               tax,
		NetIncome:         net,
	}
	next.Capital.CET1 += net

	operatingCashDelta := totalInterestIncome - interestExpense + fee - opEx - tax
	creditCashDirect(next, operatingCashDelta-cohortResult.LoanInterestIncome)

	// 11. Metrics.
	next.Risk, next.Compliance = risk.Compute(next, cfg, ctx.lcrOutflowMultiplier)
	if next.Compliance.AnyBreach() {
		next.Status.HasFailed = true
		emit(bank.SeverityError, "Regulatory breach: your bank has failed!")
	}

	// 12. Statements.
	next.Clock.Step = stepNumber + 1
	next.Clock.DateUnixMillis += int64(dtMonths * 30 * millisPerDay)

	cashEnd := next.CashBalance()
	netChange := cashEnd - cashStart

	operatingFlow, investingFlow, financingFlow := classifyBalanceFlows(state, next, cohortResult.RecognizedLoanLosses, nonLoanLosses)
	externalCapitalFlow := next.TotalEquity() - equityBefore - net
	financingFlow += externalCapitalFlow

	operatingCashFlow := operatingCashDelta + operatingFlow
	total := operatingCashFlow + investingFlow + financingFlow
	mismatch := total - netChange

	tol := cfg.Tolerances.CashFlowRoundingTolerance
	if tol <= 0 {
		tol = 1e-2
	}
	breachThreshold := cfg.Tolerances.CashFlowBreachThreshold
	if breachThreshold <= 0 {
		breachThreshold = 1.0
	}
	if math.Abs(mismatch) <= tol {
		operatingCashFlow -= mismatch
	} else if math.Abs(mismatch) > breachThreshold {
		next.Status.HasFailed = true
		emit(bank.SeverityError, "cash-flow tie-out mismatch beyond tolerance")
	}

	next.CashFlow = bank.CashFlowStatement{
		CashStart: cashStart,
		CashEnd:   cashEnd,
		NetChange: netChange,
		Operating: operatingCashFlow,
		Investing: investingFlow,
		Financing: financingFlow,
	}

	// 13. Invariants.
	if violations := invariant.Check(next, cfg); len(violations) > 0 {
		next.Status.HasFailed = true
		for _, v := range violations {
			emit(bank.SeverityError, v.Error())
		}
	}

	// 14. Market (runs after the state is otherwise frozen).
	if err := market.Advance(next, dtMonths); err != nil {
		return nil, nil, err
	}

	return next, events, nil
}

// classifyBalanceFlows derives the operating/investing/financing
// decomposition for every product's balance delta between the pre-step
// input and the post-step output, excluding cash itself and externalised
// capital flows (handled by the caller).
func classifyBalanceFlows(before, after *bank.BankState, loanLosses, nonLoanLosses map[bank.ProductType]float64) (operating, investing, financing float64) {
	for _, p := range bank.AllProducts() {
		if p == bank.CashReserves {
			continue
		}
		meta := bank.Meta(p)
		prevItem, _ := before.Item(p)
		currItem, _ := after.Item(p)
		delta := currItem.Balance - prevItem.Balance

		var cashComponent float64
		if meta.Side == bank.SideAsset {
			loss := loanLosses[p] + nonLoanLosses[p]
			cashComponent = -(delta + loss)
		} else {
			cashComponent = delta
		}

		switch {
		case p == bank.Gilts:
			investing += cashComponent
		case meta.Side == bank.SideAsset:
			operating += cashComponent
		case isOperatingLiability(p):
			operating += cashComponent
		default:
			financing += cashComponent
		}
	}
	return operating, investing, financing
}

func isOperatingLiability(p bank.ProductType) bool {
	switch p {
	case bank.RetailDeposits, bank.CorporateDeposits, bank.WholesaleFundingST, bank.RepurchaseAgreements:
		return true
	default:
		return false
	}
}
