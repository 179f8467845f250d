// Package cohort implements the loan-cohort engine: amortisation,
// origination, prepayment, default/write-down, and seasoned-portfolio
// generation. It owns no package-level state; every operation takes the
// BankState and Config it needs explicitly.
package cohort

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"banksim/internal/bank"
	"banksim/internal/rng"
)

// ErrMissingCashLine is returned when an operation needs to credit or debit
// cash but the bank has no CashReserves balance-sheet line at all.
var ErrMissingCashLine = errors.New("cohort: no CashReserves balance-sheet item")

const (
	removalBalanceFloor = 1e-2 // cohorts below this outstanding are removed
	syncTolerance        = 1e-6
	prepayResidualTol    = 1e-9
)

// SyncBalances recomputes every loan product's balance-sheet balance as
// the sum of its cohort outstandings.
func SyncBalances(state *bank.BankState) {
	for _, p := range bank.AllProducts() {
		if !bank.Meta(p).IsLoan {
			continue
		}
		total := 0.0
		for _, c := range state.Cohorts[p] {
			total += c.OutstandingPrincipal
		}
		if item, ok := state.Item(p); ok {
			item.Balance = total
			state.SetItem(item)
		} else if total > 0 || len(state.Cohorts[p]) > 0 {
			state.SetItem(bank.BalanceSheetItem{Product: p, Balance: total})
		}
	}
}

func cashItem(state *bank.BankState) (bank.BalanceSheetItem, bool) {
	return state.Item(bank.CashReserves)
}

func creditCash(state *bank.BankState, amount float64) error {
	item, ok := cashItem(state)
	if !ok {
		return ErrMissingCashLine
	}
	item.Balance += amount
	state.SetItem(item)
	return nil
}

func debitCash(state *bank.BankState, amount float64) error {
	return creditCash(state, -amount)
}

// Originate funds a new or existing cohort. funded is capped by the
// requested principal and by available cash. Term defaults to the
// product's configured default and is clamped to min(maxTermMonths, 420).
func Originate(
	state *bank.BankState, cfg bank.Config,
	product bank.ProductType, cohortID int64,
	requestedPrincipal, rate float64, term int,
	annualPd, lgd float64,
) (funded float64, err error) {
	cashBal, ok := cashItem(state)
	if !ok {
		return 0, ErrMissingCashLine
	}

	params := cfg.ProductParameters[product]
	loanParams := params.Loan
	maxTerm := 420
	if loanParams != nil && loanParams.MaxTermMonths > 0 && loanParams.MaxTermMonths < maxTerm {
		maxTerm = loanParams.MaxTermMonths
	}
	if term <= 0 {
		if loanParams != nil {
			term = loanParams.DefaultTermMonths
		}
	}
	if term > maxTerm {
		term = maxTerm
	}
	if term <= 0 {
		term = maxTerm
	}

	if requestedPrincipal < 0 {
		requestedPrincipal = 0
	}
	funded = math.Min(requestedPrincipal, cashBal.Balance)
	if funded <= 0 {
		return 0, nil
	}

	if err := debitCash(state, funded); err != nil {
		return 0, err
	}

	cohorts := state.Cohorts[product]
	merged := false
	for i := range cohorts {
		if cohorts[i].CohortID == cohortID {
			existing := cohorts[i]
			totalOut := existing.OutstandingPrincipal + funded
			if totalOut > 0 {
				existing.AnnualInterestRate = weightedAvg(existing.OutstandingPrincipal, existing.AnnualInterestRate, funded, rate)
				existing.AnnualPD = weightedAvg(existing.OutstandingPrincipal, existing.AnnualPD, funded, annualPd)
				existing.LGD = weightedAvg(existing.OutstandingPrincipal, existing.LGD, funded, lgd)
			}
			existing.OriginalPrincipal += funded
			existing.OutstandingPrincipal = totalOut
			if term > existing.TermMonths {
				existing.TermMonths = term
			}
			existing.AgeMonths = 0
			cohorts[i] = existing
			merged = true
			break
		}
	}
	if !merged {
		cohorts = append(cohorts, bank.LoanCohort{
			Product:              product,
			CohortID:             cohortID,
			OriginalPrincipal:    funded,
			OutstandingPrincipal: funded,
			AnnualInterestRate:   rate,
			TermMonths:           term,
			AgeMonths:            0,
			AnnualPD:             annualPd,
			LGD:                  lgd,
		})
	}
	if state.Cohorts == nil {
		state.Cohorts = make(map[bank.ProductType][]bank.LoanCohort)
	}
	state.Cohorts[product] = cohorts
	SyncBalances(state)
	return funded, nil
}

func weightedAvg(w1, v1, w2, v2 float64) float64 {
	total := w1 + w2
	if total <= 0 {
		return v2
	}
	return (w1*v1 + w2*v2) / total
}

// Prepay applies a prepayment request pro-rata across a product's cohorts,
// crediting cash with the amount actually paid. It is a no-op for
// non-loan products.
func Prepay(state *bank.BankState, product bank.ProductType, requestedAmount float64) (paid float64, err error) {
	if !bank.Meta(product).IsLoan {
		return 0, nil
	}
	cohorts := state.Cohorts[product]
	totalOutstanding := 0.0
	for _, c := range cohorts {
		totalOutstanding += c.OutstandingPrincipal
	}
	if requestedAmount < 0 {
		requestedAmount = 0
	}
	paid = math.Min(requestedAmount, totalOutstanding)
	if paid <= 0 {
		return 0, nil
	}

	remaining := paid
	for i := range cohorts {
		if totalOutstanding <= 0 {
			break
		}
		isLast := i == len(cohorts)-1
		var share float64
		if isLast {
			share = remaining
		} else {
			share = paid * (cohorts[i].OutstandingPrincipal / totalOutstanding)
			if share > remaining {
				share = remaining
			}
		}
		if share > cohorts[i].OutstandingPrincipal {
			share = cohorts[i].OutstandingPrincipal
		}
		cohorts[i].OutstandingPrincipal -= share
		remaining -= share
	}
	if remaining > prepayResidualTol && len(cohorts) > 0 {
		last := len(cohorts) - 1
		take := math.Min(remaining, cohorts[last].OutstandingPrincipal)
		cohorts[last].OutstandingPrincipal -= take
	}

	cohorts = removeDeadCohorts(cohorts)
	if state.Cohorts == nil {
		state.Cohorts = make(map[bank.ProductType][]bank.LoanCohort)
	}
	state.Cohorts[product] = cohorts

	if err := creditCash(state, paid); err != nil {
		return 0, err
	}
	SyncBalances(state)
	return paid, nil
}

func removeDeadCohorts(cohorts []bank.LoanCohort) []bank.LoanCohort {
	out := cohorts[:0]
	for _, c := range cohorts {
		if c.OutstandingPrincipal <= removalBalanceFloor || c.AgeMonths >= c.TermMonths {
			continue
		}
		out = append(out, c)
	}
	return out
}

// StepResult is the output of StepCohorts: the step's loan interest income
// and the per-product recognised credit losses.
type StepResult struct {
	LoanInterestIncome  float64
	RecognizedLoanLosses map[bank.ProductType]float64
}

// StepCohorts amortises, defaults, and write-downs every loan cohort by
// dtMonths whole monthly ticks, then applies any extraLossesByProduct
// (counterparty-default shocks) pro-rata across the surviving cohorts.
func StepCohorts(
	state *bank.BankState, cfg bank.Config,
	dtMonths float64, pdMult, lgdMult float64,
	extraLossesByProduct map[bank.ProductType]float64,
) (StepResult, error) {
	result := StepResult{RecognizedLoanLosses: make(map[bank.ProductType]float64)}

	months := int(dtMonths)
	if months < 0 {
		months = 0
	}

	for m := 0; m < months; m++ {
		for _, product := range bank.AllProducts() {
			if !bank.Meta(product).IsLoan {
				continue
			}
			cohorts := state.Cohorts[product]
			for i := range cohorts {
				c := &cohorts[i]
				if c.OutstandingPrincipal <= 0 || c.AgeMonths >= c.TermMonths {
					continue
				}

				r := c.AnnualInterestRate / 12.0
				remaining := c.TermMonths - c.AgeMonths
				pmt := monthlyPayment(c.OutstandingPrincipal, r, remaining)

				interest := c.OutstandingPrincipal * r
				principal := math.Max(0, pmt-interest)
				if principal > c.OutstandingPrincipal {
					principal = c.OutstandingPrincipal
				}

				c.OutstandingPrincipal -= principal
				if err := creditCash(state, interest+principal); err != nil {
					return result, err
				}
				result.LoanInterestIncome += interest

				effectivePd := clamp(c.AnnualPD*pdMult, 0, 0.999999)
				monthlyPd := 1 - math.Pow(1-effectivePd, 1.0/12.0)
				defaulted := c.OutstandingPrincipal * monthlyPd

				if defaulted > 0 {
					effectiveLgd := clamp(c.LGD*lgdMult, 0, 1)
					loss := defaulted * effectiveLgd
					recovery := defaulted - loss
					c.OutstandingPrincipal -= defaulted
					if err := creditCash(state, recovery); err != nil {
						return result, err
					}
					result.RecognizedLoanLosses[product] += loss
				}

				c.AgeMonths++
			}
			state.Cohorts[product] = cohorts
		}
	}

	for product, extra := range extraLossesByProduct {
		if !bank.Meta(product).IsLoan || extra <= 0 {
			continue
		}
		cohorts := state.Cohorts[product]
		totalOutstanding := 0.0
		for _, c := range cohorts {
			totalOutstanding += c.OutstandingPrincipal
		}
		total := math.Min(extra, totalOutstanding)
		if total <= 0 {
			continue
		}
		remaining := total
		for i := range cohorts {
			isLast := i == len(cohorts)-1
			var share float64
			if isLast {
				share = remaining
			} else if totalOutstanding > 0 {
				share = total * (cohorts[i].OutstandingPrincipal / totalOutstanding)
				if share > remaining {
					share = remaining
				}
			}
			if share > cohorts[i].OutstandingPrincipal {
				share = cohorts[i].OutstandingPrincipal
			}
			cohorts[i].OutstandingPrincipal -= share
			remaining -= share
		}
		state.Cohorts[product] = cohorts
		result.RecognizedLoanLosses[product] += total
	}

	for _, product := range bank.AllProducts() {
		if !bank.Meta(product).IsLoan {
			continue
		}
		state.Cohorts[product] = removeDeadCohorts(state.Cohorts[product])
	}
	SyncBalances(state)
	return result, nil
}

// monthlyPayment computes the standard fixed-payment amortisation amount,
// falling back to linear amortisation when the monthly rate is ~0.
func monthlyPayment(outstanding, monthlyRate float64, remainingTerm int) float64 {
	if remainingTerm <= 0 {
		return outstanding
	}
	n := float64(remainingTerm)
	if math.Abs(monthlyRate) < 1e-12 {
		return outstanding / n
	}
	factor := math.Pow(1+monthlyRate, n)
	if math.Abs(factor-1) < 1e-12 {
		return outstanding / n
	}
	return outstanding * (monthlyRate * factor) / (factor - 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Validate checks a single cohort's fields for internal consistency.
func Validate(c bank.LoanCohort, maxTermMonths int) error {
	fields := []float64{c.OriginalPrincipal, c.OutstandingPrincipal, c.AnnualInterestRate, float64(c.TermMonths), float64(c.AgeMonths), c.AnnualPD, c.LGD}
	for _, f := range fields {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cohort %d: non-finite field", c.CohortID)
		}
	}
	if c.OutstandingPrincipal > c.OriginalPrincipal+1e-6*math.Max(1, c.OriginalPrincipal) {
		return fmt.Errorf("cohort %d: outstanding %v exceeds original %v", c.CohortID, c.OutstandingPrincipal, c.OriginalPrincipal)
	}
	if c.AnnualInterestRate < 0 {
		return fmt.Errorf("cohort %d: negative rate", c.CohortID)
	}
	limit := 420
	if maxTermMonths > 0 && maxTermMonths < limit {
		limit = maxTermMonths
	}
	if c.TermMonths <= 0 || c.TermMonths > limit {
		return fmt.Errorf("cohort %d: term %d out of range (0, %d]", c.CohortID, c.TermMonths, limit)
	}
	if c.AgeMonths < 0 || c.AgeMonths >= c.TermMonths {
		return fmt.Errorf("cohort %d: age %d not in [0, %d)", c.CohortID, c.AgeMonths, c.TermMonths)
	}
	if c.AnnualPD < 0 || c.AnnualPD >= 1 {
		return fmt.Errorf("cohort %d: annualPD %v not in [0, 1)", c.CohortID, c.AnnualPD)
	}
	if c.LGD < 0 || c.LGD > 1 {
		return fmt.Errorf("cohort %d: lgd %v not in [0, 1]", c.CohortID, c.LGD)
	}
	return nil
}

// outstandingFactor is the fraction of an n-month amortising loan's
// original principal still outstanding after k months, used by seasoning
// to shape the bucket weights.
func outstandingFactor(rAnnual float64, n, k int) float64 {
	if k >= n {
		return 0
	}
	if math.Abs(rAnnual) < 1e-9 {
		return float64(n-k) / float64(n)
	}
	rm := 1 + rAnnual/12.0
	num := math.Pow(rm, float64(n)) - math.Pow(rm, float64(k))
	den := math.Pow(rm, float64(n)) - 1
	if den == 0 {
		return clamp(float64(n-k)/float64(n), 0, 1)
	}
	return clamp(num/den, 0, 1)
}

// OutstandingFactor exports outstandingFactor for callers that want to
// build their own cohort shapes without duplicating the amortisation math.
func OutstandingFactor(rAnnual float64, n, k int) float64 { return outstandingFactor(rAnnual, n, k) }

// GenerateSeasoned builds a seasoned cohort collection whose outstandings
// sum to targetOutstanding, seeded deterministically.
func GenerateSeasoned(
	product bank.ProductType, targetOutstanding, baseRate, basePd, baseLgd float64,
	cfg bank.Config, seed int64,
) ([]bank.LoanCohort, error) {
	params := cfg.ProductParameters[product]
	loanParams := params.Loan
	if loanParams == nil || !loanParams.InitialSeasoningEnabled || targetOutstanding <= 0 {
		term := 360
		if loanParams != nil && loanParams.DefaultTermMonths > 0 {
			term = loanParams.DefaultTermMonths
		}
		return []bank.LoanCohort{{
			Product: product, CohortID: 0,
			OriginalPrincipal: math.Max(targetOutstanding, 0), OutstandingPrincipal: math.Max(targetOutstanding, 0),
			AnnualInterestRate: baseRate, TermMonths: term, AgeMonths: 0,
			AnnualPD: basePd, LGD: baseLgd,
		}}, nil
	}

	buckets := loanParams.DefaultTermMonths
	if buckets <= 0 {
		buckets = 360
	}
	source := rng.New(int32(seed))

	weights := make([]float64, buckets)
	for k := 0; k < buckets; k++ {
		w := outstandingFactor(baseRate, buckets, k) * math.Exp(source.Normal()*0.12)
		weights[k] = w
	}
	weights = movingAverage3(weights)
	weights = movingAverage3(weights)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("cohort: seasoning weights summed to zero for %s", product)
	}
	for k := range weights {
		weights[k] = weights[k] / sum * targetOutstanding
	}

	type bucket struct {
		age    int
		amount float64
	}
	var kept []bucket
	for age, amount := range weights {
		if amount >= loanParams.InitialMinBucketOutstanding {
			kept = append(kept, bucket{age: age, amount: amount})
		}
	}
	if len(kept) == 0 {
		kept = append(kept, bucket{age: 0, amount: targetOutstanding})
	}
	keptSum := 0.0
	for _, b := range kept {
		keptSum += b.amount
	}
	scale := targetOutstanding / keptSum

	pdLo, pdHi := loanParams.InitialPdMultiplierRange[0], loanParams.InitialPdMultiplierRange[1]
	lgdLo, lgdHi := loanParams.InitialLgdMultiplierRange[0], loanParams.InitialLgdMultiplierRange[1]
	sigma := loanParams.InitialCouponDispersionBps / 1e4

	cohorts := make([]bank.LoanCohort, 0, len(kept))
	for _, b := range kept {
		outstanding := b.amount * scale
		coupon := clamp(baseRate+source.Normal()*sigma, 1e-4, 0.25)
		pdMult := pdLo + source.Uniform()*(pdHi-pdLo)
		lgdMult := lgdLo + source.Uniform()*(lgdHi-lgdLo)

		age := b.age
		term := buckets
		original := inferOriginalPrincipal(outstanding, coupon, term, age)

		// Seasoned IDs are -age, so the age-0 bucket's ID 0 coincides with
		// an origination made at step 0, which Originate merges into it.
		cohorts = append(cohorts, bank.LoanCohort{
			Product:              product,
			CohortID:             int64(-age),
			OriginalPrincipal:    original,
			OutstandingPrincipal: outstanding,
			AnnualInterestRate:   coupon,
			TermMonths:           term,
			AgeMonths:            age,
			AnnualPD:             clamp(basePd*pdMult, 0, 0.999999),
			LGD:                  clamp(baseLgd*lgdMult, 0, 1),
		})
	}

	sort.Slice(cohorts, func(i, j int) bool { return cohorts[i].CohortID < cohorts[j].CohortID })

	total := 0.0
	for _, c := range cohorts {
		total += c.OutstandingPrincipal
	}
	tol := math.Max(1e6, targetOutstanding*1e-6)
	if math.Abs(total-targetOutstanding) > tol {
		return nil, fmt.Errorf("cohort: seasoning round-trip failed for %s: got %v want %v (tol %v)", product, total, targetOutstanding, tol)
	}
	return cohorts, nil
}

// inferOriginalPrincipal inverts the amortising-loan balance formula to
// recover the original principal implied by an outstanding balance at a
// given age, reducing to a linear inverse when the rate is near zero.
func inferOriginalPrincipal(outstanding, annualRate float64, term, age int) float64 {
	if age <= 0 {
		return outstanding
	}
	factor := outstandingFactor(annualRate, term, age)
	if factor <= 1e-9 {
		return outstanding
	}
	return outstanding / factor
}

func movingAverage3(in []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}
		if hi > len(in)-1 {
			hi = len(in) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += in[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
