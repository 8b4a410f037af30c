// Package schedule computes installment schedules for financed sales.
package schedule

import "time"

// RatePeriod declares how the interest rate on a financing is expressed.
type RatePeriod string

const (
	RatePeriodMonthly RatePeriod = "Monthly"
	RatePeriodAnnual  RatePeriod = "Annual"
)

// FinancingTerms are the inputs of the amortization computation. All six
// numeric/date fields must be present before a schedule is generated;
// a missing or zero value for any of them (down payment included) blocks
// computation and clears the schedule.
type FinancingTerms struct {
	AmountToFinance  float64
	DownPayment      float64
	InterestRate     float64
	RatePeriod       RatePeriod
	RepaymentTerm    int
	FirstInstallment time.Time
	ApplicationFee   float64
}

// Complete reports whether every required field carries a usable value.
func (t FinancingTerms) Complete() bool {
	return t.AmountToFinance != 0 &&
		t.DownPayment != 0 &&
		t.InterestRate != 0 &&
		t.RepaymentTerm >= 1 &&
		t.ApplicationFee != 0 &&
		!t.FirstInstallment.IsZero()
}

// Installment is one scheduled periodic payment.
type Installment struct {
	Index   int       `json:"index"`
	Amount  float64   `json:"amount"`
	DueDate time.Time `json:"due_date"`
}

// Summary holds the derived header fields of a computed schedule. These are
// outputs only; callers must never set them independently.
type Summary struct {
	Installment   float64   `json:"installment"`
	TotalCredit   float64   `json:"total_credit"`
	TotalInterest float64   `json:"total_interest"`
	Expiration    time.Time `json:"credit_expiration_date"`
}

// Schedule is the full result of one computation.
type Schedule struct {
	Installments []Installment `json:"installments"`
	Summary      Summary       `json:"summary"`
}
