package schedule

// Compute derives the installment table and summary for the given terms.
// The second return value is false when the terms are incomplete; callers
// must then clear any previously generated schedule.
//
// The installment amount is principal-per-period plus one period's interest
// on the full owed balance. This intentionally matches the historical
// behavior of the financing module; do not replace it with a compounding
// annuity formula.
func Compute(terms FinancingTerms) (Schedule, bool) {
	if !terms.Complete() {
		return Schedule{}, false
	}

	owed := terms.AmountToFinance - terms.DownPayment

	rate := terms.InterestRate / 100
	if terms.RatePeriod != RatePeriodMonthly {
		// Annual percent rate converted to a monthly fraction.
		rate = terms.InterestRate / 1200
	}

	installment := owed/float64(terms.RepaymentTerm) + owed*rate

	installments := make([]Installment, terms.RepaymentTerm)
	for i := range installments {
		installments[i] = Installment{
			Index:   i,
			Amount:  installment,
			DueDate: terms.FirstInstallment.AddDate(0, i, 0),
		}
	}

	totalCredit := float64(terms.RepaymentTerm) * installment
	return Schedule{
		Installments: installments,
		Summary: Summary{
			Installment:   installment,
			TotalCredit:   totalCredit,
			TotalInterest: totalCredit - owed,
			Expiration:    terms.FirstInstallment.AddDate(0, terms.RepaymentTerm-1, 0),
		},
	}, true
}
