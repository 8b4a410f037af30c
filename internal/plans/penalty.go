package plans

import "time"

// PenaltyRate is the monthly penalty fraction applied to a past-due pending
// amount.
const PenaltyRate = 0.05

// MonthsOverdue returns the number of whole calendar months between the due
// date and now. Partial months do not count; future due dates yield zero.
func MonthsOverdue(due, now time.Time) int {
	months := (now.Year()-due.Year())*12 + int(now.Month()) - int(due.Month())
	if now.Day() < due.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// PenaltyFor computes the accrued penalty on one installment:
// pending * rate * whole months overdue. Fully paid or not-yet-due
// installments accrue nothing.
func PenaltyFor(pending float64, due, now time.Time) float64 {
	if pending <= 0 || !due.Before(now) {
		return 0
	}
	return pending * PenaltyRate * float64(MonthsOverdue(due, now))
}

// CalculateOverduePenalties refreshes PenaltyAmount on every installment and
// reports how many changed. Recalculating from scratch keeps the operation
// idempotent for the daily job.
func (p *PaymentPlan) CalculateOverduePenalties(now time.Time) int {
	changed := 0
	for i := range p.Installments {
		inst := &p.Installments[i]
		penalty := PenaltyFor(inst.PendingAmount, inst.DueDate, now)
		if penalty != inst.PenaltyAmount {
			inst.PenaltyAmount = penalty
			changed++
		}
	}
	return changed
}
