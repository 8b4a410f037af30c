package plans

import (
	"math"
	"time"
)

// Monetary arithmetic in the allocator runs on integer cents so repeated
// partial payments cannot drift.

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

// AllocatedRef is a payment entry's contribution to one bucket, in cents.
type AllocatedRef struct {
	PaymentEntry string
	Amount       int64
}

// Bucket is one allocation target. Bucket 0 is the down payment; the rest
// follow the installment table in due-date order. Installment capacity
// includes accrued penalty, with principal consumed before penalty.
type Bucket struct {
	Capacity  int64
	Principal int64
	Allocated int64
	Refs      []AllocatedRef
}

// AutoAllocate distributes every payment across the plan's obligations,
// oldest obligation first. Payments are applied in table order. Any surplus
// beyond the plan's total capacity sticks to the final installment so the
// allocation conserves the paid total.
func AutoAllocate(downPayment float64, installments []PlanInstallment, payments []PaymentRef) []Bucket {
	buckets := make([]Bucket, 0, len(installments)+1)
	buckets = append(buckets, Bucket{
		Capacity:  toCents(downPayment),
		Principal: toCents(downPayment),
	})
	for _, inst := range installments {
		principal := toCents(inst.Amount)
		buckets = append(buckets, Bucket{
			Capacity:  principal + toCents(inst.PenaltyAmount),
			Principal: principal,
		})
	}

	for _, payment := range payments {
		remaining := toCents(payment.Amount)
		for i := range buckets {
			if remaining == 0 {
				break
			}
			free := buckets[i].Capacity - buckets[i].Allocated
			if free <= 0 {
				continue
			}
			take := remaining
			if take > free {
				take = free
			}
			buckets[i].Allocated += take
			buckets[i].Refs = append(buckets[i].Refs, AllocatedRef{PaymentEntry: payment.PaymentEntry, Amount: take})
			remaining -= take
		}
		if remaining > 0 {
			last := len(buckets) - 1
			buckets[last].Allocated += remaining
			buckets[last].Refs = append(buckets[last].Refs, AllocatedRef{PaymentEntry: payment.PaymentEntry, Amount: remaining})
		}
	}

	return buckets
}

// ApplyAllocation writes the allocation result back onto the plan's
// installments and derives the plan status.
func ApplyAllocation(plan *PaymentPlan, buckets []Bucket, now time.Time) {
	for i := range plan.Installments {
		bucket := buckets[i+1]
		principalPaid := bucket.Allocated
		if principalPaid > bucket.Principal {
			principalPaid = bucket.Principal
		}
		plan.Installments[i].PaidAmount = fromCents(principalPaid)
		plan.Installments[i].PendingAmount = fromCents(bucket.Principal - principalPaid)
	}
	plan.Status = deriveStatus(plan, now)
}

func deriveStatus(plan *PaymentPlan, now time.Time) PlanStatus {
	if plan.Status == PlanStatusCancelled {
		return PlanStatusCancelled
	}
	completed := true
	overdue := false
	for _, inst := range plan.Installments {
		if inst.PendingAmount > 0 {
			completed = false
			if inst.DueDate.Before(now) {
				overdue = true
			}
		}
	}
	switch {
	case completed:
		return PlanStatusCompleted
	case overdue:
		return PlanStatusOverdue
	default:
		return PlanStatusActive
	}
}

// Analysis is the principal/penalty split of a prospective payment.
type Analysis struct {
	PrincipalAmount float64         `json:"principal_amount"`
	PenaltyAmount   float64         `json:"penalty_amount"`
	Breakdown       []BreakdownLine `json:"breakdown"`
}

// BreakdownLine details one installment's share of an analyzed payment.
type BreakdownLine struct {
	InstallmentIndex  int     `json:"installment_index"`
	PrincipalPayment  float64 `json:"principal_payment"`
	PenaltyPayment    float64 `json:"penalty_payment"`
	InstallmentAmount float64 `json:"installment_amount"`
	PenaltyAmount     float64 `json:"penalty_amount"`
}

const simulationEntry = "SIMULATION"

// AnalyzeAllocation simulates allocating one additional payment of the given
// amount and reports how much of it would service principal versus penalty.
// The plan itself is never mutated.
func AnalyzeAllocation(plan *PaymentPlan, amount float64) Analysis {
	simulated := make([]PaymentRef, 0, len(plan.Payments)+1)
	simulated = append(simulated, plan.Payments...)
	simulated = append(simulated, PaymentRef{PaymentEntry: simulationEntry, Amount: amount})

	buckets := AutoAllocate(plan.DownPaymentAmount, plan.Installments, simulated)

	var analysis Analysis
	for i, bucket := range buckets {
		var simShare int64
		var before int64
		for _, ref := range bucket.Refs {
			if ref.PaymentEntry == simulationEntry {
				simShare += ref.Amount
			} else {
				before += ref.Amount
			}
		}
		if simShare == 0 {
			continue
		}
		if i == 0 {
			// Down payment share is principal by definition.
			analysis.PrincipalAmount += fromCents(simShare)
			continue
		}

		inst := plan.Installments[i-1]
		principalLeft := bucket.Principal - before
		if principalLeft < 0 {
			principalLeft = 0
		}
		principal := simShare
		if principal > principalLeft {
			principal = principalLeft
		}
		penalty := simShare - principal
		if maxPenalty := toCents(inst.PenaltyAmount); penalty > maxPenalty {
			penalty = maxPenalty
		}

		analysis.PrincipalAmount += fromCents(principal)
		analysis.PenaltyAmount += fromCents(penalty)
		analysis.Breakdown = append(analysis.Breakdown, BreakdownLine{
			InstallmentIndex:  i - 1,
			PrincipalPayment:  fromCents(principal),
			PenaltyPayment:    fromCents(penalty),
			InstallmentAmount: inst.Amount,
			PenaltyAmount:     inst.PenaltyAmount,
		})
	}
	return analysis
}
