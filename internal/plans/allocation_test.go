package plans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testInstallments() []PlanInstallment {
	return []PlanInstallment{
		{Seq: 0, DueDate: date(2025, 1, 1), Amount: 100, PendingAmount: 100},
		{Seq: 1, DueDate: date(2025, 2, 1), Amount: 100, PendingAmount: 100},
		{Seq: 2, DueDate: date(2025, 3, 1), Amount: 100, PendingAmount: 100},
	}
}

func TestAutoAllocateFillsDownPaymentFirst(t *testing.T) {
	payments := []PaymentRef{{PaymentEntry: "PE-1", Amount: 250}}
	buckets := AutoAllocate(200, testInstallments(), payments)

	require.Len(t, buckets, 4)
	require.Equal(t, int64(20000), buckets[0].Allocated)
	require.Equal(t, int64(5000), buckets[1].Allocated)
	require.Equal(t, int64(0), buckets[2].Allocated)
}

func TestAutoAllocateSpansMultiplePayments(t *testing.T) {
	payments := []PaymentRef{
		{PaymentEntry: "PE-1", Amount: 200},
		{PaymentEntry: "PE-2", Amount: 150},
		{PaymentEntry: "PE-3", Amount: 75},
	}
	buckets := AutoAllocate(200, testInstallments(), payments)

	require.Equal(t, int64(20000), buckets[0].Allocated)
	require.Equal(t, int64(10000), buckets[1].Allocated)
	require.Equal(t, int64(10000), buckets[2].Allocated)
	require.Equal(t, int64(2500), buckets[3].Allocated)

	// First installment filled by PE-2 alone, second split PE-2/PE-3.
	require.Equal(t, []AllocatedRef{{PaymentEntry: "PE-2", Amount: 10000}}, buckets[1].Refs)
	require.Equal(t, []AllocatedRef{
		{PaymentEntry: "PE-2", Amount: 5000},
		{PaymentEntry: "PE-3", Amount: 5000},
	}, buckets[2].Refs)
}

func TestAutoAllocateConservesCents(t *testing.T) {
	payments := []PaymentRef{
		{PaymentEntry: "PE-1", Amount: 33.33},
		{PaymentEntry: "PE-2", Amount: 66.67},
		{PaymentEntry: "PE-3", Amount: 0.01},
	}
	buckets := AutoAllocate(50, testInstallments(), payments)

	var total int64
	for _, b := range buckets {
		total += b.Allocated
	}
	require.Equal(t, toCents(33.33+66.67+0.01), total)
}

func TestAutoAllocateSurplusSticksToLastInstallment(t *testing.T) {
	payments := []PaymentRef{{PaymentEntry: "PE-1", Amount: 600}}
	buckets := AutoAllocate(200, testInstallments(), payments)

	require.Equal(t, int64(20000), buckets[0].Allocated)
	require.Equal(t, int64(10000), buckets[1].Allocated)
	require.Equal(t, int64(10000), buckets[2].Allocated)
	// 100 capacity + 100 surplus.
	require.Equal(t, int64(20000), buckets[3].Allocated)
}

func TestAutoAllocatePenaltyCapacityAfterPrincipal(t *testing.T) {
	installments := testInstallments()
	installments[0].PenaltyAmount = 10

	payments := []PaymentRef{{PaymentEntry: "PE-1", Amount: 310}}
	buckets := AutoAllocate(200, installments, payments)

	// 200 down + 110 into the first installment (100 principal + 10 penalty).
	require.Equal(t, int64(11000), buckets[1].Allocated)
	require.Equal(t, int64(10000), buckets[1].Principal)
	require.Equal(t, int64(0), buckets[2].Allocated)
}

func TestApplyAllocationDerivesStatus(t *testing.T) {
	now := date(2025, 2, 15)

	plan := &PaymentPlan{
		DownPaymentAmount: 200,
		Status:            PlanStatusActive,
		Installments:      testInstallments(),
		Payments:          []PaymentRef{{PaymentEntry: "PE-1", Amount: 250}},
	}
	buckets := AutoAllocate(plan.DownPaymentAmount, plan.Installments, plan.Payments)
	ApplyAllocation(plan, buckets, now)

	require.InDelta(t, 50.0, plan.Installments[0].PaidAmount, 1e-9)
	require.InDelta(t, 50.0, plan.Installments[0].PendingAmount, 1e-9)
	// Jan 1 installment still pending on Feb 15.
	require.Equal(t, PlanStatusOverdue, plan.Status)

	plan.Payments = append(plan.Payments, PaymentRef{PaymentEntry: "PE-2", Amount: 250})
	buckets = AutoAllocate(plan.DownPaymentAmount, plan.Installments, plan.Payments)
	ApplyAllocation(plan, buckets, now)
	require.Equal(t, PlanStatusCompleted, plan.Status)
}

func TestAnalyzeAllocationSplitsPrincipalAndPenalty(t *testing.T) {
	installments := testInstallments()
	installments[0].PenaltyAmount = 15

	plan := &PaymentPlan{
		DownPaymentAmount: 100,
		Status:            PlanStatusActive,
		Installments:      installments,
		Payments:          []PaymentRef{{PaymentEntry: "PE-1", Amount: 100}}, // covers down payment
	}

	analysis := AnalyzeAllocation(plan, 115)
	require.InDelta(t, 100.0, analysis.PrincipalAmount, 1e-9)
	require.InDelta(t, 15.0, analysis.PenaltyAmount, 1e-9)
	require.Len(t, analysis.Breakdown, 1)
	require.Equal(t, 0, analysis.Breakdown[0].InstallmentIndex)
	require.InDelta(t, 100.0, analysis.Breakdown[0].PrincipalPayment, 1e-9)
	require.InDelta(t, 15.0, analysis.Breakdown[0].PenaltyPayment, 1e-9)

	// Analysis must not touch the plan.
	require.Len(t, plan.Payments, 1)
	require.InDelta(t, 0.0, plan.Installments[0].PaidAmount, 1e-9)
}

func TestAnalyzeAllocationDownPaymentOnly(t *testing.T) {
	plan := &PaymentPlan{
		DownPaymentAmount: 200,
		Installments:      testInstallments(),
	}
	analysis := AnalyzeAllocation(plan, 150)
	require.InDelta(t, 150.0, analysis.PrincipalAmount, 1e-9)
	require.Zero(t, analysis.PenaltyAmount)
	require.Empty(t, analysis.Breakdown)
}
