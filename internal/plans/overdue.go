package plans

import (
	"sort"
	"time"
)

// OverdueRow is one past-due unpaid installment as returned by the
// repository join.
type OverdueRow struct {
	PlanID        int64
	PlanNumber    string
	CustomerName  string
	DueDate       time.Time
	PendingAmount float64
}

// OverduePlan aggregates a plan's overdue exposure for the report.
type OverduePlan struct {
	PlanID        int64   `json:"plan_id"`
	PlanNumber    string  `json:"payment_plan"`
	CustomerName  string  `json:"customer"`
	OverdueAmount float64 `json:"overdue_amount"`
	DaysOverdue   int     `json:"days_overdue"`
}

// SummarizeOverdue groups flat installment rows per plan, sums the pending
// amounts and derives days overdue from the oldest unpaid due date. The
// result is sorted most overdue first.
func SummarizeOverdue(rows []OverdueRow, asOf time.Time) []OverduePlan {
	type agg struct {
		plan   OverduePlan
		oldest time.Time
	}
	grouped := make(map[int64]*agg)
	order := make([]int64, 0)

	for _, row := range rows {
		entry, ok := grouped[row.PlanID]
		if !ok {
			entry = &agg{
				plan: OverduePlan{
					PlanID:       row.PlanID,
					PlanNumber:   row.PlanNumber,
					CustomerName: row.CustomerName,
				},
				oldest: row.DueDate,
			}
			grouped[row.PlanID] = entry
			order = append(order, row.PlanID)
		}
		entry.plan.OverdueAmount += row.PendingAmount
		if row.DueDate.Before(entry.oldest) {
			entry.oldest = row.DueDate
		}
	}

	result := make([]OverduePlan, 0, len(order))
	for _, id := range order {
		entry := grouped[id]
		entry.plan.DaysOverdue = int(asOf.Sub(entry.oldest).Hours() / 24)
		result = append(result, entry.plan)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DaysOverdue > result[j].DaysOverdue
	})
	return result
}
