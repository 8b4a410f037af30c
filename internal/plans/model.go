// Package plans manages payment plans created from approved finance
// applications: installment tracking, payment allocation, late penalties and
// the overdue report.
package plans

import "time"

type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusOverdue   PlanStatus = "OVERDUE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
	PlanStatusCancelled PlanStatus = "CANCELLED"
)

type PaymentPlan struct {
	ID                   int64             `json:"id" db:"id"`
	Number               string            `json:"number" db:"number"`
	FinanceApplicationID int64             `json:"finance_application_id" db:"finance_application_id"`
	CreditInvoiceID      int64             `json:"credit_invoice_id" db:"credit_invoice_id"`
	CustomerID           int64             `json:"customer_id" db:"customer_id"`
	CustomerName         string            `json:"customer_name" db:"customer_name"`
	DownPaymentAmount    float64           `json:"down_payment_amount" db:"down_payment_amount"`
	Status               PlanStatus        `json:"status" db:"status"`
	Installments         []PlanInstallment `json:"installments" db:"-"`
	Payments             []PaymentRef      `json:"payments,omitempty" db:"-"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

// PlanInstallment is one row of the plan's installment table. PaidAmount and
// PendingAmount track principal only; PenaltyAmount accrues separately.
type PlanInstallment struct {
	ID            int64     `json:"id" db:"id"`
	PlanID        int64     `json:"plan_id" db:"plan_id"`
	Seq           int       `json:"seq" db:"seq"`
	DueDate       time.Time `json:"due_date" db:"due_date"`
	Amount        float64   `json:"amount" db:"amount"`
	PaidAmount    float64   `json:"paid_amount" db:"paid_amount"`
	PendingAmount float64   `json:"pending_amount" db:"pending_amount"`
	PenaltyAmount float64   `json:"penalty_amount" db:"penalty_amount"`
}

// PaymentRef links a finalized payment entry to the plan.
type PaymentRef struct {
	ID           int64     `json:"id" db:"id"`
	PlanID       int64     `json:"plan_id" db:"plan_id"`
	PaymentEntry string    `json:"payment_entry" db:"payment_entry"`
	Amount       float64   `json:"amount" db:"amount"`
	Date         time.Time `json:"date" db:"date"`
}
