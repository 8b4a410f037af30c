package applications

import (
	"time"

	"github.com/odyssey-erp/financed-sales/internal/schedule"
)

// Status of a finance application.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// FinanceApplication is the financing request opened from a quotation. The
// installment schedule is derived from the terms and regenerated in full on
// every terms change.
type FinanceApplication struct {
	ID              int64                    `json:"id" db:"id"`
	Number          string                   `json:"number" db:"number"`
	CustomerID      int64                    `json:"customer_id" db:"customer_id"`
	CustomerName    string                   `json:"customer_name" db:"customer_name"`
	QuotationID     int64                    `json:"quotation_id" db:"quotation_id"`
	Status          Status                   `json:"status" db:"status"`
	Terms           schedule.FinancingTerms  `json:"terms"`
	Schedule        schedule.Schedule        `json:"schedule"`
	CreditInvoiceID int64                    `json:"credit_invoice_id,omitempty" db:"credit_invoice_id"`
	PaymentPlanID   int64                    `json:"payment_plan_id,omitempty" db:"payment_plan_id"`
	RejectReason    string                   `json:"reject_reason,omitempty" db:"reject_reason"`
	CreatedAt       time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at" db:"updated_at"`
}

// Quotation is the sales document a financing request is opened from.
type Quotation struct {
	ID         int64           `json:"id" db:"id"`
	Number     string          `json:"number" db:"number"`
	CustomerID int64           `json:"customer_id" db:"customer_id"`
	GrandTotal float64         `json:"grand_total" db:"grand_total"`
	Items      []QuotationItem `json:"items"`
}

// QuotationItem is one quoted line.
type QuotationItem struct {
	ID       int64   `json:"id" db:"id"`
	ItemCode string  `json:"item_code" db:"item_code"`
	ItemName string  `json:"item_name" db:"item_name"`
	Qty      float64 `json:"qty" db:"qty"`
	Rate     float64 `json:"rate" db:"rate"`
	Amount   float64 `json:"amount" db:"amount"`
}

// CreditInvoice is issued on approval: the quoted items with the financing
// interest spread across them, due when the last installment falls.
type CreditInvoice struct {
	ID            int64         `json:"id" db:"id"`
	Number        string        `json:"number" db:"number"`
	CustomerID    int64         `json:"customer_id" db:"customer_id"`
	ApplicationID int64         `json:"application_id" db:"application_id"`
	Lines         []InvoiceLine `json:"lines"`
	Total         float64       `json:"total" db:"total"`
	DueDate       time.Time     `json:"due_date" db:"due_date"`
}

// InvoiceLine is one credit invoice line with its interest share.
type InvoiceLine struct {
	ItemCode       string  `json:"item_code" db:"item_code"`
	Description    string  `json:"description" db:"description"`
	Amount         float64 `json:"amount" db:"amount"`
	InterestAmount float64 `json:"interest_amount" db:"interest_amount"`
}

// ProformaInvoice is a presentation document generated before approval.
type ProformaInvoice struct {
	ApplicationNumber string          `json:"application_number"`
	CustomerName      string          `json:"customer_name"`
	Items             []QuotationItem `json:"items"`
	GrandTotal        float64         `json:"grand_total"`
	DownPayment       float64         `json:"down_payment"`
	TotalCredit       float64         `json:"total_credit"`
	Installment       float64         `json:"installment"`
	RepaymentTerm     int             `json:"repayment_term"`
	Expiration        time.Time       `json:"credit_expiration_date"`
}
