package payments

// SourceType identifies which parent document a payment is recorded against.
type SourceType string

const (
	SourceFinanceApplication SourceType = "Finance Application"
	SourcePaymentPlan        SourceType = "Payment Plan"
)

// PaymentSource is a tagged reference to the parent record.
type PaymentSource struct {
	Type SourceType
	Name string
}

// Request is the outgoing payment-creation request. Exactly one of
// FinanceApplicationName and PaymentPlanName is set, matching the source
// type. Submit is always true: the entry is created and finalized in one
// step, never left as a draft.
type Request struct {
	FinanceApplicationName string  `json:"finance_application_name,omitempty"`
	PaymentPlanName        string  `json:"payment_plan_name,omitempty"`
	PaidAmount             float64 `json:"paid_amount"`
	ModeOfPayment          string  `json:"mode_of_payment"`
	ReferenceNo            string  `json:"reference_no,omitempty"`
	ReferenceDate          string  `json:"reference_date,omitempty"`
	Submit                 bool    `json:"submit"`
	IdempotencyKey         string  `json:"idempotency_key,omitempty"`
}

// CreatedEntry names the payment entry produced by a successful submission.
type CreatedEntry struct {
	Name string `json:"name"`
}

// Entry is a persisted payment entry row.
type Entry struct {
	ID            int64   `json:"id" db:"id"`
	Number        string  `json:"number" db:"number"`
	PlanID        int64   `json:"plan_id" db:"plan_id"`
	PaidAmount    float64 `json:"paid_amount" db:"paid_amount"`
	ModeOfPayment string  `json:"mode_of_payment" db:"mode_of_payment"`
	ReferenceNo   string  `json:"reference_no" db:"reference_no"`
	ReferenceDate string  `json:"reference_date" db:"reference_date"`
	PostingDate   string  `json:"posting_date" db:"posting_date"`
	Finalized     bool    `json:"finalized" db:"finalized"`
}

// JournalEntry records the penalty portion of a payment: debit the customer
// receivable, credit the penalty income account, referencing both the
// payment entry and the plan.
type JournalEntry struct {
	ID            int64   `json:"id" db:"id"`
	Number        string  `json:"number" db:"number"`
	PaymentEntry  string  `json:"payment_entry" db:"payment_entry"`
	PlanID        int64   `json:"plan_id" db:"plan_id"`
	Amount        float64 `json:"amount" db:"amount"`
	DebitAccount  string  `json:"debit_account" db:"debit_account"`
	CreditAccount string  `json:"credit_account" db:"credit_account"`
	PostingDate   string  `json:"posting_date" db:"posting_date"`
}
