package plans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/financed-sales/internal/platform/db"
)

// ErrNotFound indicates the requested plan does not exist.
var ErrNotFound = errors.New("plans: not found")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the plan header and its installment table in one
// transaction.
func (r *Repository) Create(ctx context.Context, plan PaymentPlan) (*PaymentPlan, error) {
	now := time.Now()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO payment_plans (number, finance_application_id, credit_invoice_id, customer_id, down_payment_amount, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`,
			plan.Number, plan.FinanceApplicationID, plan.CreditInvoiceID, plan.CustomerID, plan.DownPaymentAmount, plan.Status, now).Scan(&plan.ID)
		if err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		for i := range plan.Installments {
			inst := &plan.Installments[i]
			inst.PlanID = plan.ID
			err := tx.QueryRow(ctx, `INSERT INTO payment_plan_installments (plan_id, seq, due_date, amount, paid_amount, pending_amount, penalty_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
				plan.ID, inst.Seq, inst.DueDate, inst.Amount, inst.PaidAmount, inst.PendingAmount, inst.PenaltyAmount).Scan(&inst.ID)
			if err != nil {
				return fmt.Errorf("insert installment %d: %w", inst.Seq, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	plan.CreatedAt = now
	plan.UpdatedAt = now
	return &plan, nil
}

// Get loads a plan with installments and payment references.
func (r *Repository) Get(ctx context.Context, id int64) (*PaymentPlan, error) {
	return r.get(ctx, `WHERE pp.id = $1`, id)
}

// GetByNumber loads a plan by its document number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*PaymentPlan, error) {
	return r.get(ctx, `WHERE pp.number = $1`, number)
}

func (r *Repository) get(ctx context.Context, where string, arg any) (*PaymentPlan, error) {
	var plan PaymentPlan
	err := r.pool.QueryRow(ctx, `SELECT pp.id, pp.number, pp.finance_application_id, pp.credit_invoice_id, pp.customer_id, COALESCE(c.name, ''), pp.down_payment_amount, pp.status, pp.created_at, pp.updated_at
FROM payment_plans pp
LEFT JOIN customers c ON c.id = pp.customer_id `+where,
		arg).Scan(&plan.ID, &plan.Number, &plan.FinanceApplicationID, &plan.CreditInvoiceID, &plan.CustomerID, &plan.CustomerName, &plan.DownPaymentAmount, &plan.Status, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, plan_id, seq, due_date, amount, paid_amount, pending_amount, penalty_amount
FROM payment_plan_installments WHERE plan_id = $1 ORDER BY seq`, plan.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var inst PlanInstallment
		if err := rows.Scan(&inst.ID, &inst.PlanID, &inst.Seq, &inst.DueDate, &inst.Amount, &inst.PaidAmount, &inst.PendingAmount, &inst.PenaltyAmount); err != nil {
			return nil, err
		}
		plan.Installments = append(plan.Installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payRows, err := r.pool.Query(ctx, `SELECT id, plan_id, payment_entry, amount, date
FROM payment_plan_refs WHERE plan_id = $1 ORDER BY id`, plan.ID)
	if err != nil {
		return nil, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var ref PaymentRef
		if err := payRows.Scan(&ref.ID, &ref.PlanID, &ref.PaymentEntry, &ref.Amount, &ref.Date); err != nil {
			return nil, err
		}
		plan.Payments = append(plan.Payments, ref)
	}
	if err := payRows.Err(); err != nil {
		return nil, err
	}

	return &plan, nil
}

// AddPaymentRef records a payment entry against the plan.
func (r *Repository) AddPaymentRef(ctx context.Context, planID int64, ref PaymentRef) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payment_plan_refs (plan_id, payment_entry, amount, date) VALUES ($1, $2, $3, $4)`,
		planID, ref.PaymentEntry, ref.Amount, ref.Date)
	return err
}

// SaveState persists the allocation and penalty state of every installment
// together with the derived plan status.
func (r *Repository) SaveState(ctx context.Context, plan *PaymentPlan) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, inst := range plan.Installments {
			_, err := tx.Exec(ctx, `UPDATE payment_plan_installments SET paid_amount = $1, pending_amount = $2, penalty_amount = $3 WHERE id = $4`,
				inst.PaidAmount, inst.PendingAmount, inst.PenaltyAmount, inst.ID)
			if err != nil {
				return fmt.Errorf("update installment %d: %w", inst.ID, err)
			}
		}
		_, err := tx.Exec(ctx, `UPDATE payment_plans SET status = $1, updated_at = $2 WHERE id = $3`, plan.Status, time.Now(), plan.ID)
		return err
	})
}

// ListOverdueInstallments returns unpaid installments past their due date on
// submitted plans.
func (r *Repository) ListOverdueInstallments(ctx context.Context, asOf time.Time) ([]OverdueRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT pp.id, pp.number, COALESCE(c.name, ''), ppi.due_date, ppi.pending_amount
FROM payment_plan_installments ppi
INNER JOIN payment_plans pp ON pp.id = ppi.plan_id
LEFT JOIN customers c ON c.id = pp.customer_id
WHERE pp.status IN ('ACTIVE','OVERDUE')
AND ppi.due_date < $1
AND ppi.pending_amount > 0
ORDER BY pp.id, ppi.seq`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OverdueRow
	for rows.Next() {
		var row OverdueRow
		if err := rows.Scan(&row.PlanID, &row.PlanNumber, &row.CustomerName, &row.DueDate, &row.PendingAmount); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateNumber produces the next plan document number.
func (r *Repository) GenerateNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('payment_plan_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("PLAN-%05d", seq), nil
}
