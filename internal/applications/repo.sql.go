package applications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/financed-sales/internal/platform/db"
	"github.com/odyssey-erp/financed-sales/internal/schedule"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("applications: not found")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the application header and its installment schedule in one
// transaction.
func (r *Repository) Create(ctx context.Context, app FinanceApplication) (*FinanceApplication, error) {
	now := time.Now()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO finance_applications
(number, customer_id, quotation_id, status, amount_to_finance, down_payment, interest_rate, rate_period, repayment_term, first_installment, application_fee,
 installment, total_credit, total_interest, credit_expiration, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16) RETURNING id`,
			app.Number, app.CustomerID, app.QuotationID, app.Status,
			app.Terms.AmountToFinance, app.Terms.DownPayment, app.Terms.InterestRate, app.Terms.RatePeriod,
			app.Terms.RepaymentTerm, app.Terms.FirstInstallment, app.Terms.ApplicationFee,
			app.Schedule.Summary.Installment, app.Schedule.Summary.TotalCredit, app.Schedule.Summary.TotalInterest, app.Schedule.Summary.Expiration,
			now).Scan(&app.ID)
		if err != nil {
			return fmt.Errorf("insert application: %w", err)
		}
		return r.insertInstallments(ctx, tx, app.ID, app.Schedule.Installments)
	})
	if err != nil {
		return nil, err
	}
	app.CreatedAt = now
	app.UpdatedAt = now
	return &app, nil
}

func (r *Repository) insertInstallments(ctx context.Context, tx pgx.Tx, appID int64, installments []schedule.Installment) error {
	for _, inst := range installments {
		_, err := tx.Exec(ctx, `INSERT INTO finance_application_installments (application_id, idx, amount, due_date)
VALUES ($1, $2, $3, $4)`, appID, inst.Index, inst.Amount, inst.DueDate)
		if err != nil {
			return fmt.Errorf("insert installment %d: %w", inst.Index, err)
		}
	}
	return nil
}

// Get loads an application with its schedule.
func (r *Repository) Get(ctx context.Context, id int64) (*FinanceApplication, error) {
	return r.get(ctx, `WHERE fa.id = $1`, id)
}

// GetByNumber loads an application by document number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*FinanceApplication, error) {
	return r.get(ctx, `WHERE fa.number = $1`, number)
}

func (r *Repository) get(ctx context.Context, where string, arg any) (*FinanceApplication, error) {
	var app FinanceApplication
	err := r.pool.QueryRow(ctx, `SELECT fa.id, fa.number, fa.customer_id, COALESCE(c.name, ''), fa.quotation_id, fa.status,
fa.amount_to_finance, fa.down_payment, fa.interest_rate, fa.rate_period, fa.repayment_term, fa.first_installment, fa.application_fee,
fa.installment, fa.total_credit, fa.total_interest, fa.credit_expiration,
COALESCE(fa.credit_invoice_id, 0), COALESCE(fa.payment_plan_id, 0), COALESCE(fa.reject_reason, ''), fa.created_at, fa.updated_at
FROM finance_applications fa
LEFT JOIN customers c ON c.id = fa.customer_id `+where, arg).Scan(
		&app.ID, &app.Number, &app.CustomerID, &app.CustomerName, &app.QuotationID, &app.Status,
		&app.Terms.AmountToFinance, &app.Terms.DownPayment, &app.Terms.InterestRate, &app.Terms.RatePeriod,
		&app.Terms.RepaymentTerm, &app.Terms.FirstInstallment, &app.Terms.ApplicationFee,
		&app.Schedule.Summary.Installment, &app.Schedule.Summary.TotalCredit, &app.Schedule.Summary.TotalInterest, &app.Schedule.Summary.Expiration,
		&app.CreditInvoiceID, &app.PaymentPlanID, &app.RejectReason, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT idx, amount, due_date
FROM finance_application_installments WHERE application_id = $1 ORDER BY idx`, app.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var inst schedule.Installment
		if err := rows.Scan(&inst.Index, &inst.Amount, &inst.DueDate); err != nil {
			return nil, err
		}
		app.Schedule.Installments = append(app.Schedule.Installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &app, nil
}

// Update rewrites the application header and replaces the installment
// schedule in one transaction.
func (r *Repository) Update(ctx context.Context, app *FinanceApplication) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE finance_applications SET
status = $1, amount_to_finance = $2, down_payment = $3, interest_rate = $4, rate_period = $5, repayment_term = $6,
first_installment = $7, application_fee = $8, installment = $9, total_credit = $10, total_interest = $11, credit_expiration = $12,
credit_invoice_id = NULLIF($13, 0), payment_plan_id = NULLIF($14, 0), reject_reason = $15, updated_at = $16
WHERE id = $17`,
			app.Status, app.Terms.AmountToFinance, app.Terms.DownPayment, app.Terms.InterestRate, app.Terms.RatePeriod,
			app.Terms.RepaymentTerm, app.Terms.FirstInstallment, app.Terms.ApplicationFee,
			app.Schedule.Summary.Installment, app.Schedule.Summary.TotalCredit, app.Schedule.Summary.TotalInterest, app.Schedule.Summary.Expiration,
			app.CreditInvoiceID, app.PaymentPlanID, app.RejectReason, time.Now(), app.ID)
		if err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM finance_application_installments WHERE application_id = $1`, app.ID); err != nil {
			return fmt.Errorf("clear installments: %w", err)
		}
		return r.insertInstallments(ctx, tx, app.ID, app.Schedule.Installments)
	})
}

// List returns one page of applications, newest first, optionally filtered
// by status.
func (r *Repository) List(ctx context.Context, status Status, limit, offset int) ([]FinanceApplication, error) {
	query := `SELECT fa.id, fa.number, fa.customer_id, COALESCE(c.name, ''), fa.quotation_id, fa.status,
fa.amount_to_finance, fa.down_payment, fa.interest_rate, fa.rate_period, fa.repayment_term, fa.first_installment, fa.application_fee,
fa.installment, fa.total_credit, fa.total_interest, fa.credit_expiration,
COALESCE(fa.credit_invoice_id, 0), COALESCE(fa.payment_plan_id, 0), COALESCE(fa.reject_reason, ''), fa.created_at, fa.updated_at
FROM finance_applications fa
LEFT JOIN customers c ON c.id = fa.customer_id`
	args := []any{}
	if status != "" {
		query += ` WHERE fa.status = $1 ORDER BY fa.id DESC LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY fa.id DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []FinanceApplication
	for rows.Next() {
		var app FinanceApplication
		if err := rows.Scan(
			&app.ID, &app.Number, &app.CustomerID, &app.CustomerName, &app.QuotationID, &app.Status,
			&app.Terms.AmountToFinance, &app.Terms.DownPayment, &app.Terms.InterestRate, &app.Terms.RatePeriod,
			&app.Terms.RepaymentTerm, &app.Terms.FirstInstallment, &app.Terms.ApplicationFee,
			&app.Schedule.Summary.Installment, &app.Schedule.Summary.TotalCredit, &app.Schedule.Summary.TotalInterest, &app.Schedule.Summary.Expiration,
			&app.CreditInvoiceID, &app.PaymentPlanID, &app.RejectReason, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetQuotation loads a quotation with its lines.
func (r *Repository) GetQuotation(ctx context.Context, id int64) (*Quotation, error) {
	var q Quotation
	err := r.pool.QueryRow(ctx, `SELECT id, number, customer_id, grand_total FROM quotations WHERE id = $1`, id).
		Scan(&q.ID, &q.Number, &q.CustomerID, &q.GrandTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, item_code, item_name, qty, rate, amount
FROM quotation_items WHERE quotation_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item QuotationItem
		if err := rows.Scan(&item.ID, &item.ItemCode, &item.ItemName, &item.Qty, &item.Rate, &item.Amount); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQuotation inserts a quotation and its lines in one transaction.
func (r *Repository) CreateQuotation(ctx context.Context, q Quotation) (*Quotation, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('quotation_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("next quotation number: %w", err)
		}
		q.Number = fmt.Sprintf("QTN-%05d", seq)
		err := tx.QueryRow(ctx, `INSERT INTO quotations (number, customer_id, grand_total, created_at)
VALUES ($1, $2, $3, $4) RETURNING id`, q.Number, q.CustomerID, q.GrandTotal, time.Now()).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert quotation: %w", err)
		}
		for i := range q.Items {
			item := &q.Items[i]
			err := tx.QueryRow(ctx, `INSERT INTO quotation_items (quotation_id, item_code, item_name, qty, rate, amount)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				q.ID, item.ItemCode, item.ItemName, item.Qty, item.Rate, item.Amount).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert quotation item %q: %w", item.ItemCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateCreditInvoice inserts the invoice and its lines in one transaction.
func (r *Repository) CreateCreditInvoice(ctx context.Context, inv CreditInvoice) (*CreditInvoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('credit_invoice_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("next invoice number: %w", err)
		}
		inv.Number = fmt.Sprintf("CINV-%05d", seq)
		err := tx.QueryRow(ctx, `INSERT INTO credit_invoices (number, customer_id, application_id, total, due_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			inv.Number, inv.CustomerID, inv.ApplicationID, inv.Total, inv.DueDate, time.Now()).Scan(&inv.ID)
		if err != nil {
			return fmt.Errorf("insert credit invoice: %w", err)
		}
		for _, line := range inv.Lines {
			_, err := tx.Exec(ctx, `INSERT INTO credit_invoice_lines (invoice_id, item_code, description, amount, interest_amount)
VALUES ($1, $2, $3, $4, $5)`, inv.ID, line.ItemCode, line.Description, line.Amount, line.InterestAmount)
			if err != nil {
				return fmt.Errorf("insert invoice line %q: %w", line.ItemCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GenerateNumber produces the next application document number.
func (r *Repository) GenerateNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('finance_application_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("FA-%05d", seq), nil
}
