package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/financed-sales/internal/platform/db"
)

// ErrModeNotFound indicates an unknown payment method.
var ErrModeNotFound = errors.New("payments: mode of payment not found")

// ErrSourceNotFound indicates the source document does not exist.
var ErrSourceNotFound = errors.New("payments: source document not found")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ModeClassification resolves a payment method's type from the modes table.
func (r *Repository) ModeClassification(ctx context.Context, mode string) (string, error) {
	var classification string
	err := r.pool.QueryRow(ctx, `SELECT classification FROM modes_of_payment WHERE name = $1`, mode).Scan(&classification)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrModeNotFound
		}
		return "", err
	}
	return classification, nil
}

// PlanIDForApplication resolves the payment plan opened for an approved
// finance application.
func (r *Repository) PlanIDForApplication(ctx context.Context, applicationName string) (int64, error) {
	var planID int64
	err := r.pool.QueryRow(ctx, `SELECT pp.id
FROM payment_plans pp
INNER JOIN finance_applications fa ON fa.id = pp.finance_application_id
WHERE fa.number = $1`, applicationName).Scan(&planID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSourceNotFound
		}
		return 0, err
	}
	return planID, nil
}

// CreateEntry inserts a payment entry and returns its document number.
func (r *Repository) CreateEntry(ctx context.Context, entry Entry) (string, error) {
	var number string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('payment_entry_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("next entry number: %w", err)
		}
		number = fmt.Sprintf("PE-%05d", seq)
		_, err := tx.Exec(ctx, `INSERT INTO payment_entries (number, plan_id, paid_amount, mode_of_payment, reference_no, reference_date, posting_date, finalized, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			number, entry.PlanID, entry.PaidAmount, entry.ModeOfPayment, entry.ReferenceNo, entry.ReferenceDate, entry.PostingDate, entry.Finalized, time.Now())
		if err != nil {
			return fmt.Errorf("insert payment entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// CreateJournalEntry inserts the penalty journal entry and returns its
// document number.
func (r *Repository) CreateJournalEntry(ctx context.Context, entry JournalEntry) (string, error) {
	var number string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('journal_entry_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("next journal number: %w", err)
		}
		number = fmt.Sprintf("JE-%05d", seq)
		_, err := tx.Exec(ctx, `INSERT INTO journal_entries (number, payment_entry, plan_id, amount, debit_account, credit_account, posting_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			number, entry.PaymentEntry, entry.PlanID, entry.Amount, entry.DebitAccount, entry.CreditAccount, entry.PostingDate, time.Now())
		if err != nil {
			return fmt.Errorf("insert journal entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}
