package plans

import (
	"context"
	"time"
)

// RepositoryPort defines data access for payment plans.
type RepositoryPort interface {
	Create(ctx context.Context, plan PaymentPlan) (*PaymentPlan, error)
	Get(ctx context.Context, id int64) (*PaymentPlan, error)
	GetByNumber(ctx context.Context, number string) (*PaymentPlan, error)
	AddPaymentRef(ctx context.Context, planID int64, ref PaymentRef) error
	SaveState(ctx context.Context, plan *PaymentPlan) error
	ListOverdueInstallments(ctx context.Context, asOf time.Time) ([]OverdueRow, error)
	GenerateNumber(ctx context.Context) (string, error)
}
