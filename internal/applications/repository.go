package applications

import "context"

// RepositoryPort abstracts finance application persistence.
type RepositoryPort interface {
	Create(ctx context.Context, app FinanceApplication) (*FinanceApplication, error)
	Get(ctx context.Context, id int64) (*FinanceApplication, error)
	GetByNumber(ctx context.Context, number string) (*FinanceApplication, error)
	Update(ctx context.Context, app *FinanceApplication) error
	List(ctx context.Context, status Status, limit, offset int) ([]FinanceApplication, error)

	GetQuotation(ctx context.Context, id int64) (*Quotation, error)
	CreateQuotation(ctx context.Context, q Quotation) (*Quotation, error)

	CreateCreditInvoice(ctx context.Context, inv CreditInvoice) (*CreditInvoice, error)

	GenerateNumber(ctx context.Context) (string, error)
}
