package applications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/financed-sales/internal/plans"
	"github.com/odyssey-erp/financed-sales/internal/schedule"
	"github.com/odyssey-erp/financed-sales/internal/shared"
)

type memoryAppRepo struct {
	apps     map[int64]*FinanceApplication
	quotes   map[int64]*Quotation
	invoices []CreditInvoice
	nextID   int64
	counter  int64
}

func newMemoryAppRepo() *memoryAppRepo {
	return &memoryAppRepo{
		apps:   make(map[int64]*FinanceApplication),
		quotes: make(map[int64]*Quotation),
	}
}

func (r *memoryAppRepo) Create(ctx context.Context, app FinanceApplication) (*FinanceApplication, error) {
	r.nextID++
	app.ID = r.nextID
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	stored := app
	r.apps[app.ID] = &stored
	return &app, nil
}

func (r *memoryAppRepo) Get(ctx context.Context, id int64) (*FinanceApplication, error) {
	app, ok := r.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *app
	copied.Schedule.Installments = append([]schedule.Installment(nil), app.Schedule.Installments...)
	return &copied, nil
}

func (r *memoryAppRepo) GetByNumber(ctx context.Context, number string) (*FinanceApplication, error) {
	for _, app := range r.apps {
		if app.Number == number {
			return r.Get(ctx, app.ID)
		}
	}
	return nil, ErrNotFound
}

func (r *memoryAppRepo) Update(ctx context.Context, app *FinanceApplication) error {
	if _, ok := r.apps[app.ID]; !ok {
		return ErrNotFound
	}
	stored := *app
	stored.Schedule.Installments = append([]schedule.Installment(nil), app.Schedule.Installments...)
	r.apps[app.ID] = &stored
	return nil
}

func (r *memoryAppRepo) List(ctx context.Context, status Status, limit, offset int) ([]FinanceApplication, error) {
	var result []FinanceApplication
	for _, app := range r.apps {
		if status == "" || app.Status == status {
			result = append(result, *app)
		}
	}
	return result, nil
}

func (r *memoryAppRepo) GetQuotation(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return q, nil
}

func (r *memoryAppRepo) CreateQuotation(ctx context.Context, q Quotation) (*Quotation, error) {
	r.nextID++
	q.ID = r.nextID
	q.Number = fmt.Sprintf("QTN-%05d", q.ID)
	stored := q
	r.quotes[q.ID] = &stored
	return &q, nil
}

func (r *memoryAppRepo) CreateCreditInvoice(ctx context.Context, inv CreditInvoice) (*CreditInvoice, error) {
	inv.ID = int64(len(r.invoices) + 1)
	inv.Number = fmt.Sprintf("CINV-%05d", inv.ID)
	r.invoices = append(r.invoices, inv)
	return &inv, nil
}

func (r *memoryAppRepo) GenerateNumber(ctx context.Context) (string, error) {
	r.counter++
	return fmt.Sprintf("FA-%05d", r.counter), nil
}

type fakePlanOpener struct {
	inputs []plans.CreatePlanInput
}

func (f *fakePlanOpener) Create(ctx context.Context, input plans.CreatePlanInput) (*plans.PaymentPlan, error) {
	f.inputs = append(f.inputs, input)
	return &plans.PaymentPlan{
		ID:                99,
		Number:            "PLAN-00001",
		DownPaymentAmount: input.DownPaymentAmount,
		Status:            plans.PlanStatusActive,
	}, nil
}

func testDefaults() Defaults {
	return Defaults{
		DownPaymentPercent: 20,
		InterestRate:       12,
		ApplicationFee:     50,
		RatePeriod:         schedule.RatePeriodAnnual,
		RepaymentTerm:      10,
	}
}

func newAppService(repo *memoryAppRepo, opener *fakePlanOpener) *Service {
	svc := NewService(repo, opener, testDefaults(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.clock = func() time.Time { return time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func seedQuotation(repo *memoryAppRepo) *Quotation {
	q := &Quotation{
		ID:         1,
		Number:     "QTN-00001",
		CustomerID: 7,
		GrandTotal: 1200,
		Items: []QuotationItem{
			{ItemCode: "BIKE-01", ItemName: "City Bike", Qty: 1, Rate: 700, Amount: 700},
			{ItemCode: "HELM-01", ItemName: "Helmet", Qty: 2, Rate: 250, Amount: 500},
		},
	}
	repo.quotes[q.ID] = q
	repo.nextID = 1
	return q
}

func TestCreateFromQuotationAppliesDefaults(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := newAppService(repo, &fakePlanOpener{})

	app, err := svc.CreateFromQuotation(context.Background(), CreateFromQuotationInput{
		QuotationID:      1,
		FirstInstallment: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, "FA-00001", app.Number)
	require.Equal(t, StatusDraft, app.Status)
	require.Equal(t, int64(7), app.CustomerID)

	require.InDelta(t, 1200.0, app.Terms.AmountToFinance, 1e-9)
	require.InDelta(t, 240.0, app.Terms.DownPayment, 1e-9)
	require.InDelta(t, 12.0, app.Terms.InterestRate, 1e-9)
	require.Equal(t, schedule.RatePeriodAnnual, app.Terms.RatePeriod)
	require.Equal(t, 10, app.Terms.RepaymentTerm)
	require.Len(t, app.Schedule.Installments, 10)

	// owed 960 at 1% monthly: 96 principal + 9.60 interest.
	require.InDelta(t, 105.6, app.Schedule.Summary.Installment, 1e-9)
}

func TestCreateFromQuotationDefaultsFirstInstallment(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := newAppService(repo, &fakePlanOpener{})

	app, err := svc.CreateFromQuotation(context.Background(), CreateFromQuotationInput{QuotationID: 1})
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), app.Terms.FirstInstallment)
}

func TestCreateFromQuotationIncompleteSettings(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := NewService(repo, &fakePlanOpener{}, Defaults{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.CreateFromQuotation(context.Background(), CreateFromQuotationInput{QuotationID: 1})
	require.ErrorIs(t, err, shared.ErrSettingsIncomplete)
}

func TestCreateFromPOSCart(t *testing.T) {
	repo := newMemoryAppRepo()
	svc := newAppService(repo, &fakePlanOpener{})

	app, err := svc.CreateFromPOSCart(context.Background(), CreateFromCartInput{
		CustomerID: 7,
		Items: []CartItem{
			{ItemCode: "BIKE-01", ItemName: "City Bike", Qty: 1, Rate: 700},
			{ItemCode: "HELM-01", ItemName: "Helmet", Qty: 2, Rate: 250},
		},
		FirstInstallment: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	quote, err := repo.GetQuotation(context.Background(), app.QuotationID)
	require.NoError(t, err)
	require.InDelta(t, 1200.0, quote.GrandTotal, 1e-9)
	require.Len(t, quote.Items, 2)
	require.InDelta(t, 500.0, quote.Items[1].Amount, 1e-9)
	require.InDelta(t, 1200.0, app.Terms.AmountToFinance, 1e-9)
}

func TestCreateFromPOSCartValidation(t *testing.T) {
	svc := newAppService(newMemoryAppRepo(), &fakePlanOpener{})

	_, err := svc.CreateFromPOSCart(context.Background(), CreateFromCartInput{CustomerID: 7})
	require.Error(t, err)

	_, err = svc.CreateFromPOSCart(context.Background(), CreateFromCartInput{
		Items: []CartItem{{ItemCode: "X", Qty: 1, Rate: 10}},
	})
	require.Error(t, err)

	_, err = svc.CreateFromPOSCart(context.Background(), CreateFromCartInput{
		CustomerID: 7,
		Items:      []CartItem{{ItemCode: "X", Qty: 0, Rate: 10}},
	})
	require.Error(t, err)
}

func referenceTerms() schedule.FinancingTerms {
	return schedule.FinancingTerms{
		AmountToFinance:  1200,
		DownPayment:      200,
		InterestRate:     12,
		RatePeriod:       schedule.RatePeriodAnnual,
		RepaymentTerm:    10,
		FirstInstallment: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ApplicationFee:   50,
	}
}

func createDraft(t *testing.T, svc *Service) *FinanceApplication {
	t.Helper()
	app, err := svc.CreateFromQuotation(context.Background(), CreateFromQuotationInput{
		QuotationID:      1,
		FirstInstallment: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	app, err = svc.UpdateTerms(context.Background(), app.ID, referenceTerms())
	require.NoError(t, err)
	return app
}

func TestUpdateTermsRecomputesSchedule(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := newAppService(repo, &fakePlanOpener{})
	app := createDraft(t, svc)

	require.InDelta(t, 110.0, app.Schedule.Summary.Installment, 1e-9)
	require.InDelta(t, 1100.0, app.Schedule.Summary.TotalCredit, 1e-9)
	require.InDelta(t, 100.0, app.Schedule.Summary.TotalInterest, 1e-9)
	require.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), app.Schedule.Summary.Expiration)
}

func TestUpdateTermsIncompleteClearsInstallments(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := newAppService(repo, &fakePlanOpener{})
	app := createDraft(t, svc)

	terms := referenceTerms()
	terms.DownPayment = 0
	updated, err := svc.UpdateTerms(context.Background(), app.ID, terms)
	require.NoError(t, err)
	require.Empty(t, updated.Schedule.Installments)
	// Prior summary survives until the next successful compute.
	require.InDelta(t, 110.0, updated.Schedule.Summary.Installment, 1e-9)
}

func TestUpdateTermsRejectedForClosedApplications(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	opener := &fakePlanOpener{}
	svc := newAppService(repo, opener)
	app := createDraft(t, svc)

	_, err := svc.SubmitForApproval(context.Background(), app.ID)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), app.ID)
	require.NoError(t, err)

	_, err = svc.UpdateTerms(context.Background(), app.ID, referenceTerms())
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestSubmitForApproval(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := newAppService(repo, &fakePlanOpener{})
	app := createDraft(t, svc)

	submitted, err := svc.SubmitForApproval(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, submitted.Status)

	_, err = svc.SubmitForApproval(context.Background(), app.ID)
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestApproveIssuesInvoiceAndPlan(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	opener := &fakePlanOpener{}
	svc := newAppService(repo, opener)
	app := createDraft(t, svc)

	_, err := svc.SubmitForApproval(context.Background(), app.ID)
	require.NoError(t, err)

	result, err := svc.Approve(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, result.Application.Status)
	require.Equal(t, result.Invoice.ID, result.Application.CreditInvoiceID)
	require.Equal(t, result.Plan.ID, result.Application.PaymentPlanID)

	// 100 interest spread over 700 and 500: 58.33 + 41.67.
	require.Len(t, result.Invoice.Lines, 2)
	require.InDelta(t, 58.33, result.Invoice.Lines[0].InterestAmount, 1e-9)
	require.InDelta(t, 41.67, result.Invoice.Lines[1].InterestAmount, 1e-9)
	require.InDelta(t, 1300.0, result.Invoice.Total, 1e-9)
	require.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), result.Invoice.DueDate)

	require.Len(t, opener.inputs, 1)
	planInput := opener.inputs[0]
	require.Equal(t, app.ID, planInput.FinanceApplicationID)
	require.InDelta(t, 200.0, planInput.DownPaymentAmount, 1e-9)
	require.Len(t, planInput.Installments, 10)
	require.InDelta(t, 110.0, planInput.Installments[0].Amount, 1e-9)
}

func TestApproveRequiresPending(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := newAppService(repo, &fakePlanOpener{})
	app := createDraft(t, svc)

	_, err := svc.Approve(context.Background(), app.ID)
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestReject(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := newAppService(repo, &fakePlanOpener{})
	app := createDraft(t, svc)

	_, err := svc.SubmitForApproval(context.Background(), app.ID)
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), app.ID, "insufficient credit history")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "insufficient credit history", rejected.RejectReason)
}

func TestProforma(t *testing.T) {
	repo := newMemoryAppRepo()
	seedQuotation(repo)
	svc := newAppService(repo, &fakePlanOpener{})
	app := createDraft(t, svc)

	doc, err := svc.Proforma(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, app.Number, doc.ApplicationNumber)
	require.Len(t, doc.Items, 2)
	require.InDelta(t, 1200.0, doc.GrandTotal, 1e-9)
	require.InDelta(t, 200.0, doc.DownPayment, 1e-9)
	require.InDelta(t, 1100.0, doc.TotalCredit, 1e-9)
	require.InDelta(t, 110.0, doc.Installment, 1e-9)
	require.Equal(t, 10, doc.RepaymentTerm)
}
