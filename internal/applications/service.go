package applications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/financed-sales/internal/plans"
	"github.com/odyssey-erp/financed-sales/internal/schedule"
	"github.com/odyssey-erp/financed-sales/internal/shared"
)

// Defaults are the financing settings applied to a new application.
type Defaults struct {
	DownPaymentPercent float64
	InterestRate       float64
	ApplicationFee     float64
	RatePeriod         schedule.RatePeriod
	RepaymentTerm      int
}

func (d Defaults) complete() bool {
	return d.DownPaymentPercent != 0 &&
		d.InterestRate != 0 &&
		d.ApplicationFee != 0 &&
		d.RatePeriod != "" &&
		d.RepaymentTerm >= 1
}

// PlanOpener opens the payment plan when an application is approved.
type PlanOpener interface {
	Create(ctx context.Context, input plans.CreatePlanInput) (*plans.PaymentPlan, error)
}

// CreateFromQuotationInput opens an application for an existing quotation.
// Zero FirstInstallment and RepaymentTerm fall back to the defaults.
type CreateFromQuotationInput struct {
	QuotationID      int64
	FirstInstallment time.Time
	RepaymentTerm    int
}

// CartItem is one line of a point-of-sale cart.
type CartItem struct {
	ItemCode string  `json:"item_code"`
	ItemName string  `json:"item_name"`
	Qty      float64 `json:"qty"`
	Rate     float64 `json:"rate"`
}

// CreateFromCartInput builds a quotation from a POS cart, then the
// application on top of it.
type CreateFromCartInput struct {
	CustomerID       int64
	Items            []CartItem
	FirstInstallment time.Time
	RepaymentTerm    int
}

// ApprovalResult bundles the documents produced by an approval.
type ApprovalResult struct {
	Application *FinanceApplication `json:"application"`
	Invoice     *CreditInvoice      `json:"credit_invoice"`
	Plan        *plans.PaymentPlan  `json:"payment_plan"`
}

// Service handles finance application business logic.
type Service struct {
	repo     RepositoryPort
	plans    PlanOpener
	defaults Defaults
	logger   *slog.Logger
	clock    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, planOpener PlanOpener, defaults Defaults, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		plans:    planOpener,
		defaults: defaults,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateFromQuotation opens a draft application for the quotation, seeding
// the terms from the financing defaults and computing the initial schedule.
func (s *Service) CreateFromQuotation(ctx context.Context, in CreateFromQuotationInput) (*FinanceApplication, error) {
	if !s.defaults.complete() {
		return nil, shared.ErrSettingsIncomplete
	}
	quotation, err := s.repo.GetQuotation(ctx, in.QuotationID)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	term := in.RepaymentTerm
	if term == 0 {
		term = s.defaults.RepaymentTerm
	}
	first := in.FirstInstallment
	if first.IsZero() {
		first = s.clock().AddDate(0, 1, 0)
	}

	number, err := s.repo.GenerateNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate application number: %w", err)
	}

	app := FinanceApplication{
		Number:      number,
		CustomerID:  quotation.CustomerID,
		QuotationID: quotation.ID,
		Status:      StatusDraft,
		Terms: schedule.FinancingTerms{
			AmountToFinance:  quotation.GrandTotal,
			DownPayment:      quotation.GrandTotal * s.defaults.DownPaymentPercent / 100,
			InterestRate:     s.defaults.InterestRate,
			RatePeriod:       s.defaults.RatePeriod,
			RepaymentTerm:    term,
			FirstInstallment: first,
			ApplicationFee:   s.defaults.ApplicationFee,
		},
	}
	if sch, ok := schedule.Compute(app.Terms); ok {
		app.Schedule = sch
	}

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	s.logger.Info("finance application created",
		slog.String("number", created.Number),
		slog.Int64("quotation_id", quotation.ID),
	)
	return created, nil
}

// CreateFromPOSCart converts a point-of-sale cart into a quotation and opens
// an application on it in one step.
func (s *Service) CreateFromPOSCart(ctx context.Context, in CreateFromCartInput) (*FinanceApplication, error) {
	if in.CustomerID == 0 {
		return nil, errors.New("customer is required")
	}
	if len(in.Items) == 0 {
		return nil, errors.New("cart is empty")
	}

	quotation := Quotation{CustomerID: in.CustomerID}
	for _, item := range in.Items {
		if item.Qty <= 0 || item.Rate < 0 {
			return nil, fmt.Errorf("invalid cart line %q", item.ItemCode)
		}
		amount := item.Qty * item.Rate
		quotation.Items = append(quotation.Items, QuotationItem{
			ItemCode: item.ItemCode,
			ItemName: item.ItemName,
			Qty:      item.Qty,
			Rate:     item.Rate,
			Amount:   amount,
		})
		quotation.GrandTotal += amount
	}

	created, err := s.repo.CreateQuotation(ctx, quotation)
	if err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}
	return s.CreateFromQuotation(ctx, CreateFromQuotationInput{
		QuotationID:      created.ID,
		FirstInstallment: in.FirstInstallment,
		RepaymentTerm:    in.RepaymentTerm,
	})
}

// Get returns an application by ID.
func (s *Service) Get(ctx context.Context, id int64) (*FinanceApplication, error) {
	return s.repo.Get(ctx, id)
}

// List returns one page of applications filtered by status.
func (s *Service) List(ctx context.Context, status Status, page, perPage int) ([]FinanceApplication, error) {
	p := shared.NewPagination(page, perPage, 0)
	return s.repo.List(ctx, status, p.PerPage, (p.Page-1)*p.PerPage)
}

// UpdateTerms replaces the financing terms and regenerates the schedule in
// full. Incomplete terms clear the installments and leave the prior summary
// untouched. Approved or rejected applications are immutable.
func (s *Service) UpdateTerms(ctx context.Context, id int64, terms schedule.FinancingTerms) (*FinanceApplication, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status == StatusApproved || app.Status == StatusRejected {
		return nil, fmt.Errorf("%w: cannot edit %s application", shared.ErrInvalidStatus, app.Status)
	}

	app.Terms = terms
	if sch, ok := schedule.Compute(terms); ok {
		app.Schedule = sch
	} else {
		app.Schedule.Installments = nil
	}

	if err := s.repo.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

// SubmitForApproval moves a draft with a complete schedule to PENDING.
func (s *Service) SubmitForApproval(ctx context.Context, id int64) (*FinanceApplication, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusDraft {
		return nil, fmt.Errorf("%w: %s to PENDING", shared.ErrInvalidStatus, app.Status)
	}
	if len(app.Schedule.Installments) == 0 {
		return nil, errors.New("schedule is incomplete")
	}
	app.Status = StatusPending
	if err := s.repo.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

// Approve issues the credit invoice and opens the payment plan, then marks
// the application approved with links to both documents.
func (s *Service) Approve(ctx context.Context, id int64) (*ApprovalResult, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s to APPROVED", shared.ErrInvalidStatus, app.Status)
	}
	if len(app.Schedule.Installments) == 0 {
		return nil, errors.New("schedule is incomplete")
	}

	quotation, err := s.repo.GetQuotation(ctx, app.QuotationID)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	invoice, err := s.buildCreditInvoice(app, quotation)
	if err != nil {
		return nil, err
	}
	createdInvoice, err := s.repo.CreateCreditInvoice(ctx, *invoice)
	if err != nil {
		return nil, fmt.Errorf("create credit invoice: %w", err)
	}

	planInput := plans.CreatePlanInput{
		FinanceApplicationID: app.ID,
		CreditInvoiceID:      createdInvoice.ID,
		CustomerID:           app.CustomerID,
		DownPaymentAmount:    app.Terms.DownPayment,
	}
	for _, inst := range app.Schedule.Installments {
		planInput.Installments = append(planInput.Installments, plans.InstallmentInput{
			DueDate: inst.DueDate,
			Amount:  inst.Amount,
		})
	}
	plan, err := s.plans.Create(ctx, planInput)
	if err != nil {
		return nil, fmt.Errorf("open payment plan: %w", err)
	}

	app.Status = StatusApproved
	app.CreditInvoiceID = createdInvoice.ID
	app.PaymentPlanID = plan.ID
	if err := s.repo.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	s.logger.Info("finance application approved",
		slog.String("number", app.Number),
		slog.String("credit_invoice", createdInvoice.Number),
		slog.String("payment_plan", plan.Number),
	)
	return &ApprovalResult{Application: app, Invoice: createdInvoice, Plan: plan}, nil
}

// buildCreditInvoice turns the quoted items into invoice lines with the
// financing interest spread across them, due when the credit expires.
func (s *Service) buildCreditInvoice(app *FinanceApplication, quotation *Quotation) (*CreditInvoice, error) {
	amounts := make([]float64, len(quotation.Items))
	for i, item := range quotation.Items {
		amounts[i] = item.Amount
	}
	shares := DistributeInterest(amounts, app.Schedule.Summary.TotalInterest)

	invoice := CreditInvoice{
		CustomerID:    app.CustomerID,
		ApplicationID: app.ID,
		DueDate:       app.Schedule.Summary.Expiration,
	}
	for i, item := range quotation.Items {
		invoice.Lines = append(invoice.Lines, InvoiceLine{
			ItemCode:       item.ItemCode,
			Description:    item.ItemName,
			Amount:         item.Amount,
			InterestAmount: shares[i],
		})
		invoice.Total += item.Amount + shares[i]
	}

	if err := ValidateFinancedTotal(invoice.Lines, quotation.GrandTotal+app.Schedule.Summary.TotalInterest); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Reject closes a pending application without issuing documents.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (*FinanceApplication, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s to REJECTED", shared.ErrInvalidStatus, app.Status)
	}
	app.Status = StatusRejected
	app.RejectReason = reason
	if err := s.repo.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

// Proforma renders a proforma invoice for the application's current terms.
func (s *Service) Proforma(ctx context.Context, id int64) (*ProformaInvoice, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(app.Schedule.Installments) == 0 {
		return nil, errors.New("schedule is incomplete")
	}
	quotation, err := s.repo.GetQuotation(ctx, app.QuotationID)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	return &ProformaInvoice{
		ApplicationNumber: app.Number,
		CustomerName:      app.CustomerName,
		Items:             quotation.Items,
		GrandTotal:        quotation.GrandTotal,
		DownPayment:       app.Terms.DownPayment,
		TotalCredit:       app.Schedule.Summary.TotalCredit,
		Installment:       app.Schedule.Summary.Installment,
		RepaymentTerm:     app.Terms.RepaymentTerm,
		Expiration:        app.Schedule.Summary.Expiration,
	}, nil
}
