package plans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CreatePlanInput carries everything needed to open a plan for an approved
// finance application.
type CreatePlanInput struct {
	FinanceApplicationID int64
	CreditInvoiceID      int64
	CustomerID           int64
	DownPaymentAmount    float64
	Installments         []InstallmentInput
}

// InstallmentInput is one scheduled installment copied from the application.
type InstallmentInput struct {
	DueDate time.Time
	Amount  float64
}

// Service handles payment plan business logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	clock  func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a plan with a fresh installment table: nothing paid, pending
// equals the scheduled amount.
func (s *Service) Create(ctx context.Context, input CreatePlanInput) (*PaymentPlan, error) {
	if input.FinanceApplicationID == 0 {
		return nil, errors.New("finance application ID required")
	}
	if len(input.Installments) == 0 {
		return nil, errors.New("at least one installment required")
	}

	number, err := s.repo.GenerateNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate plan number: %w", err)
	}

	plan := PaymentPlan{
		Number:               number,
		FinanceApplicationID: input.FinanceApplicationID,
		CreditInvoiceID:      input.CreditInvoiceID,
		CustomerID:           input.CustomerID,
		DownPaymentAmount:    input.DownPaymentAmount,
		Status:               PlanStatusActive,
	}
	for i, in := range input.Installments {
		plan.Installments = append(plan.Installments, PlanInstallment{
			Seq:           i,
			DueDate:       in.DueDate,
			Amount:        in.Amount,
			PaidAmount:    0,
			PendingAmount: in.Amount,
		})
	}

	created, err := s.repo.Create(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return created, nil
}

// Get returns a plan by ID.
func (s *Service) Get(ctx context.Context, id int64) (*PaymentPlan, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber returns a plan by document number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*PaymentPlan, error) {
	return s.repo.GetByNumber(ctx, number)
}

// RecordPayment attaches a finalized payment entry to the plan and re-runs
// the full allocation over every reference. Allocation is always recomputed
// from scratch, never patched.
func (s *Service) RecordPayment(ctx context.Context, planID int64, ref PaymentRef) (*PaymentPlan, error) {
	if ref.Amount <= 0 {
		return nil, errors.New("payment amount must be positive")
	}
	if ref.PaymentEntry == "" {
		return nil, errors.New("payment entry reference required")
	}

	if err := s.repo.AddPaymentRef(ctx, planID, ref); err != nil {
		return nil, fmt.Errorf("add payment ref: %w", err)
	}

	plan, err := s.repo.Get(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	buckets := AutoAllocate(plan.DownPaymentAmount, plan.Installments, plan.Payments)
	ApplyAllocation(plan, buckets, s.clock())

	if err := s.repo.SaveState(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan state: %w", err)
	}

	s.logger.Info("payment recorded",
		slog.Int64("plan_id", planID),
		slog.String("payment_entry", ref.PaymentEntry),
		slog.Float64("amount", ref.Amount),
		slog.String("status", string(plan.Status)),
	)
	return plan, nil
}

// Analyze reports the principal/penalty split of a prospective payment
// without touching the plan.
func (s *Service) Analyze(ctx context.Context, planID int64, amount float64) (*Analysis, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	plan, err := s.repo.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	analysis := AnalyzeAllocation(plan, amount)
	return &analysis, nil
}

// ApplyPenalties recalculates late penalties for one plan and persists the
// result when anything changed. Returns the number of adjusted installments.
func (s *Service) ApplyPenalties(ctx context.Context, planID int64, asOf time.Time) (int, error) {
	plan, err := s.repo.Get(ctx, planID)
	if err != nil {
		return 0, err
	}
	if asOf.IsZero() {
		asOf = s.clock()
	}

	changed := plan.CalculateOverduePenalties(asOf)
	if changed == 0 {
		return 0, nil
	}
	plan.Status = deriveStatus(plan, asOf)
	if err := s.repo.SaveState(ctx, plan); err != nil {
		return 0, fmt.Errorf("save penalties: %w", err)
	}
	return changed, nil
}

// OverdueReport groups every past-due unpaid installment per plan.
func (s *Service) OverdueReport(ctx context.Context, asOf time.Time) ([]OverduePlan, error) {
	if asOf.IsZero() {
		asOf = s.clock()
	}
	rows, err := s.repo.ListOverdueInstallments(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("list overdue installments: %w", err)
	}
	return SummarizeOverdue(rows, asOf), nil
}
