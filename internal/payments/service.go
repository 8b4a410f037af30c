package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/financed-sales/internal/plans"
	"github.com/odyssey-erp/financed-sales/internal/shared"
)

// PlanLedger is the slice of the plans service the payment entry service
// needs: resolve plans, preview allocation, record finalized payments.
type PlanLedger interface {
	GetByNumber(ctx context.Context, number string) (*plans.PaymentPlan, error)
	Analyze(ctx context.Context, planID int64, amount float64) (*plans.Analysis, error)
	RecordPayment(ctx context.Context, planID int64, ref plans.PaymentRef) (*plans.PaymentPlan, error)
}

// CreateInput carries one payment-creation request.
type CreateInput struct {
	SourceName     string
	PaidAmount     float64
	ModeOfPayment  string
	ReferenceNo    string
	ReferenceDate  string
	Submit         bool
	IdempotencyKey string
}

// ServiceConfig holds the accounts the penalty journal entry posts to.
type ServiceConfig struct {
	ReceivableAccount    string
	PenaltyIncomeAccount string
}

// Service creates payment entries for finance applications and payment
// plans.
type Service struct {
	repo   RepositoryPort
	ledger PlanLedger
	modes  ModeDirectory
	idem   *shared.IdempotencyStore
	logger *slog.Logger
	cfg    ServiceConfig
	clock  func() time.Time
}

// NewService builds a Service instance. idem may be nil when idempotency
// keys are not enforced (tests, offline tools).
func NewService(repo RepositoryPort, ledger PlanLedger, modes ModeDirectory, idem *shared.IdempotencyStore, logger *slog.Logger, cfg ServiceConfig) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		modes:  modes,
		idem:   idem,
		logger: logger,
		cfg:    cfg,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

type repoDirectory struct {
	repo RepositoryPort
}

// NewRepoDirectory exposes the repository's mode lookup as a ModeDirectory.
func NewRepoDirectory(repo RepositoryPort) ModeDirectory {
	return repoDirectory{repo: repo}
}

func (d repoDirectory) Classification(ctx context.Context, mode string) (string, error) {
	return d.repo.ModeClassification(ctx, mode)
}

// CreateFromFinanceApplication records a payment against the plan opened
// for the named finance application.
func (s *Service) CreateFromFinanceApplication(ctx context.Context, in CreateInput) (*CreatedEntry, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	planID, err := s.repo.PlanIDForApplication(ctx, in.SourceName)
	if err != nil {
		return nil, fmt.Errorf("resolve finance application %q: %w", in.SourceName, err)
	}
	return s.create(ctx, planID, in)
}

// CreateFromPaymentPlan records a payment against the named plan directly.
func (s *Service) CreateFromPaymentPlan(ctx context.Context, in CreateInput) (*CreatedEntry, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	plan, err := s.ledger.GetByNumber(ctx, in.SourceName)
	if err != nil {
		return nil, fmt.Errorf("resolve payment plan %q: %w", in.SourceName, err)
	}
	return s.create(ctx, plan.ID, in)
}

func validateInput(in CreateInput) error {
	if in.SourceName == "" {
		return errors.New("source document name is required")
	}
	if in.PaidAmount <= 0 {
		return errors.New("paid_amount must be greater than zero")
	}
	if in.ModeOfPayment == "" {
		return errors.New("mode_of_payment is required")
	}
	return nil
}

func (s *Service) create(ctx context.Context, planID int64, in CreateInput) (*CreatedEntry, error) {
	if s.idem != nil && in.IdempotencyKey != "" {
		if err := s.idem.CheckAndInsert(ctx, in.IdempotencyKey, "payments"); err != nil {
			return nil, err
		}
	}
	entry, err := s.createEntry(ctx, planID, in)
	if err != nil && s.idem != nil && in.IdempotencyKey != "" {
		if delErr := s.idem.Delete(ctx, in.IdempotencyKey); delErr != nil {
			s.logger.Error("release idempotency key failed",
				slog.String("key", in.IdempotencyKey),
				slog.Any("error", delErr),
			)
		}
	}
	return entry, err
}

func (s *Service) createEntry(ctx context.Context, planID int64, in CreateInput) (*CreatedEntry, error) {
	// Reference fields only apply to bank-like modes; anything a client
	// sent for other modes is dropped here.
	if !IsBank(ctx, s.modes, s.logger, in.ModeOfPayment) {
		in.ReferenceNo = ""
		in.ReferenceDate = ""
	}

	analysis, err := s.ledger.Analyze(ctx, planID, in.PaidAmount)
	if err != nil {
		return nil, fmt.Errorf("analyze allocation: %w", err)
	}

	posting := s.clock()
	number, err := s.repo.CreateEntry(ctx, Entry{
		PlanID:        planID,
		PaidAmount:    in.PaidAmount,
		ModeOfPayment: in.ModeOfPayment,
		ReferenceNo:   in.ReferenceNo,
		ReferenceDate: in.ReferenceDate,
		PostingDate:   posting.Format("2006-01-02"),
		Finalized:     in.Submit,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment entry: %w", err)
	}

	if in.Submit {
		if _, err := s.ledger.RecordPayment(ctx, planID, plans.PaymentRef{
			PaymentEntry: number,
			Amount:       in.PaidAmount,
			Date:         posting,
		}); err != nil {
			return nil, fmt.Errorf("record payment on plan: %w", err)
		}
	}

	if analysis.PenaltyAmount > 0 {
		journal, err := s.repo.CreateJournalEntry(ctx, JournalEntry{
			PaymentEntry:  number,
			PlanID:        planID,
			Amount:        analysis.PenaltyAmount,
			DebitAccount:  s.cfg.ReceivableAccount,
			CreditAccount: s.cfg.PenaltyIncomeAccount,
			PostingDate:   posting.Format("2006-01-02"),
		})
		if err != nil {
			return nil, fmt.Errorf("create penalty journal entry: %w", err)
		}
		s.logger.Info("penalty journal entry created",
			slog.String("journal_entry", journal),
			slog.String("payment_entry", number),
			slog.Float64("penalty", analysis.PenaltyAmount),
		)
	}

	s.logger.Info("payment entry created",
		slog.String("payment_entry", number),
		slog.Int64("plan_id", planID),
		slog.Float64("amount", in.PaidAmount),
		slog.Bool("finalized", in.Submit),
	)
	return &CreatedEntry{Name: number}, nil
}
