package payments

import "context"

// Sink is the remote payment-creation capability. The two operations share
// one request shape; the flow picks the method matching its PaymentSource.
type Sink interface {
	CreateFromFinanceApplication(ctx context.Context, req Request) (*CreatedEntry, error)
	CreateFromPaymentPlan(ctx context.Context, req Request) (*CreatedEntry, error)
}

type serviceSink struct {
	svc *Service
}

// NewServiceSink adapts the in-process Service to the Sink interface so the
// capture flow can submit without going through HTTP.
func NewServiceSink(svc *Service) Sink {
	return &serviceSink{svc: svc}
}

func (s *serviceSink) CreateFromFinanceApplication(ctx context.Context, req Request) (*CreatedEntry, error) {
	return s.svc.CreateFromFinanceApplication(ctx, CreateInput{
		SourceName:     req.FinanceApplicationName,
		PaidAmount:     req.PaidAmount,
		ModeOfPayment:  req.ModeOfPayment,
		ReferenceNo:    req.ReferenceNo,
		ReferenceDate:  req.ReferenceDate,
		Submit:         req.Submit,
		IdempotencyKey: req.IdempotencyKey,
	})
}

func (s *serviceSink) CreateFromPaymentPlan(ctx context.Context, req Request) (*CreatedEntry, error) {
	return s.svc.CreateFromPaymentPlan(ctx, CreateInput{
		SourceName:     req.PaymentPlanName,
		PaidAmount:     req.PaidAmount,
		ModeOfPayment:  req.ModeOfPayment,
		ReferenceNo:    req.ReferenceNo,
		ReferenceDate:  req.ReferenceDate,
		Submit:         req.Submit,
		IdempotencyKey: req.IdempotencyKey,
	})
}
