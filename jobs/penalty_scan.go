package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/financed-sales/internal/jobs"
	"github.com/odyssey-erp/financed-sales/internal/plans"
)

// PenaltyScanJob walks every plan with overdue installments and applies the
// monthly late penalties.
type PenaltyScanJob struct {
	Plans   *plans.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPenaltyScanJob initialises the penalty scan handler.
func NewPenaltyScanJob(planService *plans.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *PenaltyScanJob {
	return &PenaltyScanJob{
		Plans:   planService,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the penalty scan.
func (j *PenaltyScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Plans == nil {
		return errors.New("penalty scan: handler not configured")
	}
	var payload PenaltyScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	asOf := j.now()
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			return asynq.SkipRetry
		}
		asOf = parsed
	}

	tracker := j.metrics().Track(TaskPenaltyScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Time("as_of", asOf))
	logger.Info("starting penalty scan")

	report, err := j.Plans.OverdueReport(ctx, asOf)
	if err != nil {
		resultErr = err
		logger.Error("list overdue plans failed", slog.Any("error", err))
		return resultErr
	}

	applied := 0
	failed := 0
	for _, overdue := range report {
		changed, err := j.Plans.ApplyPenalties(ctx, overdue.PlanID, asOf)
		if err != nil {
			failed++
			logger.Error("apply penalties failed",
				slog.Int64("plan_id", overdue.PlanID),
				slog.String("plan", overdue.PlanNumber),
				slog.Any("error", err),
			)
			continue
		}
		if changed > 0 {
			applied += changed
			j.metrics().AddPenalties(string(plans.PlanStatusOverdue), changed)
		}
	}
	if failed > 0 {
		resultErr = errors.New("penalty scan: some plans failed")
	}

	logger.Info("completed penalty scan",
		slog.Int("plans", len(report)),
		slog.Int("penalties_applied", applied),
		slog.Int("failed", failed),
	)
	return resultErr
}

func (j *PenaltyScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPenaltyScan))
	}
	return slog.Default().With(slog.String("job", TaskPenaltyScan))
}

func (j *PenaltyScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PenaltyScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
