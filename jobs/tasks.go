package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/financed-sales/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPenaltyScan applies late penalties across overdue payment plans.
	TaskPenaltyScan = "penalty:scan"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PenaltyScanPayload parametrises one penalty scan run. An empty AsOf means
// the scan date is the current day.
type PenaltyScanPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// NewPenaltyScanTask constructs an Asynq task.
func NewPenaltyScanTask(payload PenaltyScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPenaltyScan, data), nil
}
