package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatementReconcile verifies the computed rows of every district statement.
	TaskStatementReconcile = "statement:reconcile"
)

// DefaultProjectTypes are reconciled when a payload names none.
var DefaultProjectTypes = []string{"HIV", "Malaria", "TB"}

// StatementReconcilePayload selects what the reconcile job checks. A nil
// period means the active period; empty lists mean everything.
type StatementReconcilePayload struct {
	PeriodID     *int64   `json:"period_id,omitempty"`
	ProjectTypes []string `json:"project_types,omitempty"`
	DistrictIDs  []int64  `json:"district_ids,omitempty"`
}

// NewStatementReconcileTask constructs an Asynq task.
func NewStatementReconcileTask(payload StatementReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementReconcile, data), nil
}
