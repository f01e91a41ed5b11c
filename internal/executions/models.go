package executions

import "time"

// Status represents the lifecycle of an execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusRunning, StatusCompleted, StatusFailed}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether the value is a known lifecycle status.
func ValidStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// Execution is one workflow run for one asset.
type Execution struct {
	ID           string
	AssetID      string
	Status       Status
	ReportJSON   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// Active reports whether the execution is still in flight.
func (e *Execution) Active() bool {
	return e != nil && e.Status == StatusRunning
}
