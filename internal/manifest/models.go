package manifest

import "time"

// Status represents the lifecycle of one stage within a run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSkipped Status = "skipped"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Run identifies one pipeline invocation against a working directory.
type Run struct {
	ID         string
	WorkDir    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    string
}

// StageRecord captures one stage decision within a run.
type StageRecord struct {
	ID         int64
	RunID      string
	Stage      string
	Signature  string
	Status     Status
	Detail     string
	StartedAt  time.Time
	FinishedAt *time.Time
}
