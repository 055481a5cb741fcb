package job

import "time"

// Status is the lifecycle state of one harvest job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one harvest request end to end. Instances handed out by the
// tracker are copies; the live record is owned by the background execution
// and mutated only there.
type Job struct {
	ID        string    `json:"job_id"`
	Status    Status    `json:"status"`
	SourceRef string    `json:"source_reference"`
	CreatedAt time.Time `json:"created_at"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ResultLocation string `json:"result_location,omitempty"`
	RecordCount    int    `json:"record_count,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}
