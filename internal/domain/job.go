package domain

import "time"

// Job names reported in metrics, logs and the job status endpoint.
const (
	JobIngest  = "ingest"
	JobMigrate = "migrate"
)

// JobStatus is a snapshot of one scheduled job.
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Running   bool      `json:"running"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastStart time.Time `json:"last_start,omitzero"`
	LastEnd   time.Time `json:"last_end,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitzero"`
}
