package api

import (
	"time"

	"lapse/internal/events"
	"lapse/internal/history"
	"lapse/internal/render"
)

// DaemonStatus aggregates runtime information about the daemon.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	LockFilePath string             `json:"lock_file_path"`
	HistoryPath  string             `json:"history_path,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// WorkflowStatus summarizes the queue processor.
type WorkflowStatus struct {
	Running       bool         `json:"running"`
	Processing    bool         `json:"processing"`
	QueueDepth    int          `json:"queue_depth"`
	Unfinished    int          `json:"unfinished"`
	CompletedJobs int          `json:"completed_jobs"`
	LastJobID     string       `json:"last_job_id,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	Pending       []PendingJob `json:"pending"`
}

// PendingJob is a queued job that has not started.
type PendingJob struct {
	JobID         string    `json:"job_id"`
	Camera        string    `json:"camera"`
	PrintFileName string    `json:"print_file_name"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// SubmitRequest asks the daemon to render one print.
type SubmitRequest struct {
	Job        render.JobInfo `json:"job"`
	CameraGUID string         `json:"camera_guid"`
}

// SubmitResponse acknowledges a queued job.
type SubmitResponse struct {
	JobID             string `json:"job_id"`
	Camera            string `json:"camera"`
	SnapshotDirectory string `json:"snapshot_directory"`
}

// HistoryResponse lists finished renders, newest first.
type HistoryResponse struct {
	Records []history.Record `json:"records"`
}

// EventsResponse is one page of buffered lifecycle events. Next is the
// cursor to pass as ?since= on the following request.
type EventsResponse struct {
	Events []events.Event `json:"events"`
	Next   uint64         `json:"next"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
