package api

import (
	"lapse/internal/deps"
	"lapse/internal/queue"
	"lapse/internal/workflow"
)

// FromStatusSummary converts processor state and the pending queue snapshot.
func FromStatusSummary(summary workflow.StatusSummary, pending []queue.Entry) WorkflowStatus {
	out := WorkflowStatus{
		Running:       summary.Running,
		Processing:    summary.Processing,
		QueueDepth:    summary.QueueDepth,
		Unfinished:    summary.Unfinished,
		CompletedJobs: summary.CompletedJobs,
		LastJobID:     summary.LastJobID,
		LastError:     summary.LastError,
		Pending:       make([]PendingJob, 0, len(pending)),
	}
	for _, entry := range pending {
		if entry.Descriptor == nil {
			continue
		}
		out.Pending = append(out.Pending, PendingJob{
			JobID:         entry.Descriptor.JobID,
			Camera:        entry.Descriptor.Camera.Name,
			PrintFileName: entry.Descriptor.Info.PrintFileName,
			EnqueuedAt:    entry.EnqueuedAt.UTC(),
		})
	}
	return out
}

// FromDependencies converts dependency checks to their wire form.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}
