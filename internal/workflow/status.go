package workflow

// StatusSummary is a point-in-time view of the processor.
type StatusSummary struct {
	Running       bool   `json:"running"`
	Processing    bool   `json:"processing"`
	QueueDepth    int    `json:"queue_depth"`
	Unfinished    int    `json:"unfinished"`
	CompletedJobs int    `json:"completed_jobs"`
	LastJobID     string `json:"last_job_id,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}

// Status returns the latest processor information.
func (p *Processor) Status() StatusSummary {
	p.mu.RLock()
	summary := StatusSummary{
		Running:       p.running,
		Processing:    p.processing,
		CompletedJobs: p.completed,
		LastJobID:     p.lastJobID,
	}
	if p.lastErr != nil {
		summary.LastError = p.lastErr.Error()
	}
	p.mu.RUnlock()

	summary.QueueDepth = p.queue.Len()
	summary.Unfinished = p.queue.Unfinished()
	return summary
}
