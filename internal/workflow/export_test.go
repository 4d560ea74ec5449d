package workflow

// SetProcessing forces the processing flag, as a job that ended without
// clearing it would leave it.
func (p *Processor) SetProcessing(v bool) { p.setProcessing(v) }
