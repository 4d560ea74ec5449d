package render

// Payload is a read-only snapshot of pipeline state handed to listeners at
// each lifecycle transition. Directories keep their trailing separator so the
// path accessors are plain concatenations.
type Payload struct {
	Reason                   string  `json:"reason"`
	ReturnCode               int     `json:"return_code"`
	JobID                    string  `json:"job_id"`
	JobDirectory             string  `json:"job_directory"`
	SnapshotDirectory        string  `json:"snapshot_directory"`
	RenderingDirectory       string  `json:"rendering_directory"`
	RenderingFilename        string  `json:"rendering_filename"`
	RenderingExtension       string  `json:"rendering_extension"`
	SynchronizationDirectory string  `json:"synchronization_directory"`
	SynchronizationFilename  string  `json:"synchronization_filename"`
	Synchronize              bool    `json:"synchronize"`
	SnapshotCount            int     `json:"snapshot_count"`
	SecondsAdded             float64 `json:"seconds_added"`
	JobNumber                int     `json:"job_number"`
	JobsRemaining            int     `json:"jobs_remaining"`
	CameraName               string  `json:"camera_name"`
	BeforeRenderError        *Error  `json:"before_render_error,omitempty"`
	AfterRenderError         *Error  `json:"after_render_error,omitempty"`
}

// RenderingFile returns the rendered file name with its extension.
func (p Payload) RenderingFile() string {
	return p.RenderingFilename + "." + p.RenderingExtension
}

// SynchronizationFile returns the synchronized file name with its extension.
func (p Payload) SynchronizationFile() string {
	return p.SynchronizationFilename + "." + p.RenderingExtension
}

// RenderingPath returns the full path of the rendered video.
func (p Payload) RenderingPath() string {
	return p.RenderingDirectory + p.RenderingFile()
}

// SynchronizationPath returns the full path of the synchronized copy.
func (p Payload) SynchronizationPath() string {
	return p.SynchronizationDirectory + p.SynchronizationFile()
}

// ScriptErrors returns whichever hook script errors were recorded.
func (p Payload) ScriptErrors() []*Error {
	var out []*Error
	if p.BeforeRenderError != nil {
		out = append(out, p.BeforeRenderError)
	}
	if p.AfterRenderError != nil {
		out = append(out, p.AfterRenderError)
	}
	return out
}
