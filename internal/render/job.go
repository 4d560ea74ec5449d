package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"lapse/internal/config"
	"lapse/internal/services"
)

const (
	// SnapshotFilenameFormat names frames inside a camera's snapshot directory.
	// The single integer verb is the zero-based frame index and is also the
	// input pattern handed to ffmpeg.
	SnapshotFilenameFormat = "snapshot_%06d.jpg"
	// MetadataFileName is the optional per-frame record file beside the frames.
	MetadataFileName = "metadata.csv"
	// PrintStateCompleted marks a job whose print finished normally.
	PrintStateCompleted = "COMPLETED"
)

// JobInfo is the print metadata a render request starts from. Times are Unix
// seconds.
type JobInfo struct {
	JobGUID        string  `json:"job_guid"`
	PrintFileName  string  `json:"print_file_name"`
	PrintStartTime float64 `json:"print_start_time"`
	PrintEndTime   float64 `json:"print_end_time"`
	PrintEndState  string  `json:"print_end_state"`
	SecondsAdded   float64 `json:"seconds_added"`
}

// Failed reports whether the print ended in any state other than completed.
func (j JobInfo) Failed() bool {
	return j.PrintEndState != PrintStateCompleted
}

// Descriptor describes one render request. It is built once at submission
// and never modified afterwards; per-dequeue values travel separately in a
// DequeueContext.
type Descriptor struct {
	Info           JobInfo
	JobID          string
	Camera         config.Camera
	DataDir        string
	JobDir         string
	SnapshotDir    string
	SnapshotFormat string
	Rendering      config.Rendering
	FFmpegPath     string
	Tokens         OutputTokens
	SubmittedAt    time.Time
}

// DequeueContext carries the values the processor stamps on a job when it
// leaves the queue.
type DequeueContext struct {
	JobNumber     int
	JobsRemaining int
}

// NewDescriptor snapshots the rendering profile and derives the output
// tokens for a job. Both templates are checked up front so a bad template is
// rejected at submission rather than during the render.
func NewDescriptor(info JobInfo, dataDir string, camera config.Camera, rendering config.Rendering, ffmpegPath string) (*Descriptor, error) {
	info.JobGUID = strings.TrimSpace(info.JobGUID)
	if info.JobGUID == "" {
		return nil, services.Wrap(services.ErrValidation, "render", "new descriptor", "job guid is required", nil)
	}
	if strings.ContainsAny(info.JobGUID, `/\`) || info.JobGUID == "." || info.JobGUID == ".." {
		return nil, services.Wrap(services.ErrValidation, "render", "new descriptor", fmt.Sprintf("job guid %q is not a valid directory name", info.JobGUID), nil)
	}
	camera.GUID = strings.TrimSpace(camera.GUID)
	if camera.GUID == "" {
		return nil, services.Wrap(services.ErrValidation, "render", "new descriptor", "camera guid is required", nil)
	}
	if strings.TrimSpace(camera.Name) == "" {
		camera.Name = camera.GUID
	}
	if strings.TrimSpace(dataDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "render", "new descriptor", "data directory is required", nil)
	}

	snapshot := rendering.Clone()
	if err := ValidateTemplates(snapshot); err != nil {
		return nil, err
	}

	now := clock()
	jobDir := filepath.Join(dataDir, "snapshots", info.JobGUID)
	return &Descriptor{
		Info:           info,
		JobID:          info.JobGUID,
		Camera:         camera,
		DataDir:        dataDir,
		JobDir:         jobDir,
		SnapshotDir:    filepath.Join(jobDir, camera.GUID),
		SnapshotFormat: SnapshotFilenameFormat,
		Rendering:      snapshot,
		FFmpegPath:     ffmpegPath,
		Tokens:         newOutputTokens(info, dataDir, now),
		SubmittedAt:    now,
	}, nil
}

// FramePath returns the source path of frame index within the snapshot directory.
func (d *Descriptor) FramePath(index int) string {
	return filepath.Join(d.SnapshotDir, fmt.Sprintf(d.SnapshotFormat, index))
}

// FramePattern returns the snapshot directory joined with the unexpanded
// filename format.
func (d *Descriptor) FramePattern() string {
	return filepath.Join(d.SnapshotDir, d.SnapshotFormat)
}
