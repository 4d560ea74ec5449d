package testsupport

import (
	"testing"

	"lapse/internal/config"
	"lapse/internal/queue"
	"lapse/internal/render"
)

// MustEnqueue builds a completed-print descriptor for jobGUID and appends it
// to q.
func MustEnqueue(t testing.TB, cfg *config.Config, q *queue.Queue, jobGUID, cameraGUID string) *render.Descriptor {
	t.Helper()

	camera, ok := cfg.Camera(cameraGUID)
	if !ok {
		camera = config.Camera{GUID: cameraGUID}
	}
	info := render.JobInfo{
		JobGUID:        jobGUID,
		PrintFileName:  jobGUID + ".gcode",
		PrintStartTime: 1700000000,
		PrintEndTime:   1700003600,
		PrintEndState:  render.PrintStateCompleted,
	}
	desc, err := render.NewDescriptor(info, cfg.Paths.DataDir, camera, cfg.Rendering, cfg.FFmpeg.Binary)
	if err != nil {
		t.Fatalf("render.NewDescriptor: %v", err)
	}
	if err := q.Enqueue(desc); err != nil {
		t.Fatalf("queue.Enqueue: %v", err)
	}
	return desc
}
