package logging

import (
	"log/slog"
	"runtime"
)

func sourceOf(record slog.Record) *runtime.Frame {
	frames := runtime.CallersFrames([]uintptr{record.PC})
	frame, _ := frames.Next()
	if frame.File == "" {
		return nil
	}
	return &frame
}
