package render

import (
	"math"

	"lapse/internal/config"
)

// computeFPS returns the frame rate for frameCount frames. Duration mode
// divides by the target run length, rounds to the nearest 0.001 and clamps
// into [MinFPS, MaxFPS]; static mode uses the configured rate verbatim.
func computeFPS(r config.Rendering, frameCount int) float64 {
	if r.FPSCalculationType != config.FPSDuration {
		return r.FPS
	}
	if r.RunLengthSeconds <= 0 {
		return r.MinFPS
	}
	fps := roundTo(float64(frameCount)/r.RunLengthSeconds, 0.001)
	switch {
	case fps > r.MaxFPS:
		fps = r.MaxFPS
	case fps < r.MinFPS:
		fps = r.MinFPS
	}
	return fps
}

func roundTo(value, step float64) float64 {
	return math.Round(value/step) * step
}
