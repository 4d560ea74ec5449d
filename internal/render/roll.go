package render

import (
	"fmt"
	"os"
	"path/filepath"

	"lapse/internal/fileutil"
)

// rollFrames converts a roll duration into a whole number of frames.
func rollFrames(seconds, fps float64) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	return int(seconds * fps)
}

// applyPrePostRoll pads the frame sequence in dir. Pre-roll shifts every
// frame up by pre positions, last to first so nothing is overwritten, then
// fills 0..pre-1 with copies of the original first frame. Post-roll copies
// the final frame (computed after pre-roll) into the next post positions.
func applyPrePostRoll(dir, format string, frameCount, pre, post int) error {
	frame := func(index int) string {
		return filepath.Join(dir, fmt.Sprintf(format, index))
	}

	if pre > 0 && frameCount > 0 {
		for index := frameCount - 1; index >= 0; index-- {
			if err := os.Rename(frame(index), frame(index+pre)); err != nil {
				return fmt.Errorf("shift frame %d: %w", index, err)
			}
		}
		first := frame(pre)
		for index := 0; index < pre; index++ {
			if err := fileutil.CopyFile(first, frame(index)); err != nil {
				return fmt.Errorf("pre-roll frame %d: %w", index, err)
			}
		}
	}

	if post > 0 && frameCount > 0 {
		lastIndex := frameCount + pre - 1
		last := frame(lastIndex)
		for offset := 1; offset <= post; offset++ {
			if err := fileutil.CopyFile(last, frame(lastIndex+offset)); err != nil {
				return fmt.Errorf("post-roll frame %d: %w", lastIndex+offset, err)
			}
		}
	}
	return nil
}
