package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"lapse/internal/config"
	"lapse/internal/render"
)

// SnapshotDir returns where frames for jobGUID and cameraGUID are expected
// under cfg's data directory.
func SnapshotDir(cfg *config.Config, jobGUID, cameraGUID string) string {
	return filepath.Join(cfg.Paths.DataDir, "snapshots", jobGUID, cameraGUID)
}

// WriteFrames writes count small decodable JPEG frames into dir, named with
// the snapshot filename format. Each frame gets a slightly different shade.
func WriteFrames(t testing.TB, dir string, count int) {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for i := 0; i < count; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		shade := uint8(i * 16 % 256)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.Set(x, y, color.RGBA{R: shade, G: 128, B: 255 - shade, A: 255})
			}
		}
		path := filepath.Join(dir, fmt.Sprintf(render.SnapshotFilenameFormat, i))
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("create frame %s: %v", path, err)
		}
		if err := jpeg.Encode(f, img, nil); err != nil {
			f.Close()
			t.Fatalf("encode frame %s: %v", path, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("close frame %s: %v", path, err)
		}
	}
}
