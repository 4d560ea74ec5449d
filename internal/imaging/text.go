package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Line alignment values accepted by DrawMultiline.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

var parsedFonts sync.Map // path -> *opentype.Font

// Face is a sized OpenType face able to lay out multi-line text.
type Face struct {
	face       font.Face
	ascent     int
	lineHeight int
}

// LoadFace parses the font file at path (cached per path) and returns a face
// at the requested pixel size.
func LoadFace(path string, size int) (*Face, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("load font: empty path")
	}
	var parsed *opentype.Font
	if cached, ok := parsedFonts.Load(path); ok {
		parsed = cached.(*opentype.Font)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %q: %w", path, err)
		}
		parsed, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %q: %w", path, err)
		}
		parsedFonts.Store(path, parsed)
	}
	return newFace(parsed, size)
}

// ParseFace builds a face from in-memory font data.
func ParseFace(data []byte, size int) (*Face, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return newFace(parsed, size)
}

func newFace(parsed *opentype.Font, size int) (*Face, error) {
	if size <= 0 {
		size = 10
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	metrics := face.Metrics()
	return &Face{
		face:       face,
		ascent:     metrics.Ascent.Ceil(),
		lineHeight: metrics.Height.Ceil(),
	}, nil
}

// MeasureMultiline returns the pixel extent of text split on newlines with no
// extra line spacing.
func (f *Face) MeasureMultiline(text string) (int, int) {
	lines := strings.Split(text, "\n")
	width := 0
	for _, line := range lines {
		if w := font.MeasureString(f.face, line).Ceil(); w > width {
			width = w
		}
	}
	return width, len(lines) * f.lineHeight
}

// DrawMultiline draws text with its bounding box's top-left corner at (x, y).
// Each line is aligned within the block according to align.
func (f *Face) DrawMultiline(dst draw.Image, x, y int, text string, c color.Color, align string) {
	blockWidth, _ := f.MeasureMultiline(text)
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: f.face,
	}
	for i, line := range strings.Split(text, "\n") {
		lineX := x
		switch align {
		case AlignCenter:
			lineX += (blockWidth - font.MeasureString(f.face, line).Ceil()) / 2
		case AlignRight:
			lineX += blockWidth - font.MeasureString(f.face, line).Ceil()
		}
		drawer.Dot = fixed.P(lineX, y+f.ascent+i*f.lineHeight)
		drawer.DrawString(line)
	}
}
