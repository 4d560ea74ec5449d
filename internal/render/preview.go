package render

import (
	"fmt"
	"image"
	"strings"

	"lapse/internal/config"
	"lapse/internal/imaging"
)

const (
	previewWidth  = 640
	previewHeight = 480
)

// PreviewVariables returns the sample overlay values used for previews.
func PreviewVariables() map[string]any {
	now := clock()
	taken := float64(now.UnixNano()) / 1e9
	return map[string]any{
		OverlaySnapshotNumber: 1234,
		OverlayFileName:       "image.jpg",
		OverlayTimeTaken:      taken,
		OverlayCurrentTime:    unixSeconds(taken).Format("2006-01-02 15:04:05"),
		OverlayTimeElapsed:    formatElapsed(9001),
	}
}

const previewCaptionSize = 50

// PreviewOverlay renders the profile's overlay onto a blank frame filled
// with the inverse of the text color. "Preview" and "Click to refresh" are
// drawn first, centered at a fixed size, so the overlay lands on top of
// them. It returns nil when no font is configured.
func PreviewOverlay(r config.Rendering, load FaceLoader) (image.Image, error) {
	if strings.TrimSpace(r.OverlayFontPath) == "" {
		return nil, nil
	}
	if load == nil {
		load = LoadImagingFace
	}
	textColor := imaging.RGBA(r.OverlayTextColor)
	canvas := imaging.Fill(previewWidth, previewHeight, imaging.Inverse(textColor))

	captionFace, err := load(r.OverlayFontPath, previewCaptionSize)
	if err != nil {
		return nil, newError(KindOverlayFont, fmt.Sprintf("Unable to load the overlay font %q", r.OverlayFontPath), err)
	}
	for _, caption := range []struct {
		text string
		dy   int
	}{{"Preview", -20}, {"Click to refresh", 20}} {
		w, h := captionFace.MeasureMultiline(caption.text)
		x := previewWidth/2 - w/2
		y := previewHeight/2 - h/2 + caption.dy
		captionFace.DrawMultiline(canvas, x, y, caption.text, textColor, imaging.AlignCenter)
	}

	overlay, err := newOverlayer(r, load)
	if err != nil {
		return nil, err
	}
	if overlay == nil {
		return canvas, nil
	}
	return overlay.apply(canvas, PreviewVariables())
}
