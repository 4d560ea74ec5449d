package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"lapse/internal/config"
	"lapse/internal/imaging"
	"lapse/internal/tokens"
)

// TextFace measures and draws multi-line text.
type TextFace interface {
	MeasureMultiline(text string) (width, height int)
	DrawMultiline(dst draw.Image, x, y int, text string, c color.Color, align string)
}

// FaceLoader opens a font at a pixel size.
type FaceLoader func(path string, size int) (TextFace, error)

// LoadImagingFace is the default FaceLoader backed by OpenType fonts.
func LoadImagingFace(path string, size int) (TextFace, error) {
	face, err := imaging.LoadFace(path, size)
	if err != nil {
		return nil, err
	}
	return face, nil
}

// overlayer stamps per-frame text onto images for one job.
type overlayer struct {
	template *tokens.Template
	face     TextFace
	x, y     int
	valign   string
	halign   string
	align    string
	color    color.NRGBA
}

// newOverlayer returns nil when the profile has no overlay template.
func newOverlayer(r config.Rendering, load FaceLoader) (*overlayer, error) {
	if strings.TrimSpace(r.OverlayTextTemplate) == "" {
		return nil, nil
	}
	tmpl, err := tokens.Parse(r.OverlayTextTemplate)
	if err != nil {
		return nil, newError(KindOverlayTemplate, templateErrorMessage(err), err)
	}
	if err := checkAlignment(r.OverlayTextValign, r.OverlayTextHalign); err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.OverlayFontPath) == "" {
		return nil, newError(KindOverlayFont, "No overlay font was specified when attempting to add overlay", nil)
	}
	if load == nil {
		load = LoadImagingFace
	}
	face, err := load(r.OverlayFontPath, r.OverlayFontSize)
	if err != nil {
		return nil, newError(KindOverlayFont, fmt.Sprintf("Unable to load the overlay font %q", r.OverlayFontPath), err)
	}
	x, y := r.TextPosition()
	return &overlayer{
		template: tmpl,
		face:     face,
		x:        x,
		y:        y,
		valign:   r.OverlayTextValign,
		halign:   r.OverlayTextHalign,
		align:    r.OverlayTextAlignment,
		color:    imaging.RGBA(r.OverlayTextColor),
	}, nil
}

// apply draws the expanded template on a transparent layer and composites it
// over base. The result is opaque.
func (o *overlayer) apply(base image.Image, vars map[string]any) (image.Image, error) {
	text, err := o.template.Execute(vars)
	if err != nil {
		return nil, newError(KindOverlayTemplate, templateErrorMessage(err), err)
	}
	bounds := base.Bounds()
	textW, textH := o.face.MeasureMultiline(text)
	x, y, err := overlayOrigin(o.x, o.y, bounds.Dx(), bounds.Dy(), textW, textH, o.valign, o.halign)
	if err != nil {
		return nil, err
	}
	layer := imaging.NewLayer(bounds)
	o.face.DrawMultiline(layer, bounds.Min.X+x, bounds.Min.Y+y, text, o.color, o.align)
	return imaging.Composite(base, layer), nil
}

// overlayOrigin offsets the configured position so the text block is
// anchored to the requested edge or center of the image.
func overlayOrigin(x, y, imageW, imageH, textW, textH int, valign, halign string) (int, int, error) {
	switch valign {
	case "top":
	case "middle":
		y += imageH/2 - textH/2
	case "bottom":
		y += imageH - textH
	default:
		return 0, 0, newError(KindOverlayTextValign, fmt.Sprintf("An invalid overlay text valign (%s) was specified", valign), nil)
	}
	switch halign {
	case "left":
	case "center":
		x += imageW/2 - textW/2
	case "right":
		x += imageW - textW
	default:
		return 0, 0, newError(KindOverlayTextHalign, fmt.Sprintf("An invalid overlay text halign (%s) was specified", halign), nil)
	}
	return x, y, nil
}

func checkAlignment(valign, halign string) error {
	_, _, err := overlayOrigin(0, 0, 0, 0, 0, 0, valign, halign)
	return err
}

// frameVariables builds the overlay substitution values for one frame.
// first is the capture time of the job's first frame.
func frameVariables(record FrameRecord, first float64) map[string]any {
	return map[string]any{
		OverlaySnapshotNumber: record.SnapshotNumber,
		OverlayFileName:       record.FileName,
		OverlayTimeTaken:      record.TimeTaken,
		OverlayCurrentTime:    unixSeconds(record.TimeTaken).Format("2006-01-02 15:04:05"),
		OverlayTimeElapsed:    formatElapsed(record.TimeTaken - first),
	}
}
