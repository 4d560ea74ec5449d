package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

const jpegQuality = 90

// NewLayer returns a fully transparent layer matching bounds.
func NewLayer(bounds image.Rectangle) *image.RGBA {
	return image.NewRGBA(bounds)
}

// Fill returns an opaque image of the given size painted with c.
func Fill(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// Composite alpha-blends layer over base and flattens the result onto an
// opaque background so the output carries no transparency.
func Composite(base image.Image, layer image.Image) *image.RGBA {
	bounds := base.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(out, bounds, base, bounds.Min, draw.Over)
	if layer != nil {
		draw.Draw(out, bounds, layer, bounds.Min, draw.Over)
	}
	return out
}

// Decode reads a JPEG or PNG image from disk.
func Decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return img, nil
}

// Encode writes img to path, choosing PNG for a .png extension and JPEG
// otherwise.
func Encode(path string, img image.Image) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".png") {
		err = png.Encode(file, img)
	} else {
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("encode %q: %w", path, err)
	}
	return file.Close()
}

// RGBA converts a 4-channel slice into a color, treating missing channels as
// opaque white.
func RGBA(channels []int) color.NRGBA {
	c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if len(channels) > 0 {
		c.R = clamp8(channels[0])
	}
	if len(channels) > 1 {
		c.G = clamp8(channels[1])
	}
	if len(channels) > 2 {
		c.B = clamp8(channels[2])
	}
	if len(channels) > 3 {
		c.A = clamp8(channels[3])
	}
	return c
}

// Inverse returns the RGB inverse of c with full opacity.
func Inverse(c color.NRGBA) color.NRGBA {
	return color.NRGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: 255}
}

func clamp8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
