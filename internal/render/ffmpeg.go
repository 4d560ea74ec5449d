package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	defaultPixelFormat = "yuv420p"
	watermarkMargin    = 10
)

// EncoderCommand is a fully built ffmpeg invocation.
type EncoderCommand struct {
	Binary string
	Args   []string
	goos   string
}

type encoderOptions struct {
	Binary       string
	FPS          float64
	InputPattern string
	Output       string
	Threads      int
	Bitrate      string
	Format       string
	Watermark    string
	PixelFormat  string
}

// buildEncoderCommand assembles the ffmpeg arguments for goos. An empty
// watermark disables the overlay filter.
func buildEncoderCommand(opts encoderOptions, goos string) EncoderCommand {
	fps := formatRate(opts.FPS)
	threads := opts.Threads
	if threads <= 0 {
		threads = 1
	}
	args := []string{
		"-framerate", fps,
		"-loglevel", "error",
		"-i", opts.InputPattern,
		"-threads", strconv.Itoa(threads),
		"-r", fps,
		"-y",
		"-b", opts.Bitrate,
		"-vcodec", CodecForFormat(opts.Format),
	}
	watermark := opts.Watermark
	if watermark != "" && goos == "windows" {
		watermark = escapeWindowsFilterPath(watermark)
	}
	if filter := buildFilterString(watermark, opts.PixelFormat); filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args, opts.Output)
	return EncoderCommand{Binary: strings.TrimSpace(opts.Binary), Args: args, goos: goos}
}

// buildFilterString chains a pixel format stage and an optional watermark
// overlay anchored bottom-left. Stage labels run f0, f1, ... and the last
// stage writes [out].
func buildFilterString(watermark, pixelFormat string) string {
	if pixelFormat == "" {
		pixelFormat = defaultPixelFormat
	}
	count := 1
	if watermark != "" {
		count = 2
	}
	label := func(i int) string {
		if i == count {
			return "out"
		}
		return fmt.Sprintf("f%d", i)
	}
	stages := []string{fmt.Sprintf("[%s] format=%s [%s]", label(0), pixelFormat, label(1))}
	if watermark != "" {
		stages = append(stages, fmt.Sprintf(
			"movie=%s [wm]; [%s][wm] overlay=%d:main_h-overlay_h-%d [%s]",
			watermark, label(1), watermarkMargin, watermarkMargin, label(2),
		))
	}
	return strings.Join(stages, "; ")
}

// escapeWindowsFilterPath rewrites a path for ffmpeg's filter parser, which
// chokes on drive letters and backslashes.
func escapeWindowsFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	return strings.ReplaceAll(path, ":", `\\:`)
}

// ExecBinary returns the binary path with any surrounding quotes removed.
func (c EncoderCommand) ExecBinary() string {
	return strings.Trim(c.Binary, `"`)
}

// String renders the command as a single shell line for logs. On Windows
// the binary is wrapped in double quotes unless it already is.
func (c EncoderCommand) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	binary := c.Binary
	if c.goos == "windows" {
		if !(strings.HasPrefix(binary, `"`) && strings.HasSuffix(binary, `"`)) {
			binary = `"` + binary + `"`
		}
	} else {
		binary = shellQuote(binary)
	}
	parts = append(parts, binary)
	for _, arg := range c.Args {
		if c.goos == "windows" {
			if strings.ContainsAny(arg, " \t;") {
				arg = `"` + arg + `"`
			}
		} else {
			arg = shellQuote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`;&|<>()[]*?!#~%") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// formatRate prints whole rates with a trailing ".0" and anything else with
// the shortest round-trip representation.
func formatRate(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
