package render

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"lapse/internal/config"
	"lapse/internal/tokens"
)

const tokenTimeLayout = "20060102150405"

// Output token names available to rendering.output_template.
const (
	TokenFailedFlag          = "FAILEDFLAG"
	TokenFailedSeparator     = "FAILEDSEPARATOR"
	TokenFailedState         = "FAILEDSTATE"
	TokenPrintState          = "PRINTSTATE"
	TokenGcodeFileName       = "GCODEFILENAME"
	TokenPrintEndTime        = "PRINTENDTIME"
	TokenPrintEndTimestamp   = "PRINTENDTIMESTAMP"
	TokenPrintStartTime      = "PRINTSTARTTIME"
	TokenPrintStartTimestamp = "PRINTSTARTTIMESTAMP"
	TokenDateTimestamp       = "DATETIMESTAMP"
	TokenDataDirectory       = "DATADIRECTORY"
	TokenTimeAdded           = "TIMEADDED"
	TokenSnapshotCount       = "SNAPSHOTCOUNT"
	TokenFPS                 = "FPS"
)

// Overlay variable names available to rendering.overlay_text_template.
const (
	OverlaySnapshotNumber = "snapshot_number"
	OverlayFileName       = "file_name"
	OverlayTimeTaken      = "time_taken_s"
	OverlayCurrentTime    = "current_time"
	OverlayTimeElapsed    = "time_elapsed"
)

// OutputTokenNames lists every output token in display order.
var OutputTokenNames = []string{
	TokenFailedFlag, TokenFailedSeparator, TokenFailedState, TokenPrintState,
	TokenGcodeFileName, TokenPrintEndTime, TokenPrintEndTimestamp,
	TokenPrintStartTime, TokenPrintStartTimestamp, TokenDateTimestamp,
	TokenDataDirectory, TokenTimeAdded, TokenSnapshotCount, TokenFPS,
}

// OverlayVariableNames lists every overlay variable.
var OverlayVariableNames = []string{
	OverlaySnapshotNumber, OverlayFileName, OverlayTimeTaken, OverlayCurrentTime, OverlayTimeElapsed,
}

// OutputTokens is the closed set of values available to the output filename
// template. SnapshotCount and FPS are zero until the pipeline fills them.
type OutputTokens struct {
	FailedFlag          string
	FailedSeparator     string
	FailedState         string
	PrintState          string
	GcodeFileName       string
	PrintEndTime        string
	PrintEndTimestamp   string
	PrintStartTime      string
	PrintStartTimestamp string
	DateTimestamp       string
	DataDirectory       string
	TimeAdded           string
	SnapshotCount       int
	FPS                 int
}

func newOutputTokens(info JobInfo, dataDir string, now time.Time) OutputTokens {
	t := OutputTokens{
		PrintState:          info.PrintEndState,
		GcodeFileName:       info.PrintFileName,
		PrintEndTime:        unixSeconds(info.PrintEndTime).Format(tokenTimeLayout),
		PrintEndTimestamp:   centiseconds(info.PrintEndTime),
		PrintStartTime:      unixSeconds(info.PrintStartTime).Format(tokenTimeLayout),
		PrintStartTimestamp: centiseconds(info.PrintStartTime),
		DateTimestamp:       centiseconds(float64(now.UnixNano()) / float64(time.Second)),
		DataDirectory:       dataDir,
		TimeAdded:           fmt.Sprintf("%d", int64(math.Round(info.SecondsAdded))),
	}
	if info.Failed() {
		t.FailedFlag = "FAILED"
		t.FailedSeparator = "_"
		t.FailedState = info.PrintEndState
	}
	return t
}

// WithSnapshotCount returns a copy carrying the discovered frame count.
func (t OutputTokens) WithSnapshotCount(count int) OutputTokens {
	t.SnapshotCount = count
	return t
}

// WithFPS returns a copy carrying the ceiling of fps.
func (t OutputTokens) WithFPS(fps float64) OutputTokens {
	t.FPS = int(math.Ceil(fps))
	return t
}

// Values exposes the tokens to the template engine.
func (t OutputTokens) Values() map[string]any {
	return map[string]any{
		TokenFailedFlag:          t.FailedFlag,
		TokenFailedSeparator:     t.FailedSeparator,
		TokenFailedState:         t.FailedState,
		TokenPrintState:          t.PrintState,
		TokenGcodeFileName:       t.GcodeFileName,
		TokenPrintEndTime:        t.PrintEndTime,
		TokenPrintEndTimestamp:   t.PrintEndTimestamp,
		TokenPrintStartTime:      t.PrintStartTime,
		TokenPrintStartTimestamp: t.PrintStartTimestamp,
		TokenDateTimestamp:       t.DateTimestamp,
		TokenDataDirectory:       t.DataDirectory,
		TokenTimeAdded:           t.TimeAdded,
		TokenSnapshotCount:       t.SnapshotCount,
		TokenFPS:                 t.FPS,
	}
}

func sampleOutputValues() map[string]any {
	values := make(map[string]any, len(OutputTokenNames))
	for _, name := range OutputTokenNames {
		values[name] = "F"
	}
	values[TokenSnapshotCount] = 1
	values[TokenFPS] = 1
	return values
}

func sampleOverlayValues() map[string]any {
	return map[string]any{
		OverlaySnapshotNumber: 1,
		OverlayFileName:       "F",
		OverlayTimeTaken:      1.0,
		OverlayCurrentTime:    "F",
		OverlayTimeElapsed:    "F",
	}
}

// ValidateOutputTemplate checks a filename template against the output token
// vocabulary and makes sure the result is usable as a single path element.
func ValidateOutputTemplate(template string) error {
	if err := tokens.Validate(template, sampleOutputValues()); err != nil {
		return newError(KindOutputTemplate, templateErrorMessage(err), err)
	}
	name, _ := tokens.Expand(template, sampleOutputValues())
	if !validFileName(name) {
		return newError(KindOutputTemplate, "The resulting filename is not a valid filename. Most likely an invalid character was used", nil)
	}
	return nil
}

// ValidateOverlayTemplate checks an overlay text template against the
// per-frame variable vocabulary.
func ValidateOverlayTemplate(template string) error {
	if err := tokens.Validate(template, sampleOverlayValues()); err != nil {
		return newError(KindOverlayTemplate, templateErrorMessage(err), err)
	}
	return nil
}

// ValidateTemplates runs both template pre-flight checks for a profile.
func ValidateTemplates(r config.Rendering) error {
	if err := ValidateOutputTemplate(r.OutputTemplate); err != nil {
		return err
	}
	return ValidateOverlayTemplate(r.OverlayTextTemplate)
}

func templateErrorMessage(err error) string {
	switch {
	case errors.Is(err, tokens.ErrUnknownToken):
		_, detail, _ := strings.Cut(err.Error(), ": ")
		return fmt.Sprintf("The following token is invalid: %s", detail)
	case errors.Is(err, tokens.ErrIntegerToken):
		return "Integers as tokens are not allowed"
	default:
		return "A value error occurred when replacing the provided tokens"
	}
}

func validFileName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\x00") || strings.ContainsRune(name, os.PathSeparator) {
		return false
	}
	return true
}

func unixSeconds(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).Local()
}

func centiseconds(seconds float64) string {
	return fmt.Sprintf("%d", int64(math.Round(seconds*100)))
}

// formatElapsed renders a duration as H:MM:SS, prefixed with a day count
// once it reaches a full day.
func formatElapsed(seconds float64) string {
	total := int64(math.Round(seconds))
	negative := total < 0
	if negative {
		total = -total
	}
	days := total / 86400
	rest := total % 86400
	text := fmt.Sprintf("%d:%02d:%02d", rest/3600, (rest%3600)/60, rest%60)
	if days > 0 {
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		text = fmt.Sprintf("%d %s, %s", days, unit, text)
	}
	if negative {
		text = "-" + text
	}
	return text
}
