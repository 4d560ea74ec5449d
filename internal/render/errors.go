package render

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of a render failure.
type Kind string

const (
	KindInsufficientImages   Kind = "insufficient-images"
	KindFFmpegPath           Kind = "ffmpeg_path"
	KindNoBitrate            Kind = "no-bitrate"
	KindCreateRenderPath     Kind = "create-render-path"
	KindWatermarkPath        Kind = "watermark-path"
	KindWatermarkNonExistent Kind = "watermark-non-existent"
	KindRenderingException   Kind = "rendering-exception"
	KindReturnCode           Kind = "return-code"
	KindSynchronizing        Kind = "synchronizing-exception"
	KindBeforeRenderScript   Kind = "before_render_script_error"
	KindAfterRenderScript    Kind = "after_render_script_error"
	KindOverlayFont          Kind = "overlay-font"
	KindOverlayTextValign    Kind = "overlay-text-valign"
	KindOverlayTextHalign    Kind = "overlay-text-halign"
	KindOverlayTemplate      Kind = "overlay-text-template"
	KindOutputTemplate       Kind = "output-template"
	KindRenderError          Kind = "render-error"
)

// Error is the terminal failure of a render job.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s.  Inner Exception: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// MarshalJSON flattens the cause to its message for event streams.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind    Kind   `json:"kind"`
		Message string `json:"message"`
		Cause   string `json:"cause,omitempty"`
	}{Kind: e.Kind, Message: e.Message}
	if e.Cause != nil {
		out.Cause = e.Cause.Error()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores an error written by MarshalJSON. The cause comes
// back as plain text.
func (e *Error) UnmarshalJSON(data []byte) error {
	var in struct {
		Kind    Kind   `json:"kind"`
		Message string `json:"message"`
		Cause   string `json:"cause"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.Kind, e.Message, e.Cause = in.Kind, in.Message, nil
	if in.Cause != "" {
		e.Cause = errors.New(in.Cause)
	}
	return nil
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// AsError normalizes err into a render error, keeping the kind of an existing
// *Error and wrapping anything else as KindRenderError.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var renderErr *Error
	if errors.As(err, &renderErr) {
		return renderErr
	}
	return newError(KindRenderError, "Unknown render error. Check the lapse log for more details", err)
}

// KindOf returns the kind carried by err, or an empty kind.
func KindOf(err error) Kind {
	var renderErr *Error
	if errors.As(err, &renderErr) {
		return renderErr.Kind
	}
	return ""
}
