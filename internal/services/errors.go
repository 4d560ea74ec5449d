package services

import (
	"errors"
	"fmt"
	"strings"
)

// Markers classify failures independently of their message. Test for them
// with errors.Is or MarkerOf.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

var markers = []error{ErrValidation, ErrConfiguration, ErrNotFound, ErrTimeout, ErrExternalTool}

// Wrap tags err with marker and prefixes it with "stage: operation: message",
// skipping empty parts. A nil marker means ErrExternalTool; a nil err yields
// a fresh error carrying only the marker.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrExternalTool
	}
	var parts []string
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// MarkerOf returns the first marker err carries, or nil.
func MarkerOf(err error) error {
	for _, m := range markers {
		if errors.Is(err, m) {
			return m
		}
	}
	return nil
}

// IsTimeout reports whether err carries ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
