package tokens_test

import (
	"errors"
	"reflect"
	"testing"

	"lapse/internal/tokens"
)

func TestExpand(t *testing.T) {
	values := map[string]any{
		"GCODEFILENAME":   "benchy",
		"FAILEDFLAG":      "",
		"snapshot_number": 7,
		"time_taken_s":    12.5,
		"whole":           3.0,
	}
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain", "{GCODEFILENAME}_render", "benchy_render"},
		{"empty value", "{FAILEDFLAG}{GCODEFILENAME}", "benchy"},
		{"escaped braces", "{{{GCODEFILENAME}}}", "{benchy}"},
		{"zero padded", "frame {snapshot_number:04d}", "frame 0007"},
		{"space padded", "[{snapshot_number:3d}]", "[  7]"},
		{"float default", "{time_taken_s}", "12.5"},
		{"float whole", "{whole}", "3.0"},
		{"float precision", "{time_taken_s:.2f}", "12.50"},
		{"multiline", "Layer {snapshot_number}\nDone", "Layer 7\nDone"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tokens.Expand(tc.template, values)
			if err != nil {
				t.Fatalf("Expand returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Expand(%q) = %q, want %q", tc.template, got, tc.want)
			}
		})
	}
}

func TestExpandErrors(t *testing.T) {
	values := map[string]any{"NAME": "x", "COUNT": 3}
	tests := []struct {
		template string
		want     error
	}{
		{"{MISSING}", tokens.ErrUnknownToken},
		{"{0}", tokens.ErrIntegerToken},
		{"{}", tokens.ErrIntegerToken},
		{"{NAME", tokens.ErrMalformed},
		{"NAME}", tokens.ErrMalformed},
		{"{NAME!r}", tokens.ErrMalformed},
		{"{NAME:05d}", tokens.ErrMalformed},
		{"{COUNT:x}", tokens.ErrMalformed},
	}
	for _, tc := range tests {
		t.Run(tc.template, func(t *testing.T) {
			_, err := tokens.Expand(tc.template, values)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Expand(%q) error = %v, want %v", tc.template, err, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	names := map[string]any{"GCODEFILENAME": "F", "FPS": 1}
	if err := tokens.Validate("{GCODEFILENAME}_{FPS:03d}fps", names); err != nil {
		t.Fatalf("expected template to validate: %v", err)
	}
	if err := tokens.Validate("{PRINTER}", names); !errors.Is(err, tokens.ErrUnknownToken) {
		t.Fatalf("expected unknown token error, got %v", err)
	}
	if err := tokens.Validate("{1}", names); !errors.Is(err, tokens.ErrIntegerToken) {
		t.Fatalf("expected integer token error, got %v", err)
	}
	if err := tokens.Validate("{FPS:q}", names); !errors.Is(err, tokens.ErrMalformed) {
		t.Fatalf("expected malformed spec error, got %v", err)
	}
	if err := tokens.Validate("{GCODEFILENAME:03d}", names); !errors.Is(err, tokens.ErrMalformed) {
		t.Fatalf("expected integer spec on text to fail, got %v", err)
	}
}

func TestFields(t *testing.T) {
	tmpl, err := tokens.Parse("{A}-{{literal}}-{B:d}{A}")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got, want := tmpl.Fields(), []string{"A", "B", "A"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
	if tmpl.String() != "{A}-{{literal}}-{B:d}{A}" {
		t.Fatalf("unexpected source %q", tmpl.String())
	}
}
