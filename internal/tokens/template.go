package tokens

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnknownToken reports a field name that is not part of the vocabulary.
	ErrUnknownToken = errors.New("unknown token")
	// ErrIntegerToken reports positional fields such as {0} or {}.
	ErrIntegerToken = errors.New("integers as tokens are not allowed")
	// ErrMalformed reports unbalanced braces or unsupported field syntax.
	ErrMalformed = errors.New("malformed template")
)

// Template is a parsed substitution template. Literal text is kept verbatim,
// `{{` and `}}` produce single braces, and `{NAME}` or `{NAME:spec}` is
// replaced by the named value.
type Template struct {
	source   string
	segments []segment
}

type segment struct {
	literal string
	field   string
	spec    string
	isField bool
}

// Parse splits a template into literal and field segments.
func Parse(source string) (*Template, error) {
	var (
		segments []segment
		literal  strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(source); i++ {
		ch := source[i]
		switch ch {
		case '{':
			if i+1 < len(source) && source[i+1] == '{' {
				literal.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(source[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated field at offset %d", ErrMalformed, i)
			}
			body := source[i+1 : i+1+end]
			if strings.ContainsRune(body, '{') {
				return nil, fmt.Errorf("%w: nested field at offset %d", ErrMalformed, i)
			}
			seg, err := parseField(body)
			if err != nil {
				return nil, err
			}
			flush()
			segments = append(segments, seg)
			i += end + 1
		case '}':
			if i+1 < len(source) && source[i+1] == '}' {
				literal.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrMalformed, i)
		default:
			literal.WriteByte(ch)
		}
	}
	flush()
	return &Template{source: source, segments: segments}, nil
}

func parseField(body string) (segment, error) {
	name, spec, _ := strings.Cut(body, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return segment{}, ErrIntegerToken
	}
	if _, err := strconv.Atoi(name); err == nil {
		return segment{}, fmt.Errorf("%w: {%s}", ErrIntegerToken, name)
	}
	if strings.ContainsAny(name, "!.[]") {
		return segment{}, fmt.Errorf("%w: unsupported field expression {%s}", ErrMalformed, body)
	}
	return segment{field: name, spec: spec, isField: true}, nil
}

// Fields lists the field names referenced by the template in order of appearance.
func (t *Template) Fields() []string {
	var out []string
	for _, seg := range t.segments {
		if seg.isField {
			out = append(out, seg.field)
		}
	}
	return out
}

// String returns the original template text.
func (t *Template) String() string {
	return t.source
}

// Execute substitutes values into the template. Values may be strings,
// integers, or floats. Every referenced field must be present.
func (t *Template) Execute(values map[string]any) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if !seg.isField {
			b.WriteString(seg.literal)
			continue
		}
		value, ok := values[seg.field]
		if !ok {
			return "", fmt.Errorf("%w: {%s}", ErrUnknownToken, seg.field)
		}
		formatted, err := formatValue(value, seg.spec)
		if err != nil {
			return "", fmt.Errorf("format {%s}: %w", seg.field, err)
		}
		b.WriteString(formatted)
	}
	return b.String(), nil
}

// Validate parses source and executes it against sample values, so unknown
// names and specs that do not fit a value's type fail before real use.
func Validate(source string, samples map[string]any) error {
	tmpl, err := Parse(source)
	if err != nil {
		return err
	}
	_, err = tmpl.Execute(samples)
	return err
}

// Expand parses and executes source in one step.
func Expand(source string, values map[string]any) (string, error) {
	tmpl, err := Parse(source)
	if err != nil {
		return "", err
	}
	return tmpl.Execute(values)
}

func formatValue(value any, spec string) (string, error) {
	switch v := value.(type) {
	case string:
		if spec != "" && spec != "s" {
			return "", fmt.Errorf("%w: spec %q is not valid for text", ErrMalformed, spec)
		}
		return v, nil
	case int:
		return formatInt(int64(v), spec)
	case int64:
		return formatInt(v, spec)
	case float64:
		return formatFloat(v, spec)
	case fmt.Stringer:
		return formatValue(v.String(), spec)
	default:
		return "", fmt.Errorf("%w: unsupported value type %T", ErrMalformed, value)
	}
}

func formatInt(v int64, spec string) (string, error) {
	if spec == "" {
		return strconv.FormatInt(v, 10), nil
	}
	width, zero, err := parseIntSpec(spec)
	if err != nil {
		if precision, ferr := parseFloatSpec(spec); ferr == nil {
			return strconv.FormatFloat(float64(v), 'f', precision, 64), nil
		}
		return "", err
	}
	digits := strconv.FormatInt(v, 10)
	if len(digits) >= width {
		return digits, nil
	}
	pad := " "
	if zero {
		pad = "0"
	}
	if zero && v < 0 {
		return "-" + strings.Repeat(pad, width-len(digits)) + digits[1:], nil
	}
	return strings.Repeat(pad, width-len(digits)) + digits, nil
}

func formatFloat(v float64, spec string) (string, error) {
	switch spec {
	case "":
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'f', 1, 64), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case "f":
		return strconv.FormatFloat(v, 'f', 6, 64), nil
	}
	precision, err := parseFloatSpec(spec)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(v, 'f', precision, 64), nil
}

// parseIntSpec accepts "d", "Nd" and "0Nd".
func parseIntSpec(spec string) (int, bool, error) {
	if !strings.HasSuffix(spec, "d") {
		return 0, false, fmt.Errorf("%w: unsupported integer spec %q", ErrMalformed, spec)
	}
	body := strings.TrimSuffix(spec, "d")
	if body == "" {
		return 0, false, nil
	}
	zero := strings.HasPrefix(body, "0")
	width, err := strconv.Atoi(body)
	if err != nil || width < 0 {
		return 0, false, fmt.Errorf("%w: unsupported integer spec %q", ErrMalformed, spec)
	}
	return width, zero, nil
}

// parseFloatSpec accepts ".Nf".
func parseFloatSpec(spec string) (int, error) {
	if !strings.HasPrefix(spec, ".") || !strings.HasSuffix(spec, "f") {
		return 0, fmt.Errorf("%w: unsupported float spec %q", ErrMalformed, spec)
	}
	precision, err := strconv.Atoi(spec[1 : len(spec)-1])
	if err != nil || precision < 0 {
		return 0, fmt.Errorf("%w: unsupported float spec %q", ErrMalformed, spec)
	}
	return precision, nil
}
