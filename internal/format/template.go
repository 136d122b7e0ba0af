package format

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"cmdrunner/internal/errors"
)

// Placeholder indexes and alignments must stay below this limit.
const maxPlaceholderValue = 1000000

// Template is a parsed composite format string. Placeholders have the form
// {index[,alignment][:spec]}; "{{" and "}}" stand for literal braces.
type Template struct {
	source   string
	segments []segment
	maxIndex int
}

type segment struct {
	literal string
	hole    bool
	index   int
	align   int
	spec    string
	calls   []boundCall
}

// Parse parses a template without interpreting placeholder specs. Rendering
// a template from Parse substitutes the captures positionally and ignores
// any spec text.
func Parse(source string) (*Template, error) {
	t := &Template{source: source, maxIndex: -1}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(source); {
		c := source[i]
		switch {
		case c == '{' && i+1 < len(source) && source[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(source) && source[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '}':
			return nil, formatError(source, i, "unmatched '}'")
		case c == '{':
			seg, next, err := parseHole(source, i)
			if err != nil {
				return nil, err
			}
			flush()
			t.segments = append(t.segments, seg)
			if seg.index > t.maxIndex {
				t.maxIndex = seg.index
			}
			i = next
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return t, nil
}

// parseHole parses a placeholder starting at the '{' at start and returns the
// index just past its closing '}'.
func parseHole(source string, start int) (segment, int, error) {
	i := start + 1
	skipSpaces := func() {
		for i < len(source) && source[i] == ' ' {
			i++
		}
	}

	digitsStart := i
	for i < len(source) && isDigit(source[i]) {
		i++
	}
	if i == digitsStart {
		return segment{}, 0, formatError(source, start, "placeholder must start with an index")
	}
	index, err := strconv.Atoi(source[digitsStart:i])
	if err != nil || index >= maxPlaceholderValue {
		return segment{}, 0, formatError(source, start, "index out of range")
	}
	seg := segment{hole: true, index: index}
	skipSpaces()

	if i < len(source) && source[i] == ',' {
		i++
		skipSpaces()
		neg := false
		if i < len(source) && source[i] == '-' {
			neg = true
			i++
		}
		alignStart := i
		for i < len(source) && isDigit(source[i]) {
			i++
		}
		if i == alignStart {
			return segment{}, 0, formatError(source, start, "alignment must be a number")
		}
		align, err := strconv.Atoi(source[alignStart:i])
		if err != nil || align >= maxPlaceholderValue {
			return segment{}, 0, formatError(source, start, "alignment out of range")
		}
		if neg {
			align = -align
		}
		seg.align = align
		skipSpaces()
	}

	if i < len(source) && source[i] == ':' {
		i++
		var spec strings.Builder
		for {
			if i >= len(source) {
				return segment{}, 0, formatError(source, start, "unterminated placeholder")
			}
			c := source[i]
			if c == '}' {
				if i+1 < len(source) && source[i+1] == '}' {
					spec.WriteByte('}')
					i += 2
					continue
				}
				break
			}
			if c == '{' {
				if i+1 < len(source) && source[i+1] == '{' {
					spec.WriteByte('{')
					i += 2
					continue
				}
				return segment{}, 0, formatError(source, i, "unexpected '{' in format spec")
			}
			spec.WriteByte(c)
			i++
		}
		seg.spec = spec.String()
	}

	if i >= len(source) || source[i] != '}' {
		return segment{}, 0, formatError(source, start, "unterminated placeholder")
	}
	return seg, i + 1, nil
}

// Render substitutes args into the template, applying any function calls
// bound to a placeholder. Referring to an index past the end of args is an
// error.
func (t *Template) Render(args []string) (string, error) {
	if t.maxIndex >= len(args) {
		return "", errors.Newf(errors.ErrFormatInvalid, "template %q refers to capture %d but only %d captures are available", t.source, t.maxIndex, len(args)).
			WithDetail("template", t.source).
			WithDetail("captures", len(args))
	}

	var sb strings.Builder
	for _, seg := range t.segments {
		if !seg.hole {
			sb.WriteString(seg.literal)
			continue
		}
		value := args[seg.index]
		for _, call := range seg.calls {
			var err error
			value, err = call.fn.Apply(value, call.args)
			if err != nil {
				return "", err
			}
		}
		writeAligned(&sb, value, seg.align)
	}
	return sb.String(), nil
}

func writeAligned(sb *strings.Builder, value string, align int) {
	width := align
	if width < 0 {
		width = -width
	}
	pad := width - utf8.RuneCountInString(value)
	if pad <= 0 {
		sb.WriteString(value)
		return
	}
	if align > 0 {
		sb.WriteString(strings.Repeat(" ", pad))
		sb.WriteString(value)
		return
	}
	sb.WriteString(value)
	sb.WriteString(strings.Repeat(" ", pad))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func formatError(source string, pos int, msg string) error {
	return errors.Newf(errors.ErrFormatInvalid, "invalid template %q at offset %d: %s", source, pos, msg).
		WithDetail("template", source)
}
