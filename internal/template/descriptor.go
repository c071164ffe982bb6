// Package template renders records through marker templates.
//
// A template is plain text with field markers of the form @fieldName@.
// Parse turns it into a Descriptor, an ordered list of literal segments and
// field references, and Render resolves a Descriptor against one record.
// Field values are always emitted as sanitized text: a value can never add
// markers, escape sequences or line breaks to the output.
package template

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Record is one item handed to a renderer.
type Record = map[string]any

// Segment is either literal text or a reference to a record field.
type Segment struct {
	Literal string
	Field   string
}

// IsField reports whether the segment is a field reference.
func (s Segment) IsField() bool { return s.Field != "" }

// Descriptor is a parsed template.
type Descriptor struct {
	Source   string
	Segments []Segment
}

// Parse splits src into segments. An @...@ pair whose inside is not a field
// name stays literal text.
func Parse(src string) Descriptor {
	d := Descriptor{Source: src}
	var literal strings.Builder

	rest := src
	for {
		open := strings.IndexByte(rest, '@')
		if open < 0 {
			literal.WriteString(rest)
			break
		}
		closing := strings.IndexByte(rest[open+1:], '@')
		if closing < 0 {
			literal.WriteString(rest)
			break
		}
		closing += open + 1

		name := strings.TrimSpace(rest[open+1 : closing])
		if !isFieldName(name) {
			// keep the first '@' and rescan from the second one
			literal.WriteString(rest[:open+1])
			rest = rest[open+1:]
			continue
		}

		literal.WriteString(rest[:open])
		if literal.Len() > 0 {
			d.Segments = append(d.Segments, Segment{Literal: literal.String()})
			literal.Reset()
		}
		d.Segments = append(d.Segments, Segment{Field: name})
		rest = rest[closing+1:]
	}
	if literal.Len() > 0 {
		d.Segments = append(d.Segments, Segment{Literal: literal.String()})
	}
	return d
}

// Fields lists the referenced field names in template order.
func (d Descriptor) Fields() []string {
	var fields []string
	for _, s := range d.Segments {
		if s.IsField() {
			fields = append(fields, s.Field)
		}
	}
	return fields
}

func isFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '.' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// Render resolves d against record. Absent and falsy fields (nil, "", false,
// numeric zero) render as empty text; rendering never fails.
func Render(d Descriptor, record Record) string {
	var b strings.Builder
	for _, s := range d.Segments {
		if !s.IsField() {
			b.WriteString(s.Literal)
			continue
		}
		b.WriteString(Sanitize(FormatValue(record[s.Field])))
	}
	return b.String()
}

// FormatValue turns a field value into text, blank when falsy.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
		return "true"
	case int:
		return intText(int64(val))
	case int32:
		return intText(int64(val))
	case int64:
		return intText(val)
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func intText(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

// Sanitize flattens line breaks and tabs to spaces and drops every other
// control character, including ESC.
func Sanitize(s string) string {
	clean := true
	for _, r := range s {
		if unicode.IsControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
