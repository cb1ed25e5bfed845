// Package sqlbuilder assembles parameterised SQL for the dialects the SQL
// backends support.
package sqlbuilder

import (
	"strconv"
	"strings"
)

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// Builder accumulates SQL text and its arguments, numbering placeholders
// in the configured style.
type Builder struct {
	Style PlaceholderStyle
	sb    strings.Builder
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style, args: make([]any, 0, 4)}
}

// Arg records v and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	switch b.Style {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(len(b.args))
	default:
		return "?"
	}
}

// Write appends raw SQL text.
func (b *Builder) Write(parts ...string) *Builder {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
	return b
}

// WriteArg appends a placeholder for v.
func (b *Builder) WriteArg(v any) *Builder {
	b.sb.WriteString(b.Arg(v))
	return b
}

func (b *Builder) String() string { return b.sb.String() }
func (b *Builder) Args() []any    { return b.args }
func (b *Builder) Len() int       { return len(b.args) }

// Rebind rewrites '?' placeholders in query into the builder's style.
// Question marks inside single-quoted literals are left alone.
func Rebind(style PlaceholderStyle, query string) string {
	if style == PlaceholderQuestion {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			sb.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
