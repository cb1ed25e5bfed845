package field

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DateTokenLayout is the single token a Date field produces.
const DateTokenLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	DateTokenLayout,
}

// Date holds a time.Time. Only the calendar day is indexed.
type Date struct {
	base
}

func NewDate(opts ...Option) *Date {
	return &Date{base{opts: buildOptions(opts)}}
}

func (*Date) Type() Type { return TypeDate }

func (*Date) Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return *t, nil
	case string:
		return ParseDate(t)
	default:
		return nil, fmt.Errorf("%w: date field wants time.Time or string, got %T", ErrType, v)
	}
}

func (*Date) Tokenize(v any) []string {
	t, ok := v.(time.Time)
	if !ok {
		return nil
	}
	return []string{t.Format(DateTokenLayout)}
}

// ConvertFromIndex parses a stored date back. A value that does not parse
// is logged and read as nil so one bad record cannot fail a search.
func (*Date) ConvertFromIndex(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t
	case string:
		parsed, err := ParseDate(t)
		if err != nil {
			slog.Default().Warn("date_reconstruct_failed",
				slog.String("component", "field"),
				slog.String("value", t),
				slog.String("error", err.Error()))
			return nil
		}
		return parsed
	default:
		slog.Default().Warn("date_reconstruct_failed",
			slog.String("component", "field"),
			slog.String("type", fmt.Sprintf("%T", v)))
		return nil
	}
}

// ParseDate accepts RFC3339 and the common ISO-like layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q as date", ErrType, s)
}
