package field

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number holds an int64. It is indexed as itself, never split into digits.
type Number struct {
	base
}

func NewNumber(opts ...Option) *Number {
	return &Number{base{opts: buildOptions(opts)}}
}

func (*Number) Type() Type { return TypeNumber }

func (*Number) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return toInt64(v)
}

func (*Number) Tokenize(v any) []string {
	n, ok := v.(int64)
	if !ok {
		return nil
	}
	return []string{strconv.FormatInt(n, 10)}
}

// CleanToken re-stringifies the number; anything non-numeric is dropped.
func (*Number) CleanToken(token string) string {
	n, err := toInt64(strings.TrimSpace(token))
	if err != nil {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

func (*Number) ConvertFromIndex(v any) any {
	if v == nil {
		return nil
	}
	n, err := toInt64(v)
	if err != nil {
		return v
	}
	return n
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrType, n)
		}
		return int64(n), nil
	case float32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return toInt64(string(n))
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot parse %q as number", ErrType, n)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("%w: number field wants a number, got %T", ErrType, v)
	}
}
