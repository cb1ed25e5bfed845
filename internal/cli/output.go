package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nonibytes/textindex/textindex"
)

type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatText, FormatJSON:
		return OutputFormat(s), nil
	case "":
		return FormatText, nil
	default:
		return "", usageErrorf("--format must be text or json, got %q", s)
	}
}

func PrintJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// usageError marks bad command-line input.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitCode is 2 for input the user can fix and 1 for everything else.
func exitCode(err error) int {
	var ue *usageError
	switch {
	case errors.As(err, &ue),
		textindex.IsKind(err, textindex.ErrQueryParse),
		textindex.IsKind(err, textindex.ErrUnknownField),
		textindex.IsKind(err, textindex.ErrTypeMismatch):
		return 2
	default:
		return 1
	}
}
