// Package field defines the typed field descriptors of a document.
//
// A field knows how to canonicalise a raw value (Normalize), turn the
// canonical value into index tokens (Tokenize), filter each token one last
// time before it is written (CleanToken), and turn a stored raw value back
// into a Go value when a document is rebuilt from its record
// (ConvertFromIndex).
package field

import (
	"errors"
	"fmt"
	"strings"
)

// Type names a field kind. The names are used in configuration files.
type Type string

const (
	TypeText      Type = "text"
	TypeFuzzyText Type = "fuzzy_text"
	TypeNumber    Type = "number"
	TypeDate      Type = "date"
	TypeAtom      Type = "atom"
)

// ErrType is returned when a value cannot be coerced to the field's type.
var ErrType = errors.New("type mismatch")

// Field is the contract every field type implements.
type Field interface {
	Type() Type
	Options() Options
	Normalize(v any) (any, error)
	// Tokenize returns the literal values to index. nil means nothing.
	Tokenize(v any) []string
	// CleanToken returns "" when the token must be discarded.
	CleanToken(token string) string
	ConvertFromIndex(v any) any
}

// Indexer derives extra index forms from a base token.
type Indexer func(token string) []string

// Options are the settings shared by every field type.
type Options struct {
	Default any
	// Null allows an explicit nil value. A non-nullable field holding nil
	// fails the whole Add call.
	Null bool
	// Indexed false means the value is stored but never tokenized.
	Indexed bool

	// FuzzyText only.
	Indexers  []Indexer
	MinLength int
}

// Option mutates Options.
type Option func(*Options)

// WithDefault sets the value used when a document omits the field.
func WithDefault(v any) Option {
	return func(o *Options) { o.Default = v }
}

// NotNull makes an explicit nil value an integrity error.
func NotNull() Option {
	return func(o *Options) { o.Null = false }
}

// NotIndexed keeps the value in the record but out of the inverted index.
func NotIndexed() Option {
	return func(o *Options) { o.Indexed = false }
}

// WithIndexers replaces the indexers of a FuzzyText field.
func WithIndexers(idx ...Indexer) Option {
	return func(o *Options) { o.Indexers = idx }
}

// WithMinLength sets the shortest derived form a FuzzyText field keeps.
func WithMinLength(n int) Option {
	return func(o *Options) { o.MinLength = n }
}

func buildOptions(opts []Option) Options {
	o := Options{Null: true, Indexed: true, MinLength: DefaultMinLength}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// New builds a field of type t.
func New(t Type, opts ...Option) (Field, error) {
	switch t {
	case TypeText:
		return NewText(opts...), nil
	case TypeFuzzyText:
		return NewFuzzyText(opts...), nil
	case TypeNumber:
		return NewNumber(opts...), nil
	case TypeDate:
		return NewDate(opts...), nil
	case TypeAtom:
		return NewAtom(opts...), nil
	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
}

type base struct {
	opts Options
}

func (b base) Options() Options { return b.opts }

func (base) CleanToken(token string) string { return CleanToken(token) }

func (base) ConvertFromIndex(v any) any { return v }

// hashPrefixes are the first letters of tokens allowed to keep a trailing
// '#': musical notes and C#, F#, J#.
const hashPrefixes = "abcdefgj"

// CleanToken is the default last-chance token filter. It trims whitespace,
// drops '+' inside the token while keeping a trailing run of '+', and drops
// '#' unless the token is a note or language name like "c#".
func CleanToken(token string) string {
	token = strings.TrimSpace(token)
	token = cleanPlus(token)
	return cleanHash(token)
}

func cleanPlus(token string) string {
	body := strings.TrimRight(token, "+")
	if body == "" || !strings.Contains(body, "+") {
		return token
	}
	return strings.ReplaceAll(body, "+", "") + token[len(body):]
}

func cleanHash(token string) string {
	if !strings.Contains(token, "#") {
		return token
	}
	if len(token) <= 2 && strings.HasSuffix(token, "#") &&
		strings.ContainsRune(hashPrefixes, toLowerASCII(rune(token[0]))) {
		return token
	}
	return strings.ReplaceAll(token, "#", "")
}

func toLowerASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func stringValue(t Type, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("%w: %s field wants a string, got %T", ErrType, t, v)
	}
}
