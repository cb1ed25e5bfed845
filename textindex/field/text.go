package field

import (
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"

	"github.com/nonibytes/textindex/textindex/tokenizer"
)

// DefaultMinLength is the shortest form a FuzzyText indexer may add.
const DefaultMinLength = 3

// Text is free text: lower-cased, whitespace collapsed, split by the
// tokenizer.
type Text struct {
	base
}

func NewText(opts ...Option) *Text {
	return &Text{base{opts: buildOptions(opts)}}
}

func (*Text) Type() Type { return TypeText }

func (*Text) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, err := stringValue(TypeText, v)
	if err != nil {
		return nil, err
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " "), nil
}

func (*Text) Tokenize(v any) []string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return tokenizer.All(s)
}

// FuzzyText is Text that also indexes forms produced by its indexers from
// every base token.
type FuzzyText struct {
	Text
}

// NewFuzzyText defaults to the Stem hook.
func NewFuzzyText(opts ...Option) *FuzzyText {
	o := buildOptions(opts)
	if o.Indexers == nil {
		o.Indexers = []Indexer{Stem}
	}
	return &FuzzyText{Text{base{opts: o}}}
}

func (*FuzzyText) Type() Type { return TypeFuzzyText }

func (f *FuzzyText) Tokenize(v any) []string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	tokens, derived := tokenizer.Tokenize(s)
	out := make([]string, 0, len(tokens)*2+len(derived))
	out = append(out, tokens...)
	out = append(out, derived...)
	for _, tok := range tokens {
		for _, idx := range f.opts.Indexers {
			for _, form := range idx(tok) {
				if len(form) >= f.opts.MinLength {
					out = append(out, form)
				}
			}
		}
	}
	return out
}

// Stem is the stemming hook. It returns the token unchanged; plug a real
// stemmer in with WithIndexers.
func Stem(token string) []string {
	return []string{token}
}

// PorterStemmer is an Indexer backed by the Porter algorithm.
func PorterStemmer(token string) []string {
	return []string{porterstemmer.StemString(token)}
}

// Atom is an opaque value indexed as a single token.
type Atom struct {
	base
}

func NewAtom(opts ...Option) *Atom {
	return &Atom{base{opts: buildOptions(opts)}}
}

func (*Atom) Type() Type { return TypeAtom }

func (*Atom) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, err := stringValue(TypeAtom, v)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

func (*Atom) Tokenize(v any) []string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return []string{s}
}
