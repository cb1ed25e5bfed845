// Package query turns a search string into OR-branches of field-scoped
// terms.
//
// Grammar: the string is lower-cased and split on " or ". Inside a branch,
// chunks are separated by unquoted spaces. A chunk may carry a "field:"
// prefix. A double-quoted chunk is an exact phrase; anything else is a word
// chunk and is run through the tokenizer, one term per token.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nonibytes/textindex/textindex/tokenizer"
)

type Kind string

const (
	KindWord  Kind = "word"
	KindExact Kind = "exact"
)

// Term is one searched unit. Field is empty when the term is not scoped.
type Term struct {
	Kind    Kind
	Field   string
	Content string
}

// Branch is an implicit AND of terms.
type Branch []Term

// Options change how a query string is expanded.
type Options struct {
	MatchStopwords bool
	UseStartswith  bool
}

var ErrParse = errors.New("query parse error")

var (
	fieldNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	// Date tokens are indexed whole, so a date literal is not split on '-'.
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

const orToken = " or "

// DefaultCacheSize bounds the parse cache of NewParser(0, nil).
const DefaultCacheSize = 1024

type cacheKey struct {
	q    string
	opts Options
}

// Parser parses with a fixed tokenizer and remembers recent results.
type Parser struct {
	tok   *tokenizer.Tokenizer
	cache *lru.Cache[cacheKey, []Branch]
}

// NewParser returns a caching parser. size <= 0 uses DefaultCacheSize; a nil
// tokenizer uses tokenizer.Default.
func NewParser(size int, tok *tokenizer.Tokenizer) (*Parser, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if tok == nil {
		tok = tokenizer.Default
	}
	c, err := lru.New[cacheKey, []Branch](size)
	if err != nil {
		return nil, fmt.Errorf("create parse cache: %w", err)
	}
	return &Parser{tok: tok, cache: c}, nil
}

// Parse parses q without caching.
func Parse(q string, opts Options) ([]Branch, error) {
	return parse(tokenizer.Default, q, opts)
}

// Parse returns the branches of q. The result is a private copy.
func (p *Parser) Parse(q string, opts Options) ([]Branch, error) {
	key := cacheKey{q: q, opts: opts}
	if b, ok := p.cache.Get(key); ok {
		return clone(b), nil
	}
	b, err := parse(p.tok, q, opts)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, b)
	return clone(b), nil
}

func clone(bs []Branch) []Branch {
	out := make([]Branch, len(bs))
	for i, b := range bs {
		out[i] = append(Branch(nil), b...)
	}
	return out
}

func parse(tok *tokenizer.Tokenizer, q string, opts Options) ([]Branch, error) {
	q = strings.ToLower(q)
	// Prefix searches need short common words.
	matchStop := opts.MatchStopwords || opts.UseStartswith

	var out []Branch
	for _, raw := range strings.Split(q, orToken) {
		chunks, err := splitChunks(raw)
		if err != nil {
			return nil, err
		}
		var branch Branch
		var extra Branch
		for _, c := range chunks {
			terms := expand(tok, c)
			if len(terms) == 0 {
				continue
			}
			branch = append(branch, terms[0])
			extra = append(extra, terms[1:]...)
		}
		branch = append(branch, extra...)

		if !matchStop {
			branch = dropStopWords(branch)
		}
		if len(branch) > 0 {
			out = append(out, branch)
		}
	}
	return out, nil
}

// splitChunks splits on spaces outside double quotes.
func splitChunks(s string) ([]string, error) {
	var chunks []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ' ' && !inQuote:
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote in %q", ErrParse, strings.TrimSpace(s))
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks, nil
}

func splitField(chunk string) (field, rest string) {
	i := strings.IndexByte(chunk, ':')
	if i <= 0 {
		return "", chunk
	}
	if !fieldNameRe.MatchString(chunk[:i]) {
		return "", chunk
	}
	return chunk[:i], chunk[i+1:]
}

func expand(tok *tokenizer.Tokenizer, chunk string) []Term {
	field, body := splitField(chunk)
	if len(body) >= 2 && body[0] == '"' && body[len(body)-1] == '"' {
		content := strings.TrimSpace(body[1 : len(body)-1])
		if content == "" {
			return nil
		}
		return []Term{{Kind: KindExact, Field: field, Content: content}}
	}

	if dateRe.MatchString(body) {
		return []Term{{Kind: KindWord, Field: field, Content: body}}
	}

	tokens, derived := tok.Tokenize(body)
	terms := make([]Term, 0, len(tokens)+len(derived))
	for _, t := range append(tokens, derived...) {
		if t == `"` {
			continue
		}
		terms = append(terms, Term{Kind: KindWord, Field: field, Content: t})
	}
	return terms
}

func dropStopWords(b Branch) Branch {
	out := b[:0]
	for _, t := range b {
		if t.Kind == KindWord && IsStopWord(t.Content) {
			continue
		}
		out = append(out, t)
	}
	return out
}
