// Package tokenizer splits free text into searchable tokens.
//
// Stop characters (a configured punctuation set plus whitespace) end the
// current token. Non-whitespace stop characters other than the key
// separator are also emitted as one-character tokens, so punctuation itself
// is searchable. A second pass rebuilds acronyms such as "U.S.A." or
// "x-m-l" from the single-character fragments the first pass produces.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Separator joins the parts of an inverted-index key. It is always a stop
// character and is never emitted as a token.
const Separator = '|'

// DefaultStopChars is the punctuation set used by Default. '+' and '#' are
// deliberately absent so that tokens like "c++" and "c#" survive.
const DefaultStopChars = `.,;:!?"'()[]{}<>/\|-_=*&^%$@~` + "`"

// Default is the tokenizer used by the field model and the query parser.
var Default = New(DefaultStopChars)

// Tokenizer holds a stop-character set.
type Tokenizer struct {
	stop map[rune]struct{}
}

// New returns a tokenizer that treats every rune in stopChars, the
// separator and all whitespace as token boundaries.
func New(stopChars string) *Tokenizer {
	t := &Tokenizer{stop: make(map[rune]struct{}, len(stopChars)+1)}
	for _, r := range stopChars {
		t.stop[r] = struct{}{}
	}
	t.stop[Separator] = struct{}{}
	return t
}

// Tokenize runs Default.Tokenize.
func Tokenize(text string) (tokens, derived []string) {
	return Default.Tokenize(text)
}

// All returns base and derived tokens of text as one list.
func All(text string) []string {
	tokens, derived := Default.Tokenize(text)
	return append(tokens, derived...)
}

// IsStop reports whether r ends a token.
func (t *Tokenizer) IsStop(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	_, ok := t.stop[r]
	return ok
}

type span struct {
	text       string
	start, end int
}

// Tokenize splits text into base tokens and derived (acronym) tokens.
// Case is preserved.
func (t *Tokenizer) Tokenize(text string) (tokens, derived []string) {
	spans := t.scan(text)
	kept, derived := reconstructAcronyms(text, spans)
	tokens = make([]string, 0, len(kept))
	for _, s := range kept {
		tokens = append(tokens, s.text)
	}
	return tokens, derived
}

func (t *Tokenizer) scan(text string) []span {
	var spans []span
	start := -1
	for i, r := range text {
		if !t.IsStop(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, span{text: text[start:i], start: start, end: i})
			start = -1
		}
		if !unicode.IsSpace(r) && r != Separator {
			spans = append(spans, span{text: string(r), start: i, end: i + utf8.RuneLen(r)})
		}
	}
	if start >= 0 {
		spans = append(spans, span{text: text[start:], start: start, end: len(text)})
	}
	return spans
}

// reconstructAcronyms finds runs like "u . s . a ." whose elements touch in
// the source text. Runs with at least two separators yield four derived
// tokens and their fragments are dropped from the base list.
func reconstructAcronyms(text string, spans []span) (kept []span, derived []string) {
	consumed := make([]bool, len(spans))
	seen := make(map[string]struct{})
	for i := 0; i < len(spans); {
		n, seps := acronymRun(spans, i)
		if seps < 2 {
			i++
			continue
		}
		letters := make([]string, 0, n/2+1)
		for j := i; j < i+n; j++ {
			consumed[j] = true
			if isSingleLetter(spans[j].text) {
				letters = append(letters, spans[j].text)
			}
		}
		variants := []string{
			strings.Join(letters, ""),
			strings.Join(letters, "."),
			strings.Join(letters, "-"),
			text[spans[i].start:spans[i+n-1].end],
		}
		for _, v := range variants {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			derived = append(derived, v)
		}
		i += n
	}
	for i, s := range spans {
		if !consumed[i] {
			kept = append(kept, s)
		}
	}
	return kept, derived
}

// acronymRun returns the length of the run starting at i and the number of
// separators in it.
func acronymRun(spans []span, i int) (n, seps int) {
	if i+1 >= len(spans) || !isSingleLetter(spans[i].text) {
		return 0, 0
	}
	sep := spans[i+1].text
	if sep != "." && sep != "-" {
		return 0, 0
	}
	n = 1
	wantSep := true
	for j := i + 1; j < len(spans); j++ {
		prev, cur := spans[j-1], spans[j]
		if cur.start != prev.end || cur.text == prev.text {
			break
		}
		if wantSep {
			if cur.text != sep {
				break
			}
			seps++
		} else if !isSingleLetter(cur.text) {
			break
		}
		n++
		wantSep = !wantSep
	}
	return n, seps
}

func isSingleLetter(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size == len(s) && size > 0 && unicode.IsLetter(r)
}
