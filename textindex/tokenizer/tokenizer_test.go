package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_SplitsOnWhitespace(t *testing.T) {
	tokens, derived := Tokenize("red  apple\tpie")

	assert.Equal(t, []string{"red", "apple", "pie"}, tokens)
	assert.Empty(t, derived)
}

func TestTokenize_EmitsPunctuation(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{name: "trailing period", input: "apple.", expect: []string{"apple", "."}},
		{name: "comma list", input: "a,bc", expect: []string{"a", ",", "bc"}},
		{name: "parentheses", input: "f(x)", expect: []string{"f", "(", "x", ")"}},
		{name: "plus and hash kept inside", input: "c++ c#", expect: []string{"c++", "c#"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, _ := Tokenize(tt.input)
			assert.Equal(t, tt.expect, tokens)
		})
	}
}

func TestTokenize_SeparatorIsNeverEmitted(t *testing.T) {
	tokens, derived := Tokenize("left|right")

	assert.Equal(t, []string{"left", "right"}, tokens)
	assert.Empty(t, derived)
}

func TestTokenize_DottedAcronym(t *testing.T) {
	tokens, derived := Tokenize("U.S.A. delegation")

	assert.Equal(t, []string{"delegation"}, tokens)
	assert.Equal(t, []string{"USA", "U.S.A", "U-S-A", "U.S.A."}, derived)
}

func TestTokenize_DashedAcronym(t *testing.T) {
	tokens, derived := Tokenize("x-m-l parser")

	assert.Equal(t, []string{"parser"}, tokens)
	assert.Equal(t, []string{"xml", "x.m.l", "x-m-l"}, derived)
}

func TestTokenize_SentenceEndIsNotAcronym(t *testing.T) {
	tokens, derived := Tokenize("end. Next")

	assert.Equal(t, []string{"end", ".", "Next"}, tokens)
	assert.Empty(t, derived)
}

func TestTokenize_SpacedLettersAreNotAcronym(t *testing.T) {
	tokens, derived := Tokenize("a. b. c")

	assert.Equal(t, []string{"a", ".", "b", ".", "c"}, tokens)
	assert.Empty(t, derived)
}

func TestTokenize_RepeatedDelimiterBreaksRun(t *testing.T) {
	tokens, derived := Tokenize("a..b..c")

	assert.Empty(t, derived)
	assert.Equal(t, []string{"a", ".", ".", "b", ".", ".", "c"}, tokens)
}

func TestTokenize_SingleSeparatorIsNotEnough(t *testing.T) {
	_, derived := Tokenize("a.b")

	assert.Empty(t, derived)
}

func TestTokenize_TwoLetterAcronymWithTrailingDot(t *testing.T) {
	tokens, derived := Tokenize("U.S. army")

	assert.Equal(t, []string{"army"}, tokens)
	require.Len(t, derived, 4)
	assert.Contains(t, derived, "US")
	assert.Contains(t, derived, "U.S.")
}

func TestNew_CustomStopChars(t *testing.T) {
	tk := New(",")

	tokens, _ := tk.Tokenize("a.b,c")

	assert.Equal(t, []string{"a.b", ",", "c"}, tokens)
	assert.True(t, tk.IsStop(Separator))
	assert.True(t, tk.IsStop(' '))
}

func TestAll_MergesBaseAndDerived(t *testing.T) {
	all := All("the U.S.A.")

	assert.Equal(t, []string{"the", "USA", "U.S.A", "U-S-A", "U.S.A."}, all)
}
