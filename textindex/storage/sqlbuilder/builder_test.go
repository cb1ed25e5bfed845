package sqlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Question(t *testing.T) {
	b := New(PlaceholderQuestion)
	b.Write("SELECT 1 WHERE a = ").WriteArg(1).Write(" AND b = ").WriteArg("x")

	assert.Equal(t, "SELECT 1 WHERE a = ? AND b = ?", b.String())
	assert.Equal(t, []any{1, "x"}, b.Args())
	assert.Equal(t, 2, b.Len())
}

func TestBuilder_Dollar(t *testing.T) {
	b := New(PlaceholderDollar)
	b.Write("k >= ").WriteArg([]byte("a")).Write(" AND k < ").WriteArg([]byte("b"))

	assert.Equal(t, "k >= $1 AND k < $2", b.String())
}

func TestRebind(t *testing.T) {
	q := "SELECT '?' FROM kv WHERE bucket = ? AND key = ?"

	assert.Equal(t, q, Rebind(PlaceholderQuestion, q))
	assert.Equal(t, "SELECT '?' FROM kv WHERE bucket = $1 AND key = $2", Rebind(PlaceholderDollar, q))
}
