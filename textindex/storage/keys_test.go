package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func inRange(key, lo, hi []byte) bool {
	return bytes.Compare(key, lo) >= 0 && bytes.Compare(key, hi) < 0
}

func TestTokenRange_Exact(t *testing.T) {
	lo, hi := TokenRange("default", "apple", "")

	assert.True(t, inRange(EntryKey("default", "apple", "text", "1"), lo, hi))
	assert.True(t, inRange(EntryKey("default", "apple", "title", "99"), lo, hi))
	assert.False(t, inRange(EntryKey("default", "apples", "text", "1"), lo, hi))
	assert.False(t, inRange(EntryKey("other", "apple", "text", "1"), lo, hi))
}

func TestTokenRange_FieldScoped(t *testing.T) {
	lo, hi := TokenRange("default", "apple", "title")

	assert.True(t, inRange(EntryKey("default", "apple", "title", "1"), lo, hi))
	assert.False(t, inRange(EntryKey("default", "apple", "text", "1"), lo, hi))
	assert.False(t, inRange(EntryKey("default", "apple", "titles", "1"), lo, hi))
}

func TestPrefixRange(t *testing.T) {
	lo, hi := PrefixRange("default", "app")

	assert.True(t, inRange(EntryKey("default", "app", "text", "1"), lo, hi))
	assert.True(t, inRange(EntryKey("default", "apple", "text", "1"), lo, hi))
	assert.False(t, inRange(EntryKey("default", "ap", "text", "1"), lo, hi))
	assert.False(t, inRange(EntryKey("default", "banana", "text", "1"), lo, hi))
}

func TestRecordRange(t *testing.T) {
	lo, hi := RecordRange("notes")

	assert.True(t, inRange(RecordKey("notes", "1"), lo, hi))
	assert.False(t, inRange(RecordKey("notes2", "1"), lo, hi))
}

func TestValidName(t *testing.T) {
	assert.NoError(t, ValidName("index name", "default"))
	assert.Error(t, ValidName("index name", ""))
	assert.Error(t, ValidName("index name", "a|b"))
}
