package storage

import (
	"fmt"
	"strings"

	"github.com/nonibytes/textindex/textindex/tokenizer"
)

// Sep joins key parts. Tokens never contain it.
const Sep = byte(tokenizer.Separator)

// MaxByte terminates range upper bounds. It never occurs in UTF-8 text.
const MaxByte = byte(0xFF)

// ValidName rejects empty names and names containing the separator.
func ValidName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s must not be empty", kind)
	}
	if strings.IndexByte(name, Sep) >= 0 {
		return fmt.Errorf("%s %q must not contain %q", kind, name, Sep)
	}
	return nil
}

func join(parts ...string) []byte {
	n := len(parts)
	for _, p := range parts {
		n += len(p)
	}
	b := make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			b = append(b, Sep)
		}
		b = append(b, p...)
	}
	return b
}

func upper(lo []byte) []byte {
	hi := make([]byte, len(lo), len(lo)+1)
	copy(hi, lo)
	return append(hi, MaxByte)
}

// RecordKey is indexID‖docID.
func RecordKey(indexID, docID string) []byte {
	return join(indexID, docID)
}

// RecordRange spans every record of an index.
func RecordRange(indexID string) (lo, hi []byte) {
	lo = append(join(indexID), Sep)
	return lo, upper(lo)
}

// EntryKey is indexID‖token‖field‖docID.
func EntryKey(indexID, token, field, docID string) []byte {
	return join(indexID, token, field, docID)
}

// TokenRange spans every entry for exactly token, optionally narrowed to
// one field.
func TokenRange(indexID, token, field string) (lo, hi []byte) {
	lo = append(join(indexID, token), Sep)
	if field != "" {
		lo = append(append(lo, field...), Sep)
	}
	return lo, upper(lo)
}

// PrefixRange spans every entry whose token starts with prefix.
func PrefixRange(indexID, prefix string) (lo, hi []byte) {
	lo = join(indexID, prefix)
	return lo, upper(lo)
}
