// Package ops implements the index operations on top of a storage.Tx:
// writing and removing documents, counting, and executing parsed queries.
package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/nonibytes/textindex/textindex/storage"
)

var (
	// ErrIntegrity is returned when a non-nullable field holds nil.
	ErrIntegrity = errors.New("integrity error")
	// ErrNotImplemented is returned for exact phrase terms.
	ErrNotImplemented = errors.New("not implemented")
)

// Entry is the value stored under an inverted-index key.
type Entry struct {
	IndexID    string `json:"index_id"`
	Token      string `json:"token"`
	Field      string `json:"field"`
	DocumentID string `json:"document_id"`
}

func (e Entry) Key() []byte {
	return storage.EntryKey(e.IndexID, e.Token, e.Field, e.DocumentID)
}

func decodeEntry(b []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

// validToken reports whether token may be written: non-empty, no
// whitespace and no key separator.
func validToken(token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	if strings.IndexByte(token, storage.Sep) >= 0 {
		return false
	}
	return strings.IndexFunc(token, unicode.IsSpace) < 0
}
