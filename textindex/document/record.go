package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is the persisted form of a document: its raw values and the keys
// of every inverted-index entry that points at it.
type Record struct {
	IndexID    string          `json:"index_id"`
	DocumentID string          `json:"document_id"`
	Kind       string          `json:"kind,omitempty"`
	Values     json.RawMessage `json:"values"`
	Entries    []string        `json:"entries,omitempty"`
}

func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalRecord(b []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &r, nil
}

// RawValues decodes the stored values. Numbers come back as json.Number.
func (r *Record) RawValues() (map[string]any, error) {
	out := make(map[string]any)
	if len(r.Values) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(r.Values))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode record values: %w", err)
	}
	return out, nil
}

func (r *Record) SetValues(values map[string]any) error {
	b, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode record values: %w", err)
	}
	r.Values = b
	return nil
}

// SetEntries replaces the entry set, stored sorted.
func (r *Record) SetEntries(keys []string) {
	out := make([]string, len(keys))
	copy(out, keys)
	sort.Strings(out)
	r.Entries = out
}
