package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nonibytes/textindex/textindex/document"
	"github.com/nonibytes/textindex/textindex/field"
	"github.com/nonibytes/textindex/textindex/storage"
)

// IntegrityError names the document and field that failed validation.
type IntegrityError struct {
	DocumentID string
	Field      string
}

func (e *IntegrityError) Error() string {
	id := e.DocumentID
	if id == "" {
		id = "<new>"
	}
	return fmt.Sprintf("field %q of document %s must not be null", e.Field, id)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// Validate checks every document before anything is written: a field that
// does not allow null must not hold nil.
func Validate(docs []*document.Document) error {
	for _, d := range docs {
		if d == nil {
			return fmt.Errorf("%w: nil document", ErrIntegrity)
		}
		if d.ID != "" {
			if err := storage.ValidName("document id", d.ID); err != nil {
				return fmt.Errorf("%w: %v", ErrIntegrity, err)
			}
		}
		for _, name := range d.Names() {
			f, _ := d.Field(name)
			if !f.Options().Null && d.Get(name) == nil {
				return &IntegrityError{DocumentID: d.ID, Field: name}
			}
		}
	}
	return nil
}

// FieldError is a value that its field could not normalize.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("field %q: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

// PutResult reports the id written and whether the record is new.
type PutResult struct {
	ID      string
	Created bool
	Tokens  int
}

// Put writes d's record and inverted-index entries into tx. Entries the
// record held before that d no longer produces are deleted.
func Put(tx storage.Tx, indexID string, d *document.Document) (PutResult, error) {
	// 1. Raw values, id excluded
	values := d.Values()

	// 2. Get or create the record
	rec, created, err := loadOrCreateRecord(tx, indexID, d, values)
	if err != nil {
		return PutResult{}, err
	}

	// 3. Tokenize indexed fields and get or create their entries
	keep := make(map[string]struct{})
	for _, name := range d.Names() {
		f, _ := d.Field(name)
		if !f.Options().Indexed {
			continue
		}
		v := d.Get(name)
		if v == nil {
			v = f.Options().Default
		}
		norm, err := f.Normalize(v)
		if err != nil {
			return PutResult{}, &FieldError{Field: name, Err: err}
		}
		for _, tok := range cleanTokens(f, dedupe(f.Tokenize(norm))) {
			e := Entry{IndexID: indexID, Token: tok, Field: name, DocumentID: rec.DocumentID}
			key := e.Key()
			if _, _, err := storage.GetOrCreate(tx, storage.BucketEntries, key, func() ([]byte, error) {
				return json.Marshal(e)
			}); err != nil {
				return PutResult{}, fmt.Errorf("write entry %s/%s: %w", name, tok, err)
			}
			keep[string(key)] = struct{}{}
		}
	}

	// 4. Drop entries the new values no longer produce
	for _, key := range rec.Entries {
		if _, ok := keep[key]; ok {
			continue
		}
		if err := tx.Delete(storage.BucketEntries, []byte(key)); err != nil {
			return PutResult{}, fmt.Errorf("delete stale entry: %w", err)
		}
	}

	// 5. Persist the record
	entries := make([]string, 0, len(keep))
	for k := range keep {
		entries = append(entries, k)
	}
	rec.SetEntries(entries)
	if err := rec.SetValues(values); err != nil {
		return PutResult{}, err
	}
	b, err := rec.Marshal()
	if err != nil {
		return PutResult{}, fmt.Errorf("encode record: %w", err)
	}
	if err := tx.Put(storage.BucketRecords, storage.RecordKey(indexID, rec.DocumentID), b); err != nil {
		return PutResult{}, fmt.Errorf("write record: %w", err)
	}

	d.Attach(rec)
	return PutResult{ID: rec.DocumentID, Created: created, Tokens: len(keep)}, nil
}

func loadOrCreateRecord(tx storage.Tx, indexID string, d *document.Document, values map[string]any) (*document.Record, bool, error) {
	id := d.ID
	if r := d.Record(); r != nil && r.IndexID == indexID {
		id = r.DocumentID
	}
	if id == "" {
		var err error
		if id, err = nextFreeID(tx, indexID); err != nil {
			return nil, false, err
		}
	}

	b, created, err := storage.GetOrCreate(tx, storage.BucketRecords, storage.RecordKey(indexID, id), func() ([]byte, error) {
		r := &document.Record{IndexID: indexID, DocumentID: id, Kind: d.Kind()}
		if err := r.SetValues(values); err != nil {
			return nil, err
		}
		return r.Marshal()
	})
	if err != nil {
		return nil, false, fmt.Errorf("load record %s: %w", id, err)
	}
	rec, err := document.UnmarshalRecord(b)
	if err != nil {
		return nil, false, err
	}
	rec.Kind = d.Kind()
	return rec, created, nil
}

// nextFreeID skips sequence values already taken by caller-supplied ids.
func nextFreeID(tx storage.Tx, indexID string) (string, error) {
	for {
		seq, err := tx.NextSequence(storage.BucketRecords)
		if err != nil {
			return "", fmt.Errorf("assign document id: %w", err)
		}
		id := strconv.FormatUint(seq, 10)
		_, err = tx.Get(storage.BucketRecords, storage.RecordKey(indexID, id))
		if errors.Is(err, storage.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func cleanTokens(f field.Field, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = f.CleanToken(t)
		if !validToken(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// IsIntegrity reports whether err is a validation failure.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}
