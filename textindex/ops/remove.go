package ops

import (
	"errors"
	"fmt"

	"github.com/nonibytes/textindex/textindex/document"
	"github.com/nonibytes/textindex/textindex/storage"
)

// Remove deletes the record docID and every entry it references. A missing
// record is not an error; removed reports whether one was found.
func Remove(tx storage.Tx, indexID, docID string) (removed bool, err error) {
	key := storage.RecordKey(indexID, docID)

	// 1. Look up the record
	b, err := tx.Get(storage.BucketRecords, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load record %s: %w", docID, err)
	}
	rec, err := document.UnmarshalRecord(b)
	if err != nil {
		return false, err
	}

	// 2. Delete its entries, restricted to this index and document
	for _, k := range rec.Entries {
		if !ownsEntry(indexID, docID, k) {
			continue
		}
		if err := tx.Delete(storage.BucketEntries, []byte(k)); err != nil {
			return false, fmt.Errorf("delete entry: %w", err)
		}
	}

	// 3. Delete the record
	if err := tx.Delete(storage.BucketRecords, key); err != nil {
		return false, fmt.Errorf("delete record %s: %w", docID, err)
	}
	return true, nil
}

func ownsEntry(indexID, docID, key string) bool {
	prefix := indexID + string(storage.Sep)
	suffix := string(storage.Sep) + docID
	return len(key) > len(prefix)+len(suffix) &&
		key[:len(prefix)] == prefix &&
		key[len(key)-len(suffix):] == suffix
}

// Load reads the records for ids, skipping ids removed in the meantime.
func Load(tx storage.Tx, indexID string, ids []string) ([]*document.Record, error) {
	out := make([]*document.Record, 0, len(ids))
	for _, id := range ids {
		b, err := tx.Get(storage.BucketRecords, storage.RecordKey(indexID, id))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load record %s: %w", id, err)
		}
		rec, err := document.UnmarshalRecord(b)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
