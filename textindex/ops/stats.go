package ops

import (
	"encoding/json"
	"fmt"

	"github.com/nonibytes/textindex/textindex/storage"
)

// Stats is the persisted per-index row. DocumentCount is maintained on
// add and remove but reads should prefer Count.
type Stats struct {
	Name          string `json:"name"`
	DocumentCount int64  `json:"document_count"`
}

// EnsureStats gets or creates the stats row for name.
func EnsureStats(tx storage.Tx, name string) (Stats, bool, error) {
	b, created, err := storage.GetOrCreate(tx, storage.BucketStats, []byte(name), func() ([]byte, error) {
		return json.Marshal(Stats{Name: name})
	})
	if err != nil {
		return Stats{}, false, fmt.Errorf("ensure stats %s: %w", name, err)
	}
	var s Stats
	if err := json.Unmarshal(b, &s); err != nil {
		return Stats{}, false, fmt.Errorf("decode stats %s: %w", name, err)
	}
	return s, created, nil
}

// LoadStats reads the stats row; storage.ErrNotFound if absent.
func LoadStats(tx storage.Tx, name string) (Stats, error) {
	b, err := tx.Get(storage.BucketStats, []byte(name))
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	if err := json.Unmarshal(b, &s); err != nil {
		return Stats{}, fmt.Errorf("decode stats %s: %w", name, err)
	}
	return s, nil
}

// AdjustStats adds delta to the document counter, clamped at zero.
func AdjustStats(tx storage.Tx, name string, delta int) error {
	if delta == 0 {
		return nil
	}
	s, _, err := EnsureStats(tx, name)
	if err != nil {
		return err
	}
	s.DocumentCount += int64(delta)
	if s.DocumentCount < 0 {
		s.DocumentCount = 0
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return tx.Put(storage.BucketStats, []byte(name), b)
}

// Count is a live count of the index's records.
func Count(tx storage.Tx, indexID string) (int, error) {
	lo, hi := storage.RecordRange(indexID)
	return storage.Count(tx, storage.BucketRecords, lo, hi)
}
