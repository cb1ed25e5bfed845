// Package storetest holds the behaviour every storage.Store must show.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/textindex/textindex/storage"
)

var errBoom = errors.New("boom")

// Run exercises newStore's result against the storage.Store contract.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		err := s.View(context.Background(), func(tx storage.Tx) error {
			_, err := tx.Get(storage.BucketRecords, []byte("nope"))
			return err
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("PutGetDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Put(storage.BucketRecords, []byte("k"), []byte("v1"))
		}))
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Put(storage.BucketRecords, []byte("k"), []byte("v2"))
		}))

		var got []byte
		require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
			var err error
			got, err = tx.Get(storage.BucketRecords, []byte("k"))
			return err
		}))
		assert.Equal(t, []byte("v2"), got)

		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Delete(storage.BucketRecords, []byte("k"))
		}))
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Delete(storage.BucketRecords, []byte("k"))
		}), "deleting a missing key is not an error")
	})

	t.Run("BucketsAreIsolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Put(storage.BucketEntries, []byte("k"), []byte("v"))
		}))
		err := s.View(ctx, func(tx storage.Tx) error {
			_, err := tx.Get(storage.BucketRecords, []byte("k"))
			return err
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ScanRangeOrderAndLimit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		keys := []string{"a|2", "a|1", "a|3", "b|1", "a", "a|\xfe"}
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			for _, k := range keys {
				if err := tx.Put(storage.BucketEntries, []byte(k), []byte("x")); err != nil {
					return err
				}
			}
			return nil
		}))

		scan := func(limit int) []string {
			var out []string
			require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
				return tx.Scan(storage.BucketEntries, []byte("a|"), []byte("a|\xff"), limit, func(k, _ []byte) error {
					out = append(out, string(k))
					return nil
				})
			}))
			return out
		}

		assert.Equal(t, []string{"a|1", "a|2", "a|3", "a|\xfe"}, scan(0))
		assert.Equal(t, []string{"a|1", "a|2"}, scan(2))
	})

	t.Run("ScanCallbackErrorStops", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			_ = tx.Put(storage.BucketEntries, []byte("1"), []byte("x"))
			return tx.Put(storage.BucketEntries, []byte("2"), []byte("x"))
		}))
		calls := 0
		err := s.View(ctx, func(tx storage.Tx) error {
			return tx.Scan(storage.BucketEntries, []byte("0"), []byte("9"), 0, func(_, _ []byte) error {
				calls++
				return errBoom
			})
		})
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, calls)
	})

	t.Run("UpdateRollsBackOnError", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		err := s.Update(ctx, func(tx storage.Tx) error {
			if err := tx.Put(storage.BucketStats, []byte("k"), []byte("v")); err != nil {
				return err
			}
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)

		err = s.View(ctx, func(tx storage.Tx) error {
			_, err := tx.Get(storage.BucketStats, []byte("k"))
			return err
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("NextSequenceIncreases", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var a, b uint64
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			var err error
			a, err = tx.NextSequence(storage.BucketRecords)
			return err
		}))
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			var err error
			b, err = tx.NextSequence(storage.BucketRecords)
			return err
		}))
		assert.Greater(t, a, uint64(0))
		assert.Greater(t, b, a)
	})

	t.Run("GetOrCreate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var created1, created2 bool
		var v2 []byte
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			var err error
			_, created1, err = storage.GetOrCreate(tx, storage.BucketStats, []byte("n"), func() ([]byte, error) {
				return []byte("first"), nil
			})
			return err
		}))
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			var err error
			v2, created2, err = storage.GetOrCreate(tx, storage.BucketStats, []byte("n"), func() ([]byte, error) {
				return []byte("second"), nil
			})
			return err
		}))
		assert.True(t, created1)
		assert.False(t, created2)
		assert.Equal(t, []byte("first"), v2)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := s.Update(ctx, func(tx storage.Tx) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
