package storage

import (
	"context"
	"errors"
)

type Backend string

const (
	BackendBolt     Backend = "bolt"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Bucket is a keyspace inside a store.
type Bucket string

const (
	BucketStats   Bucket = "index_stats"
	BucketRecords Bucket = "document_records"
	BucketEntries Bucket = "token_field_index"
)

// Buckets lists every keyspace a store must provide.
var Buckets = []Bucket{BucketStats, BucketRecords, BucketEntries}

// ErrNotFound is returned by Tx.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// Store is an ordered key-value store with transactions.
type Store interface {
	Backend() Backend

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error
	// Update runs fn in a read-write transaction; it commits when fn
	// returns nil and rolls back otherwise.
	Update(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is one transaction. Byte slices handed to callers are copies.
type Tx interface {
	Get(b Bucket, key []byte) ([]byte, error)
	Put(b Bucket, key, value []byte) error
	Delete(b Bucket, key []byte) error

	// Scan visits keys in [lo, hi) in ascending byte order. limit <= 0
	// means no limit.
	Scan(b Bucket, lo, hi []byte, limit int, fn func(key, value []byte) error) error

	// NextSequence returns a store-assigned, monotonically increasing id
	// for bucket b.
	NextSequence(b Bucket) (uint64, error)
}

// GetOrCreate returns the value under key, writing create()'s result first
// if the key is absent. created reports whether the write happened.
func GetOrCreate(tx Tx, b Bucket, key []byte, create func() ([]byte, error)) (value []byte, created bool, err error) {
	value, err = tx.Get(b, key)
	if err == nil {
		return value, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	value, err = create()
	if err != nil {
		return nil, false, err
	}
	if err := tx.Put(b, key, value); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Count returns the number of keys in [lo, hi).
func Count(tx Tx, b Bucket, lo, hi []byte) (int, error) {
	n := 0
	err := tx.Scan(b, lo, hi, 0, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}
