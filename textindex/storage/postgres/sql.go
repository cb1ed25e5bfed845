package postgres

import "github.com/nonibytes/textindex/textindex/storage/sqlkv"

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS kv (
  bucket TEXT  NOT NULL,
  key    BYTEA NOT NULL,
  value  BYTEA NOT NULL,
  PRIMARY KEY (bucket, key)
)`,
	`CREATE TABLE IF NOT EXISTS kv_seq (
  bucket TEXT PRIMARY KEY,
  value  BIGINT NOT NULL
)`,
}

// SQLTemplates are written with ? placeholders; Dialect rebinds them.
var SQLTemplates = sqlkv.SQL{
	DDL:          ddl,
	Get:          "SELECT value FROM kv WHERE bucket = ? AND key = ?",
	Put:          "INSERT INTO kv(bucket, key, value) VALUES(?, ?, ?) ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value",
	Delete:       "DELETE FROM kv WHERE bucket = ? AND key = ?",
	NextSequence: "INSERT INTO kv_seq(bucket, value) VALUES(?, 1) ON CONFLICT(bucket) DO UPDATE SET value = kv_seq.value + 1 RETURNING value",
	ScanPrefix:   "SELECT key, value FROM kv WHERE bucket = ? AND key >= ? AND key < ?",
}
