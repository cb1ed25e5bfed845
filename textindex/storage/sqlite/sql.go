package sqlite

import "github.com/nonibytes/textindex/textindex/storage/sqlkv"

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS kv (
  bucket TEXT NOT NULL,
  key    BLOB NOT NULL,
  value  BLOB NOT NULL,
  PRIMARY KEY (bucket, key)
) WITHOUT ROWID`,
	`CREATE TABLE IF NOT EXISTS kv_seq (
  bucket TEXT PRIMARY KEY,
  value  INTEGER NOT NULL
)`,
}

var SQLTemplates = sqlkv.SQL{
	DDL:          ddl,
	Get:          "SELECT value FROM kv WHERE bucket = ? AND key = ?",
	Put:          "INSERT INTO kv(bucket, key, value) VALUES(?, ?, ?) ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value",
	Delete:       "DELETE FROM kv WHERE bucket = ? AND key = ?",
	NextSequence: "INSERT INTO kv_seq(bucket, value) VALUES(?, 1) ON CONFLICT(bucket) DO UPDATE SET value = kv_seq.value + 1 RETURNING value",
	ScanPrefix:   "SELECT key, value FROM kv WHERE bucket = ? AND key >= ? AND key < ?",
}
