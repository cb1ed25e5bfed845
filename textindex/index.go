// Package textindex is an embedded full-text index over an ordered
// key-value store.
//
// An Index owns the document records and inverted-index entries stored
// under its name. Documents are added and removed one store transaction
// each; searches parse a query into OR branches, scan token ranges per
// branch and rebuild the matching records into documents.
package textindex

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nonibytes/textindex/textindex/cache"
	"github.com/nonibytes/textindex/textindex/document"
	"github.com/nonibytes/textindex/textindex/ops"
	"github.com/nonibytes/textindex/textindex/query"
	"github.com/nonibytes/textindex/textindex/storage"
	"github.com/nonibytes/textindex/textindex/tokenizer"
)

// Index is safe for concurrent use; consistency is whatever the store's
// transactions give.
type Index struct {
	store   storage.Store
	name    string
	parser  *query.Parser
	results *cache.Results
	obs     Observer
	logger  *slog.Logger
	fanOut  int
}

// Open gets or creates the stats row for name and returns its Index. The
// store stays owned by the caller.
func Open(ctx context.Context, store storage.Store, name string, opts ...Option) (*Index, error) {
	if name == "" {
		name = DefaultName
	}
	if err := storage.ValidName("index name", name); err != nil {
		return nil, Wrap(ErrIntegrity, "invalid index name", err)
	}
	o := buildOptions(opts)

	parser, err := query.NewParser(o.parseCacheSize, tokenizer.Default)
	if err != nil {
		return nil, Wrap(ErrIO, "create query parser", err)
	}

	var created bool
	err = store.Update(ctx, func(tx storage.Tx) error {
		var err error
		_, created, err = ops.EnsureStats(tx, name)
		return err
	})
	if err != nil {
		return nil, classify("open index", err)
	}

	ix := &Index{
		store:   store,
		name:    name,
		parser:  parser,
		results: o.results,
		obs:     o.observer,
		logger:  o.logger.With("component", "index", "index", name),
		fanOut:  o.fanOut,
	}
	ix.logger.Debug("index_opened", "backend", string(store.Backend()), "created", created)
	return ix, nil
}

// ID is the stats row key, used as the prefix of every key of this index.
func (ix *Index) ID() string { return ix.name }

func (ix *Index) observe(op string, start time.Time, err error) {
	ix.obs.ObserveOperation(op, time.Since(start), err)
}

// Add validates every document, then writes each in its own transaction.
// It returns the ids of documents that had no record before.
func (ix *Index) Add(ctx context.Context, docs ...*document.Document) (ids []string, err error) {
	start := time.Now()
	defer func() { ix.observe("add", start, err) }()

	if err := ops.Validate(docs); err != nil {
		return nil, classify("validate documents", err)
	}

	written := 0
	defer func() {
		if written > 0 {
			ix.invalidate(ctx)
		}
		ix.obs.DocumentsAdded(len(ids))
	}()

	for _, d := range docs {
		var res ops.PutResult
		err := ix.store.Update(ctx, func(tx storage.Tx) error {
			var err error
			if res, err = ops.Put(tx, ix.name, d); err != nil {
				return err
			}
			if res.Created {
				return ops.AdjustStats(tx, ix.name, 1)
			}
			return nil
		})
		if err != nil {
			return ids, classify(fmt.Sprintf("add document %s", d.ID), err)
		}
		written++
		if res.Created {
			ids = append(ids, res.ID)
		}
		ix.logger.Debug("document_indexed", "id", res.ID, "created", res.Created, "tokens", res.Tokens)
	}
	return ids, nil
}

// Remove deletes documents given as *document.Document or string ids.
// Ids without a record are skipped. It returns how many were removed.
func (ix *Index) Remove(ctx context.Context, refs ...any) (n int, err error) {
	start := time.Now()
	defer func() { ix.observe("remove", start, err) }()

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		switch r := ref.(type) {
		case *document.Document:
			if r == nil || r.ID == "" {
				continue
			}
			ids = append(ids, r.ID)
		case string:
			ids = append(ids, r)
		case int:
			ids = append(ids, strconv.Itoa(r))
		default:
			return 0, New(ErrTypeMismatch, fmt.Sprintf("cannot remove %T", ref))
		}
	}

	defer func() {
		if n > 0 {
			ix.invalidate(ctx)
		}
		ix.obs.DocumentsRemoved(n)
	}()

	for _, id := range ids {
		var removed bool
		err := ix.store.Update(ctx, func(tx storage.Tx) error {
			var err error
			if removed, err = ops.Remove(tx, ix.name, id); err != nil || !removed {
				return err
			}
			return ops.AdjustStats(tx, ix.name, -1)
		})
		if err != nil {
			return n, classify(fmt.Sprintf("remove document %s", id), err)
		}
		if removed {
			n++
		}
	}
	return n, nil
}

// DocumentCount counts the index's records live.
func (ix *Index) DocumentCount(ctx context.Context) (int, error) {
	var n int
	err := ix.store.View(ctx, func(tx storage.Tx) error {
		var err error
		n, err = ops.Count(tx, ix.name)
		return err
	})
	if err != nil {
		return 0, classify("count documents", err)
	}
	return n, nil
}

// Stats returns the maintained counter row. Use DocumentCount for an exact
// figure.
func (ix *Index) Stats(ctx context.Context) (ops.Stats, error) {
	var s ops.Stats
	err := ix.store.View(ctx, func(tx storage.Tx) error {
		var err error
		s, err = ops.LoadStats(tx, ix.name)
		return err
	})
	if err != nil {
		return ops.Stats{}, classify("load stats", err)
	}
	return s, nil
}

func (ix *Index) invalidate(ctx context.Context) {
	if ix.results == nil {
		return
	}
	if err := ix.results.Invalidate(context.WithoutCancel(ctx), ix.name); err != nil {
		ix.logger.Warn("result_cache_invalidate_failed", "error", err)
	}
}
