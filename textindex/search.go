package textindex

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nonibytes/textindex/textindex/cache"
	"github.com/nonibytes/textindex/textindex/document"
	"github.com/nonibytes/textindex/textindex/ops"
	"github.com/nonibytes/textindex/textindex/query"
	"github.com/nonibytes/textindex/textindex/storage"
)

// Results is a fully materialised search result.
type Results struct {
	docs   []*document.Document
	scores []float64
}

func (r *Results) Len() int { return len(r.docs) }

// Documents returns the matches in rank order.
func (r *Results) Documents() []*document.Document { return r.docs }

// Score returns the relevance of the i-th match.
func (r *Results) Score(i int) float64 { return r.scores[i] }

// All iterates the matches in rank order.
func (r *Results) All() iter.Seq2[int, *document.Document] {
	return func(yield func(int, *document.Document) bool) {
		for i, d := range r.docs {
			if !yield(i, d) {
				return
			}
		}
	}
}

// Search runs q against the index and rebuilds each match as a document
// of schema.
func (ix *Index) Search(ctx context.Context, q string, schema *document.Schema, opts ...SearchOption) (res *Results, err error) {
	start := time.Now()
	defer func() { ix.observe("search", start, err) }()

	so := DefaultSearchOptions()
	for _, fn := range opts {
		fn(&so)
	}
	if so.Limit <= 0 {
		so.Limit = DefaultLimit
	}
	if so.OrderBy != "" {
		if _, ok := schema.Get(so.OrderBy); !ok {
			return nil, UnknownFieldError(so.OrderBy)
		}
	}

	ranked, err := ix.rank(ctx, q, so)
	if err != nil {
		return nil, err
	}

	if so.OrderBy == "" && len(ranked) > so.Limit {
		ranked = ranked[:so.Limit]
	}
	res, err = ix.materialize(ctx, ranked, schema)
	if err != nil {
		return nil, err
	}
	if so.OrderBy != "" {
		res.orderBy(so.OrderBy)
		if res.Len() > so.Limit {
			res.docs, res.scores = res.docs[:so.Limit], res.scores[:so.Limit]
		}
	}
	ix.logger.Debug("search_done", "query", q, "results", res.Len(), "took", time.Since(start))
	return res, nil
}

func (ix *Index) rank(ctx context.Context, q string, so SearchOptions) ([]ops.ScoredID, error) {
	compute := func() ([]ops.ScoredID, error) {
		branches, err := ix.parser.Parse(q, query.Options{
			MatchStopwords: so.MatchStopwords,
			UseStartswith:  so.UseStartswith,
		})
		if err != nil {
			return nil, err
		}
		s := &ops.Searcher{
			Store:       ix.store,
			IndexID:     ix.name,
			FanOut:      ix.fanOut,
			Logger:      ix.logger,
			OnTruncated: ix.obs.FanOutTruncated,
		}
		return s.Execute(ctx, branches, ops.SearchOptions{
			UseStemming:    so.UseStemming,
			UseStartswith:  so.UseStartswith,
			MatchStopwords: so.MatchStopwords,
			MatchAll:       so.MatchAll,
		})
	}

	if ix.results == nil {
		ranked, err := compute()
		return ranked, classify("execute query", err)
	}
	key := cache.Key(ix.name, q,
		strconv.FormatBool(so.UseStemming),
		strconv.FormatBool(so.UseStartswith),
		strconv.FormatBool(so.MatchStopwords),
		strconv.FormatBool(so.MatchAll))
	ranked, hit, err := ix.results.GetOrCompute(ctx, ix.name, key, compute)
	if err != nil {
		return nil, classify("execute query", err)
	}
	ix.obs.CacheLookup(hit)
	return ranked, nil
}

func (ix *Index) materialize(ctx context.Context, ranked []ops.ScoredID, schema *document.Schema) (*Results, error) {
	ids := make([]string, len(ranked))
	score := make(map[string]float64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
		score[r.ID] = r.Score
	}

	var recs []*document.Record
	err := ix.store.View(ctx, func(tx storage.Tx) error {
		var err error
		recs, err = ops.Load(tx, ix.name, ids)
		return err
	})
	if err != nil {
		return nil, classify("load documents", err)
	}

	res := &Results{
		docs:   make([]*document.Document, 0, len(recs)),
		scores: make([]float64, 0, len(recs)),
	}
	for _, rec := range recs {
		d, err := schema.FromRecord(rec)
		if err != nil {
			return nil, Wrap(ErrStore, fmt.Sprintf("rebuild document %s", rec.DocumentID), err)
		}
		res.docs = append(res.docs, d)
		res.scores = append(res.scores, score[rec.DocumentID])
	}
	return res, nil
}

// orderBy sorts ascending by the named field, nil values last. Equal
// values keep rank order.
func (r *Results) orderBy(name string) {
	idx := make([]int, len(r.docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return lessValue(r.docs[idx[a]].Get(name), r.docs[idx[b]].Get(name))
	})
	docs := make([]*document.Document, len(idx))
	scores := make([]float64, len(idx))
	for i, j := range idx {
		docs[i], scores[i] = r.docs[j], r.scores[j]
	}
	r.docs, r.scores = docs, scores
}

func lessValue(a, b any) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			return x < y
		}
	case float64:
		if y, ok := b.(float64); ok {
			return x < y
		}
	case json.Number:
		if y, ok := b.(json.Number); ok {
			fx, _ := x.Float64()
			fy, _ := y.Float64()
			return fx < fy
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y) < 0
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
