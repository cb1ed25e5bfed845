package ops

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nonibytes/textindex/textindex/field"
	"github.com/nonibytes/textindex/textindex/query"
	"github.com/nonibytes/textindex/textindex/storage"
)

// DefaultFanOut caps the entries fetched per branch.
const DefaultFanOut = 5000

const (
	exactScore    = 1.0
	stopWordScore = 0.25
	maxParallel   = 4
)

// SearchOptions control matching and scoring.
type SearchOptions struct {
	UseStemming    bool
	UseStartswith  bool
	MatchStopwords bool
	MatchAll       bool
}

// ScoredID is a ranked document id.
type ScoredID struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Searcher executes parsed branches against one index.
type Searcher struct {
	Store   storage.Store
	IndexID string
	// FanOut <= 0 uses DefaultFanOut.
	FanOut int
	Logger *slog.Logger
	// OnTruncated is called once per branch that hit the fan-out cap.
	OnTruncated func()
}

type searchTerm struct {
	query.Term
	stop bool
}

// Execute returns ids ranked by descending score, ties by ascending id.
func (s *Searcher) Execute(ctx context.Context, branches []query.Branch, opts SearchOptions) ([]ScoredID, error) {
	prepared, err := prepareBranches(branches, opts)
	if err != nil {
		return nil, err
	}

	scores := make([]map[string]float64, len(prepared))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, b := range prepared {
		i, b := i, b
		g.Go(func() error {
			sc, err := s.runBranch(gctx, b, opts)
			if err != nil {
				return err
			}
			scores[i] = sc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := make(map[string]float64)
	for _, sc := range scores {
		for id, v := range sc {
			total[id] += v
		}
	}
	return rank(total), nil
}

func prepareBranches(branches []query.Branch, opts SearchOptions) ([][]searchTerm, error) {
	if !opts.MatchAll {
		var flat []query.Branch
		for _, b := range branches {
			for _, t := range b {
				flat = append(flat, query.Branch{t})
			}
		}
		branches = flat
	}

	var out [][]searchTerm
	for _, b := range branches {
		var terms []searchTerm
		for _, t := range b {
			if t.Kind == query.KindExact {
				return nil, fmt.Errorf("%w: exact phrase %q", ErrNotImplemented, t.Content)
			}
			t.Content = field.CleanToken(t.Content)
			if !validToken(t.Content) {
				continue
			}
			terms = append(terms, searchTerm{Term: t, stop: query.IsStopWord(t.Content)})
		}
		if opts.UseStemming {
			terms = stemFilter(terms)
		}
		if len(terms) > 0 {
			out = append(out, terms)
		}
	}
	return out, nil
}

// stemFilter is where query-side stemming plugs in. It passes terms
// through unchanged.
func stemFilter(terms []searchTerm) []searchTerm { return terms }

func (s *Searcher) fanOut() int {
	if s.FanOut > 0 {
		return s.FanOut
	}
	return DefaultFanOut
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default().With("component", "search")
}

// runBranch fetches entries for every term of b, up to the fan-out cap,
// and scores the documents the branch credits.
func (s *Searcher) runBranch(ctx context.Context, b []searchTerm, opts SearchOptions) (map[string]float64, error) {
	found := make(map[string]map[string]struct{})
	budget := s.fanOut()
	truncated := false

	err := s.Store.View(ctx, func(tx storage.Tx) error {
		for _, t := range b {
			if budget <= 0 {
				truncated = true
				return nil
			}
			lo, hi := termRange(s.IndexID, t.Term, opts.UseStartswith)
			n := 0
			err := tx.Scan(storage.BucketEntries, lo, hi, budget, func(_, v []byte) error {
				n++
				e, err := decodeEntry(v)
				if err != nil {
					return err
				}
				if t.Field != "" && e.Field != t.Field {
					return nil
				}
				toks, ok := found[e.DocumentID]
				if !ok {
					toks = make(map[string]struct{})
					found[e.DocumentID] = toks
				}
				toks[hitKey(t.Field, e.Token)] = struct{}{}
				return nil
			})
			if err != nil {
				return err
			}
			budget -= n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if budget <= 0 {
		truncated = true
	}
	if truncated {
		s.logger().Warn("search_fanout_truncated",
			slog.String("index", s.IndexID),
			slog.Int("limit", s.fanOut()),
			slog.Int("terms", len(b)))
		if s.OnTruncated != nil {
			s.OnTruncated()
		}
	}

	searched := distinct(b)
	scores := make(map[string]float64, len(found))
	for id, toks := range found {
		if !compareTokens(searched, toks, opts) {
			continue
		}
		scores[id] = scoreBranch(searched, toks, opts)
	}
	return scores, nil
}

func termRange(indexID string, t query.Term, startswith bool) (lo, hi []byte) {
	if startswith {
		return storage.PrefixRange(indexID, t.Content)
	}
	return storage.TokenRange(indexID, t.Content, t.Field)
}

// hitKey names a hit as seen by a term: scoped terms only count hits in
// their own field, so their keys carry it.
func hitKey(field, token string) string {
	if field == "" {
		return token
	}
	return field + string(storage.Sep) + token
}

func distinct(b []searchTerm) []searchTerm {
	seen := make(map[string]struct{}, len(b))
	out := make([]searchTerm, 0, len(b))
	for _, t := range b {
		k := hitKey(t.Field, t.Content)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// compareTokens decides whether a document with hits found is credited
// for a branch searching searched. Without MatchAll every branch has one
// term, so any hit counts.
func compareTokens(searched []searchTerm, found map[string]struct{}, opts SearchOptions) bool {
	if !opts.MatchAll {
		return true
	}
	if opts.UseStartswith {
		for _, s := range searched {
			if _, ok := bestPrefixMatch(s.Field, s.Content, found); !ok {
				return false
			}
		}
		return true
	}
	return len(found) == len(searched)
}

// bestPrefixMatch returns the shortest token starting with prefix among
// the hits recorded for field.
func bestPrefixMatch(field, prefix string, found map[string]struct{}) (string, bool) {
	best, ok := "", false
	for k := range found {
		tok := k
		if field != "" {
			var cut bool
			if tok, cut = strings.CutPrefix(k, field+string(storage.Sep)); !cut {
				continue
			}
		} else if strings.IndexByte(k, storage.Sep) >= 0 {
			continue
		}
		if !strings.HasPrefix(tok, prefix) {
			continue
		}
		if !ok || len(tok) < len(best) || (len(tok) == len(best) && tok < best) {
			best, ok = tok, true
		}
	}
	return best, ok
}

func scoreBranch(searched []searchTerm, found map[string]struct{}, opts SearchOptions) float64 {
	var score float64
	for _, s := range searched {
		switch {
		case s.stop:
			score += stopWordScore
		case opts.UseStartswith:
			if m, ok := bestPrefixMatch(s.Field, s.Content, found); ok {
				score += float64(len(s.Content)) / float64(len(m))
			}
		default:
			if _, ok := found[hitKey(s.Field, s.Content)]; ok {
				score += exactScore
			}
		}
	}
	return score
}

func rank(scores map[string]float64) []ScoredID {
	out := make([]ScoredID, 0, len(scores))
	for id, sc := range scores {
		out = append(out, ScoredID{ID: id, Score: sc})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return LessID(out[i].ID, out[j].ID)
	})
	return out
}

// LessID orders numeric ids numerically and everything else bytewise.
func LessID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
