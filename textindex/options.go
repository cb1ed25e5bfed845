package textindex

import (
	"log/slog"
	"time"

	"github.com/nonibytes/textindex/textindex/cache"
	"github.com/nonibytes/textindex/textindex/ops"
)

const (
	// DefaultName is the index used when Open is given an empty name.
	DefaultName = "default"
	// DefaultLimit caps Search results unless WithLimit says otherwise.
	DefaultLimit = 1000
)

// Observer receives operation events. internal/metrics implements it with
// Prometheus collectors.
type Observer interface {
	ObserveOperation(op string, d time.Duration, err error)
	DocumentsAdded(n int)
	DocumentsRemoved(n int)
	FanOutTruncated()
	CacheLookup(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, time.Duration, error) {}
func (nopObserver) DocumentsAdded(int)                            {}
func (nopObserver) DocumentsRemoved(int)                          {}
func (nopObserver) FanOutTruncated()                              {}
func (nopObserver) CacheLookup(bool)                              {}

type options struct {
	logger         *slog.Logger
	observer       Observer
	results        *cache.Results
	fanOut         int
	parseCacheSize int
}

// Option configures Open.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithResultCache memoises ranked ids per query. Writes through this Index
// invalidate it.
func WithResultCache(r *cache.Results) Option {
	return func(o *options) { o.results = r }
}

// WithFanOut changes the per-branch entry cap.
func WithFanOut(n int) Option {
	return func(o *options) { o.fanOut = n }
}

func WithParseCacheSize(n int) Option {
	return func(o *options) { o.parseCacheSize = n }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		observer: nopObserver{},
		fanOut:   ops.DefaultFanOut,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// SearchOptions control one Search call.
type SearchOptions struct {
	Limit          int
	UseStemming    bool
	UseStartswith  bool
	MatchStopwords bool
	MatchAll       bool
	// OrderBy sorts ascending by this field instead of by score.
	OrderBy string
}

// DefaultSearchOptions returns the options Search starts from.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Limit: DefaultLimit, MatchStopwords: true, MatchAll: true}
}

type SearchOption func(*SearchOptions)

func WithLimit(n int) SearchOption {
	return func(o *SearchOptions) { o.Limit = n }
}

func WithStemming() SearchOption {
	return func(o *SearchOptions) { o.UseStemming = true }
}

func WithStartswith() SearchOption {
	return func(o *SearchOptions) { o.UseStartswith = true }
}

func WithStopwords(match bool) SearchOption {
	return func(o *SearchOptions) { o.MatchStopwords = match }
}

// WithMatchAll(false) turns every term into its own OR branch.
func WithMatchAll(all bool) SearchOption {
	return func(o *SearchOptions) { o.MatchAll = all }
}

func WithOrderBy(field string) SearchOption {
	return func(o *SearchOptions) { o.OrderBy = field }
}

// WithSearchOptions replaces all options at once.
func WithSearchOptions(so SearchOptions) SearchOption {
	return func(o *SearchOptions) { *o = so }
}
