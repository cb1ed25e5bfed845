package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nonibytes/textindex/internal/config"
	"github.com/nonibytes/textindex/internal/metrics"
	"github.com/nonibytes/textindex/textindex"
	"github.com/nonibytes/textindex/textindex/cache"
	"github.com/nonibytes/textindex/textindex/document"
	"github.com/nonibytes/textindex/textindex/storage"
	"github.com/nonibytes/textindex/textindex/storage/bolt"
	"github.com/nonibytes/textindex/textindex/storage/postgres"
	"github.com/nonibytes/textindex/textindex/storage/sqlite"
)

// session is one opened store, its index and everything wired to it.
type session struct {
	cfg      *config.Config
	store    storage.Store
	index    *textindex.Index
	registry *document.Registry
	results  *cache.Results
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	results, err := openResultCache(ctx, cfg.Cache, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	m := metrics.New(nil)
	opts := []textindex.Option{
		textindex.WithLogger(logger),
		textindex.WithObserver(m),
		textindex.WithFanOut(cfg.Index.FanOut),
		textindex.WithParseCacheSize(cfg.Index.ParseCacheSize),
	}
	if results != nil {
		opts = append(opts, textindex.WithResultCache(results))
	}
	ix, err := textindex.Open(ctx, store, cfg.Index.Name, opts...)
	if err != nil {
		_ = store.Close()
		if results != nil {
			_ = results.Close()
		}
		return nil, err
	}
	return &session{
		cfg:      cfg,
		store:    store,
		index:    ix,
		registry: reg,
		results:  results,
		metrics:  m,
		logger:   logger,
	}, nil
}

func (s *session) Close() error {
	var errs []error
	if s.results != nil {
		errs = append(errs, s.results.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

// schema resolves --kind. An empty kind is accepted when only one kind is
// configured.
func (s *session) schema(kind string) (*document.Schema, error) {
	if kind == "" {
		kinds := s.registry.Kinds()
		if len(kinds) != 1 {
			return nil, fmt.Errorf("--kind is required, one of %v", kinds)
		}
		kind = kinds[0]
	}
	schema, ok := s.registry.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q, configured kinds: %v", kind, s.registry.Kinds())
	}
	return schema, nil
}

func openStore(ctx context.Context, sc config.StoreConfig, logger *slog.Logger) (storage.Store, error) {
	switch storage.Backend(sc.Backend) {
	case storage.BackendBolt:
		return bolt.Open(sc.Path)
	case storage.BackendSQLite:
		driver := sc.Driver
		if driver == "" {
			driver = sqlite.DriverModernc
		}
		a := sqlite.NewWithDriver(sc.Path, driver)
		a.Logger = logger
		return a.Open(ctx)
	case storage.BackendPostgres:
		a := postgres.New(sc.DSN, sc.Schema)
		a.Logger = logger
		return a.Open(ctx)
	default:
		return nil, fmt.Errorf("unknown backend %q", sc.Backend)
	}
}

// openResultCache returns nil when caching is off.
func openResultCache(ctx context.Context, cc config.CacheConfig, logger *slog.Logger) (*cache.Results, error) {
	var backend cache.Cache
	switch cc.Type {
	case "", "none":
		return nil, nil
	case "lru":
		l, err := cache.NewLRU(cc.Size)
		if err != nil {
			return nil, err
		}
		backend = l
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
			PoolSize: cc.Redis.PoolSize,
			TTL:      cc.Redis.TTL,
		})
		if err != nil {
			return nil, err
		}
		backend = r
	default:
		return nil, fmt.Errorf("unknown cache type %q", cc.Type)
	}
	return cache.NewResults(backend, logger), nil
}
