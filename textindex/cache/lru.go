package cache

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is an in-process Cache.
type LRU struct {
	c *lru.Cache[string, []byte]
}

var _ Cache = (*LRU)(nil)

func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &LRU{c: c}, nil
}

func (l *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.c.Get(key)
	return v, ok, nil
}

func (l *LRU) Set(_ context.Context, key string, value []byte) error {
	l.c.Add(key, value)
	return nil
}

func (l *LRU) DeletePrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, k := range l.c.Keys() {
		if strings.HasPrefix(k, prefix) && l.c.Remove(k) {
			n++
		}
	}
	return n, nil
}

func (l *LRU) Len() int { return l.c.Len() }

func (l *LRU) Close() error {
	l.c.Purge()
	return nil
}
