package cache

import (
	"context"
	"time"

	"github.com/matzehuels/mermaidlive/pkg/observability"
)

// NullCache stores nothing. It backs --no-cache and the "none" backend;
// every lookup is reported to the cache hooks as a miss.
type NullCache struct{}

var _ Cache = NullCache{}

// NewNullCache returns a cache that never stores anything.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	observability.Cache().OnCacheMiss(ctx, keyType(key))
	return nil, false, nil
}

func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
