package netsweep

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// Cache errors
var (
	ErrCacheInitFailed = fmt.Errorf("failed to initialize cache")
)

// HostnameResolver resolves an address to a hostname. An empty return
// means the name is unknown; resolution failure is never an error.
type HostnameResolver interface {
	Reverse(ctx context.Context, address string) string
}

// Resolver performs reverse-DNS lookups with a TTL cache in front, so
// repeated sweeps of the same ranges do not hammer the resolver.
type Resolver struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *zap.Logger

	// Injectable for tests
	lookup func(ctx context.Context, addr string) ([]string, error)
}

// NewResolver creates a caching reverse-DNS resolver
func NewResolver(ttl time.Duration, logger *zap.Logger) (*Resolver, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 24,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheInitFailed, err)
	}

	return &Resolver{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "resolver")),
		lookup: net.DefaultResolver.LookupAddr,
	}, nil
}

// Reverse returns the hostname for an address, or "" when unknown
func (r *Resolver) Reverse(ctx context.Context, address string) string {
	key := "r:" + address
	if val, found := r.cache.Get(key); found {
		if name, ok := val.(string); ok {
			return name
		}
	}

	names, err := r.lookup(ctx, address)
	if err != nil || len(names) == 0 {
		r.logger.Debug("Reverse lookup failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return ""
	}

	name := strings.TrimSuffix(names[0], ".")
	r.cache.SetWithTTL(key, name, 1, r.ttl)
	return name
}

// Stats returns cache hit/miss counters
func (r *Resolver) Stats() map[string]uint64 {
	m := r.cache.Metrics
	return map[string]uint64{
		"hits":   m.Hits(),
		"misses": m.Misses(),
	}
}

// Close releases the cache
func (r *Resolver) Close() {
	r.cache.Close()
}
