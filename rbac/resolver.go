package rbac

import (
	"context"
	"math/big"
	"time"

	"github.com/privaccess/go-privaccess-auth/cache"
)

const (
	defaultCacheSize = 100
	defaultCacheTTL  = 5 * time.Minute
)

// CachedResolver memoizes role lookups. Resolution against a remote policy
// store is the expensive path; a key that was already resolved within the
// TTL is served from memory.
type CachedResolver struct {
	inner Resolver
	roles cache.Cache[*Role]
}

// CachedResolverOption configures a CachedResolver.
type CachedResolverOption func(*CachedResolver)

// WithRoleCache replaces the default in-memory cache.
func WithRoleCache(c cache.Cache[*Role]) CachedResolverOption {
	return func(r *CachedResolver) {
		r.roles = c
	}
}

// NewCachedResolver wraps a resolver with a role cache.
func NewCachedResolver(inner Resolver, opts ...CachedResolverOption) *CachedResolver {
	r := &CachedResolver{
		inner: inner,
		roles: cache.NewMemory[*Role](defaultCacheSize, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveRole serves from cache when possible, otherwise delegates and
// caches the result. Failed lookups are not cached so a role provisioned
// later is picked up.
func (r *CachedResolver) ResolveRole(ctx context.Context, publicKey *big.Int) (*Role, error) {
	if publicKey == nil {
		return r.inner.ResolveRole(ctx, publicKey)
	}
	key := publicKey.String()
	if role, ok := r.roles.Get(key); ok {
		return role, nil
	}
	role, err := r.inner.ResolveRole(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	r.roles.Set(key, role)
	return role, nil
}
