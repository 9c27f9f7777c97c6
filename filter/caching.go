package filter

import (
	"context"

	"github.com/rcrowley/go-metrics"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/actioncache"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// Caching answers cacheable actions from a cache and stores successful
// results of forwarded ones before delivering them. Failures are never cached.
// Cache errors are logged and treated as misses.
type Caching struct {
	link

	cache  actioncache.Cache
	logger logger.Logger

	hits   metrics.Counter
	misses metrics.Counter
	errors metrics.Counter
}

var _ Filter = (*Caching)(nil)

// NewCaching returns a caching filter backed by cache.
func NewCaching(cache actioncache.Cache, opts ...Option) *Caching {
	o := buildOptions(opts)
	return &Caching{
		cache:  cache,
		logger: o.logger.Named("filter.caching"),
		hits:   counter(MetricCacheHits, o.registry),
		misses: counter(MetricCacheMisses, o.registry),
		errors: counter(MetricCacheErrors, o.registry),
	}
}

func (c *Caching) Invoke(ctx context.Context, a action.Action) *action.Future {
	next, err := c.downstream()
	if err != nil {
		return action.Failed(err)
	}

	ca, ok := a.(action.Cacheable)
	if !ok {
		return next.Invoke(ctx, a)
	}

	res, hit, err := c.cache.Get(ctx, ca)
	if err != nil {
		c.errors.Inc(1)
		c.logger.WithContext(ctx).With("action_kind", a.Kind()).Warnx(err)
	}
	if hit {
		c.hits.Inc(1)
		return action.Resolved(res, nil)
	}
	c.misses.Inc(1)

	storeCtx := detach(ctx)
	out := action.NewFuture()
	next.Invoke(ctx, a).Then(func(r action.Result, err error) {
		if err == nil {
			if putErr := c.cache.Put(storeCtx, ca, r); putErr != nil {
				c.errors.Inc(1)
				c.logger.WithContext(storeCtx).With("action_kind", a.Kind()).Warnx(putErr)
			}
		}
		out.Resolve(r, err)
	})
	return out
}
