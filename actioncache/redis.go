package actioncache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/code19m/errx"
	"github.com/redis/go-redis/v9"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/wire"
)

const scanBatch = 100

type redisEntry struct {
	Action wire.Envelope   `json:"action"`
	Result json.RawMessage `json:"result"`
	Expiry time.Time       `json:"expiry"`
}

// Redis is a Cache shared between processes. Entries are encoded with the
// wire codec, so every cached kind must be registered there. The Redis TTL
// follows the entry expiry; the expiry is still checked on read.
type Redis struct {
	client redis.Cmdable
	codec  *wire.Codec
	now    Clock
	prefix string
}

// NewRedis returns a cache storing entries through client.
func NewRedis(client redis.Cmdable, codec *wire.Codec, opts ...Option) *Redis {
	o := buildOptions(opts)
	return &Redis{
		client: client,
		codec:  codec,
		now:    o.now,
		prefix: o.prefix,
	}
}

func (c *Redis) Get(ctx context.Context, a action.Cacheable) (action.Result, bool, error) {
	key, err := c.key(a)
	if err != nil {
		return nil, false, err
	}

	e, ok, err := c.load(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	if !c.now().Before(e.Expiry) {
		return nil, false, errx.Wrap(c.client.Del(ctx, key).Err())
	}

	res, err := c.codec.DecodeResult(a, e.Result)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (c *Redis) Put(ctx context.Context, a action.Cacheable, r action.Result) error {
	key, err := c.key(a)
	if err != nil {
		return err
	}

	expiry := a.CacheExpiry(r)
	ttl := expiry.Sub(c.now())
	if ttl <= 0 {
		return errx.Wrap(c.client.Del(ctx, key).Err())
	}

	env, err := c.codec.ToEnvelope(a)
	if err != nil {
		return err
	}
	resultData, err := c.codec.EncodeResult(r)
	if err != nil {
		return err
	}

	data, err := json.Marshal(redisEntry{Action: env, Result: resultData, Expiry: expiry})
	if err != nil {
		return errx.Wrap(err)
	}

	return errx.Wrap(c.client.Set(ctx, key, data, ttl).Err())
}

func (c *Redis) Remove(ctx context.Context, a action.Cacheable) error {
	key, err := c.key(a)
	if err != nil {
		return err
	}
	return errx.Wrap(c.client.Del(ctx, key).Err())
}

// Actions scans the key prefix. In cluster mode only the node serving the
// scan is visited.
func (c *Redis) Actions(ctx context.Context) ([]action.Cacheable, error) {
	var out []action.Cacheable

	now := c.now()
	iter := c.client.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		e, ok, err := c.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !now.Before(e.Expiry) {
			if err = c.client.Del(ctx, key).Err(); err != nil {
				return nil, errx.Wrap(err)
			}
			continue
		}

		a, err := c.codec.FromEnvelope(e.Action)
		if err != nil {
			return nil, err
		}
		if cacheable, isCacheable := a.(action.Cacheable); isCacheable {
			out = append(out, cacheable)
		}
	}

	return out, errx.Wrap(iter.Err())
}

func (c *Redis) key(a action.Cacheable) (string, error) {
	k, err := c.codec.Key(a)
	if err != nil {
		return "", err
	}
	return c.prefix + k, nil
}

func (c *Redis) load(ctx context.Context, key string) (redisEntry, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return redisEntry{}, false, nil
	}
	if err != nil {
		return redisEntry{}, false, errx.Wrap(err)
	}

	var e redisEntry
	if err = json.Unmarshal(data, &e); err != nil {
		return redisEntry{}, false, errx.Wrap(err)
	}
	return e, true, nil
}
