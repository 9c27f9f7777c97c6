// Package rediswr builds Redis clients from configuration.
package rediswr

import (
	"context"
	"strings"

	"github.com/code19m/errx"
	"github.com/redis/go-redis/v9"
)

// New returns a cluster client in cluster mode and a single node client
// otherwise.
func New(cfg Config) redis.UniversalClient {
	addrs := strings.Split(cfg.Addrs, ",")
	for i := range addrs {
		addrs[i] = strings.TrimSpace(addrs[i])
	}

	if cfg.IsClusterMode {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	return redis.NewClient(&redis.Options{
		Addr:     addrs[0],
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks that the server answers.
func Ping(ctx context.Context, client redis.Cmdable) error {
	return errx.Wrap(client.Ping(ctx).Err(), errx.WithType(errx.T_Internal))
}
