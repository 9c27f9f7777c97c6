package main

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"golang.org/x/sync/errgroup"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/actioncache"
	"github.com/rise-and-shine/actionrpc/filter"
	"github.com/rise-and-shine/actionrpc/http/rpc"
	"github.com/rise-and-shine/actionrpc/observability/logger"
	"github.com/rise-and-shine/actionrpc/rediswr"
	"github.com/rise-and-shine/actionrpc/wire"
)

const (
	countdownFrom = 3
	checkWait     = 5 * time.Second
)

func runClient(ctx context.Context, cfg Config, log logger.Logger, names []string) error {
	if cfg.Client == nil {
		return errx.New("client section is missing in config", errx.WithType(errx.T_Validation))
	}

	codec := newCodec()
	client := rpc.NewClient(*cfg.Client, codec, log)

	cache, err := newCache(ctx, cfg, codec)
	if err != nil {
		return err
	}
	batching, err := filter.NewBatchingFromConfig(cfg.Batching, filter.WithLogger(log))
	if err != nil {
		return err
	}

	chain, err := filter.NewChain(
		filter.NewCaching(cache, filter.WithLogger(log)),
		filter.NewMerging(filter.WithLogger(log)),
		batching,
	)
	if err != nil {
		return err
	}
	if err := chain.Init(client); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			res, err := action.Execute[*Greeting](gctx, chain, Greet{Name: name})
			if err != nil {
				return err
			}
			log.With("name", name).Info(res.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return watchCountdown(ctx, client, log)
}

// watchCountdown starts a countdown on the server and follows its partial
// results through a subscription.
func watchCountdown(ctx context.Context, client *rpc.Client, log logger.Logger) error {
	id, err := client.Subscribe(ctx, Countdown{}.Kind())
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Cancel(context.WithoutCancel(ctx), id); err != nil {
			log.Warnx(err)
		}
	}()

	done := client.Invoke(ctx, Countdown{From: countdownFrom})

	for {
		notifications, err := client.Check(ctx, id, checkWait)
		if err != nil {
			return err
		}
		for _, n := range notifications {
			if tick, ok := n.Result.(*Tick); ok {
				log.With("subscription", id.String()).With("remaining", tick.Remaining).Info("tick")
			}
		}

		select {
		case <-done.Done():
			_, err := done.Outcome()
			return err
		default:
		}
	}
}

func newCache(ctx context.Context, cfg Config, codec *wire.Codec) (actioncache.Cache, error) {
	if cfg.Redis == nil {
		return actioncache.NewMemory(), nil
	}

	client := rediswr.New(*cfg.Redis)
	if err := rediswr.Ping(ctx, client); err != nil {
		return nil, err
	}
	return actioncache.NewRedis(client, codec, actioncache.WithKeyPrefix(serviceName+":")), nil
}
