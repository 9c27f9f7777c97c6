// Command actionrpc runs a demo rpc server with a couple of sample actions.
//
// Configuration is read from ./config/${ENVIRONMENT}.yaml. Results are also
// relayed to Kafka when a kafka section is present.
//
// Run as "actionrpc client NAME..." to greet the given names through the
// client filter chain of a running server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/cfgloader"
	"github.com/rise-and-shine/actionrpc/dispatch"
	"github.com/rise-and-shine/actionrpc/filter"
	"github.com/rise-and-shine/actionrpc/handler"
	"github.com/rise-and-shine/actionrpc/handler/wrapper"
	"github.com/rise-and-shine/actionrpc/http/rpc"
	"github.com/rise-and-shine/actionrpc/http/server"
	"github.com/rise-and-shine/actionrpc/http/server/middleware"
	"github.com/rise-and-shine/actionrpc/meta"
	"github.com/rise-and-shine/actionrpc/observability/alert"
	"github.com/rise-and-shine/actionrpc/observability/logger"
	"github.com/rise-and-shine/actionrpc/observability/tracing"
	"github.com/rise-and-shine/actionrpc/rediswr"
	"github.com/rise-and-shine/actionrpc/relay"
	"github.com/rise-and-shine/actionrpc/wire"
)

const (
	serviceName    = "actionrpc-demo"
	serviceVersion = "0.1.0"
	shutdownGrace  = 10 * time.Second
)

type Config struct {
	Logger  logger.Config  `yaml:"logger"`
	Tracing tracing.Config `yaml:"tracing"`
	Alert   alert.Config   `yaml:"alert"`
	Server  server.Config  `yaml:"server"`
	RPC     rpc.Config     `yaml:"rpc"`
	Relay   relay.Config   `yaml:"relay"`

	// Kafka enables the result relay when set.
	Kafka *relay.KafkaConfig `yaml:"kafka"`

	// Client is required by the client mode only.
	Client   *rpc.ClientConfig      `yaml:"client"`
	Batching filter.BatchingConfig `yaml:"batching"`

	// Redis backs the client result cache when set; memory is used otherwise.
	Redis *rediswr.Config `yaml:"redis"`
}

// Greet asks for a greeting.
type Greet struct {
	Name string `json:"name"`
}

func (Greet) Kind() action.Kind { return "demo.greet" }

func (Greet) ResultOf(*Greeting) {}

func (Greet) Mergeable() {}

// CacheExpiry keeps greetings for a minute.
func (Greet) CacheExpiry(action.Result) time.Time { return time.Now().Add(time.Minute) }

type Greeting struct {
	Text string `json:"text"`
}

func (*Greeting) IsComplete() bool { return true }

// Countdown produces one partial result per step, down to zero.
type Countdown struct {
	From int `json:"from"`
}

func (Countdown) Kind() action.Kind { return "demo.countdown" }

func (Countdown) ResultOf(*Tick) {}

type Tick struct {
	Remaining int `json:"remaining"`
}

func (t *Tick) IsComplete() bool { return t.Remaining <= 0 }

func main() {
	cfg := cfgloader.MustLoad[Config]()

	meta.SetServiceInfo(serviceName, serviceVersion)
	logger.SetGlobal(cfg.Logger)
	log := logger.Named("main")

	shutdownTracer, err := tracing.InitGlobalTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalx(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "client" {
		err = runClient(ctx, cfg, log, os.Args[2:])
	} else {
		err = run(ctx, cfg, log)
	}
	if err != nil {
		log.Errorx(err)
	}

	if err := shutdownTracer(); err != nil {
		log.Warnx(err)
	}
	_ = logger.Sync()
}

func newCodec() *wire.Codec {
	codec := wire.NewCodec()
	wire.MustRegister[Greet, *Greeting](codec)
	wire.MustRegister[Countdown, *Tick](codec)
	return codec
}

func run(ctx context.Context, cfg Config, log logger.Logger) error {
	codec := newCodec()

	alerts, err := alert.NewProvider(cfg.Alert, serviceName, serviceVersion)
	if err != nil {
		return err
	}
	defer func() {
		if err := alerts.Close(); err != nil {
			log.Warnx(err)
		}
	}()

	var opts []dispatch.Option
	opts = append(opts, dispatch.WithLogger(log))
	if cfg.Kafka != nil {
		publisher, err := relay.NewKafkaPublisher(*cfg.Kafka, log)
		if err != nil {
			return err
		}
		r := relay.New(cfg.Relay, codec, publisher)
		defer closeRelay(r, log)
		opts = append(opts, dispatch.WithRelay(r))
	}

	reg := dispatch.NewRegistry()
	publishing := dispatch.NewPublishing(reg, opts...)
	if err := bindHandlers(reg, publishing, log, alerts); err != nil {
		return err
	}

	srv := server.NewHTTPServer(cfg.Server, []server.Middleware{
		middleware.NewRecoveryMW(log),
		middleware.NewTracingMW(),
		middleware.NewTimeoutMW(cfg.Server.HandleTimeout),
		middleware.NewMetaInjectMW(),
		middleware.NewAlertMW(log, alerts),
		middleware.NewLoggerMW(log),
		middleware.NewErrorHandlerMW(cfg.Server.HideErrorDetails),
	})
	srv.RegisterRouter(rpc.NewRoutes(cfg.RPC, codec, publishing, log).Register)

	errCh := make(chan error, 1)
	go func() {
		log.With("address", cfg.Server.Address()).Info("rpc server started")
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func bindHandlers(reg *dispatch.Registry, e dispatch.Executor, log logger.Logger, alerts alert.Provider) error {
	greet := handler.Func[Greet, *Greeting](func(_ context.Context, a Greet) (*Greeting, error) {
		return &Greeting{Text: fmt.Sprintf("Hello, %s!", a.Name)}, nil
	})
	if err := dispatch.Bind(reg, greet,
		wrapper.NewMeta[Greet, *Greeting](),
		wrapper.NewTracing[Greet, *Greeting](),
		wrapper.NewAlert[Greet, *Greeting](log, alerts),
		wrapper.NewLogger[Greet, *Greeting](log),
		wrapper.NewTimeout[Greet, *Greeting](time.Second),
	); err != nil {
		return err
	}

	if err := dispatch.Bind(reg, newCountdown(),
		wrapper.NewMeta[Countdown, *Tick](),
		wrapper.NewTracing[Countdown, *Tick](),
		wrapper.NewAlert[Countdown, *Tick](log, alerts),
		wrapper.NewRecovery[Countdown, *Tick](log),
	); err != nil {
		return err
	}

	return dispatch.BindBatch(reg, e)
}

func closeRelay(r *relay.Relay, log logger.Logger) {
	if err := r.Close(); err != nil {
		log.Warnx(err)
	}
}
