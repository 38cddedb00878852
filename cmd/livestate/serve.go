package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/livestate/internal/config"
	"github.com/vango-dev/livestate/internal/logging"
	"github.com/vango-dev/livestate/pkg/observe"
	"github.com/vango-dev/livestate/pkg/reactive"
	"github.com/vango-dev/livestate/pkg/remote"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a state document over HTTP and websocket",
		Long: `Serve hosts the configured state document. Websocket clients subscribe
to paths and receive a value every time one changes. Events arrive over
POST /events, over websocket, or from a Redis channel when enabled.

Configuration is read from livestate.json or livestate.yaml in the
working directory, or from --config.

Examples:
  livestate serve
  livestate serve --addr=:8080
  livestate serve --config=deploy/livestate.yaml --log-level=debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runServe(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default livestate.json or livestate.yaml)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(".")
}

func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := logging.New(level, cfg.Log.Format, logOut)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	defer s.close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	return s.run(ctx, ln)
}

// server is one serving process: the hub over the configured state, its
// router, and the optional Redis feed.
type server struct {
	cfg      *config.Config
	logger   *slog.Logger
	hub      *remote.Hub
	handler  http.Handler
	registry *prometheus.Registry
	redis    *backend.Client
	feed     *remote.RedisFeed
	prev     reactive.Observer
}

func newServer(cfg *config.Config, logger *slog.Logger) (*server, error) {
	s := &server{cfg: cfg, logger: logger}

	state := cfg.State
	if state == nil {
		state = map[string]any{}
	}

	hub, err := remote.NewHub(state,
		remote.WithHubLogger(logger),
		remote.WithSendBuffer(cfg.Server.SendBuffer),
		remote.WithWriteTimeout(cfg.WriteTimeout()),
		remote.WithCheckOrigin(originChecker(cfg.Server.AllowedOrigins)))
	if err != nil {
		return nil, err
	}
	s.hub = hub

	observers := []reactive.Observer{}
	if level, _ := cfg.LogLevel(); level <= slog.LevelDebug {
		observers = append(observers, observe.NewLog(logger, slog.LevelDebug))
	}

	routerOpts := []remote.RouterOption{remote.WithRouterLogger(logger)}
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		observers = append(observers, observe.NewPrometheus(
			observe.WithRegistry(s.registry),
			observe.WithNamespace(cfg.Metrics.Namespace)))
		routerOpts = append(routerOpts,
			remote.WithMetrics(s.registry),
			remote.WithMetricsPath(cfg.Metrics.Path))
	}
	if cfg.Tracing.Enabled {
		observers = append(observers, observe.NewOpenTelemetry(
			observe.WithTracerName(cfg.Tracing.TracerName),
			observe.WithAttributes(attribute.String("livestate.addr", cfg.Server.Addr))))
	}
	s.handler = remote.NewRouter(hub, routerOpts...)

	if cfg.Redis.Enabled {
		s.redis = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.feed = remote.NewRedisFeed(s.redis, cfg.Redis.Channel, hub, remote.WithFeedLogger(logger))
	}

	reactive.SetLogger(logger)
	s.prev = reactive.SetObserver(observe.Multi(observers...))
	return s, nil
}

// run serves on ln until ctx is done or a component fails.
func (s *server) run(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(ctx)
	})

	if s.feed != nil {
		g.Go(func() error {
			return s.feed.Run(ctx)
		})
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		s.logger.Info("server starting", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// close releases the Redis client and restores the previous observer.
func (s *server) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	reactive.SetObserver(s.prev)
}

// originChecker allows the listed origins. Empty keeps the websocket
// library's same-origin check.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}
