package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/wfbench/internal/server"
	"github.com/iota-uz/wfbench/modules/benchmark"
	"github.com/iota-uz/wfbench/pkg/application"
	"github.com/iota-uz/wfbench/pkg/configuration"
	"github.com/iota-uz/wfbench/pkg/eventbus"
	"github.com/iota-uz/wfbench/pkg/logging"
	"github.com/iota-uz/wfbench/pkg/metrics"
	"github.com/iota-uz/wfbench/pkg/workflow"
	"github.com/iota-uz/wfbench/pkg/workflow/persistence"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openStore(ctx, conf, logger)
	if err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer deps.close()

	bus := eventbus.NewEventPublisher(logger)
	subscribeRunLogging(bus, logger)

	engine, err := workflow.NewEngine(workflow.Options{
		Workers:     conf.Engine.Workers,
		QueueSize:   conf.Engine.QueueSize,
		MaxAttempts: conf.Engine.StepMaxAttempts,
		Backoff:     conf.Engine.StepBackoff,
		MaxBackoff:  conf.Engine.StepMaxBackoff,
		Store:       deps.store,
		EventBus:    bus,
		Logger:      logger.WithField("component", "workflow"),
	})
	if err != nil {
		log.Fatalf("failed to create workflow engine: %v", err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     deps.pool,
		Redis:    deps.redis,
		EventBus: bus,
		Logger:   logger,
	})
	if err := application.LoadModules(app, benchmark.NewModule(engine, conf.Benchmark, logger)); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.Origin)
	serveErr := serverInstance.Serve(ctx, conf.SocketAddress, conf.ShutdownTimeout)

	closeCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
	defer cancel()
	if err := engine.Close(closeCtx); err != nil {
		logger.WithError(err).Warn("workflow engine did not drain in time")
	}
	if serveErr != nil {
		log.Fatalf("server stopped: %v", serveErr)
	}
}

type storeDeps struct {
	store workflow.Store
	pool  *pgxpool.Pool
	redis *redis.Client
}

func (d storeDeps) close() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

func openStore(ctx context.Context, conf *configuration.Configuration, logger *logrus.Logger) (storeDeps, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch conf.Engine.Store {
	case "postgres":
		pool, err := pgxpool.New(ctx, conf.Database.Opts)
		if err != nil {
			return storeDeps{}, err
		}
		store, err := persistence.NewPostgresStore(pool, "", "")
		if err != nil {
			pool.Close()
			return storeDeps{}, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return storeDeps{}, err
		}
		logger.Info("workflow runs persisted to postgres")
		return storeDeps{store: store, pool: pool}, nil
	case "redis":
		opts, err := redis.ParseURL(redisURL(conf.RedisURL))
		if err != nil {
			return storeDeps{}, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return storeDeps{}, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("workflow runs persisted to redis")
		return storeDeps{
			store: persistence.NewRedisStore(client, conf.Engine.RedisPrefix, conf.Engine.RunTTL),
			redis: client,
		}, nil
	default:
		return storeDeps{store: workflow.NewMemoryStore(0)}, nil
	}
}

// redisURL accepts both a bare host:port and a redis:// URL.
func redisURL(v string) string {
	if strings.HasPrefix(v, "redis://") || strings.HasPrefix(v, "rediss://") {
		return v
	}
	return "redis://" + v
}

func subscribeRunLogging(bus eventbus.EventBus, logger *logrus.Logger) {
	bus.Subscribe(func(ev *workflow.RunFailed) {
		logger.WithFields(logrus.Fields{
			"run_id":   ev.RunID,
			"workflow": ev.Workflow,
			"duration": ev.Duration,
		}).WithError(ev.Err).Warn("workflow run failed")
	})
	bus.Subscribe(func(ev *workflow.RunCompleted) {
		logger.WithFields(logrus.Fields{
			"run_id":   ev.RunID,
			"workflow": ev.Workflow,
			"duration": ev.Duration,
		}).Debug("workflow run completed")
	})
}
