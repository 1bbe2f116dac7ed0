package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kadm"
	"golang.org/x/sync/errgroup"

	"trustlink/internal/attestation/events"
	"trustlink/internal/attestation/handler"
	attestationmetrics "trustlink/internal/attestation/metrics"
	"trustlink/internal/attestation/service"
	"trustlink/internal/attestation/store"
	"trustlink/internal/attestation/tracing"
	jwttoken "trustlink/internal/jwt_token"
	"trustlink/internal/platform/config"
	"trustlink/internal/platform/httpserver"
	"trustlink/internal/platform/kafka"
	"trustlink/internal/platform/logger"
	httpmetrics "trustlink/internal/platform/metrics"
	"trustlink/internal/platform/postgres"
	"trustlink/internal/platform/redis"
	id "trustlink/pkg/domain"
	"trustlink/pkg/platform/middleware/request"
	"trustlink/pkg/platform/middleware/requesttime"
	"trustlink/pkg/platform/middleware/version"
)

// main wires the registry: config, storage backend, event sinks and the HTTP
// surface. Business logic lives in internal/attestation.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("trustlink exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("trustlink stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registryMetrics := attestationmetrics.NewWithRegisterer(reg)

	st, health, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	g, gctx := errgroup.WithContext(ctx)

	publishers := events.Multi{events.NewLogPublisher(log)}
	stopEvents := func() {}
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafka.New(ctx, cfg.Kafka)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := events.EnsureTopic(ctx, kadm.NewClient(client), cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return err
		}
		kp := events.NewKafkaPublisher(client, cfg.Kafka.Topic,
			events.WithKafkaLogger(log),
			events.WithKafkaMetrics(registryMetrics),
			events.WithQueueSize(cfg.Kafka.QueueSize),
		)
		publishers = append(publishers, kp)
		stopEvents = kp.Close
		g.Go(func() error { return kp.Run(gctx) })
		log.Info("kafka event stream enabled", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	svc := service.New(st,
		service.WithLogger(log),
		service.WithPublisher(publishers),
		service.WithMetrics(registryMetrics),
		service.WithTracer(tracing.Tracer()),
	)

	if cfg.Auth.UsesDefaultSigningKey() {
		log.Warn("JWT_SIGNING_KEY is the public development default; set a private key before exposing this server")
	}
	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	h := handler.New(svc, jwttoken.NewJWTServiceAdapter(jwtService), log)

	router := newRouter(h, health, httpmetrics.New(reg), cfg.Server.RequestTimeout, log)
	apiServer := httpserver.New(cfg.Server.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsServer := httpserver.New(cfg.Server.MetricsAddr, metricsMux)

	for _, srv := range []*http.Server{apiServer, metricsServer} {
		g.Go(func() error {
			log.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		// In-flight requests may still publish until the API server is down.
		err := apiServer.Shutdown(shutdownCtx)
		stopEvents()
		return errors.Join(err, metricsServer.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

// healthFunc reports whether the store backend is reachable.
type healthFunc func(ctx context.Context) error

func newRouter(h *handler.Handler, health healthFunc, m *httpmetrics.Metrics, timeout time.Duration, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(m.Middleware)
	r.Use(chimw.Timeout(timeout))
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(version.ExtractVersion(id.APIVersionV1))
		h.Register(v1)
	})
	return r
}

func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, healthFunc, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("using redis store", "key_prefix", cfg.Redis.KeyPrefix)
		st := store.NewRedis(client.Client,
			store.WithKeyPrefix(cfg.Redis.KeyPrefix),
			store.WithRedisMaxRetries(cfg.Store.MaxRetries),
		)
		return st, client.Health, func() { _ = client.Close() }, nil
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		st := store.NewPostgres(db, store.WithPostgresMaxRetries(cfg.Store.MaxRetries))
		if cfg.Postgres.Migrate {
			if err := st.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
		}
		log.Info("using postgres store")
		return st, db.PingContext, func() { _ = db.Close() }, nil
	default:
		log.Warn("using in-memory store; registry state is lost on restart")
		return store.NewInMemory(), func(context.Context) error { return nil }, func() {}, nil
	}
}
