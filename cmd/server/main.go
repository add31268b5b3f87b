// Command server runs the blood bank engine: HTTP API, event worker, and the
// expiry sweeper. main wires dependencies and keeps the lifecycle small;
// business logic lives in the internal services packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"hemobank/internal/allocation"
	allocmetrics "hemobank/internal/allocation/metrics"
	"hemobank/internal/donor"
	donorservice "hemobank/internal/donor/service"
	"hemobank/internal/eligibility"
	"hemobank/internal/inventory"
	"hemobank/internal/inventory/holds"
	invmetrics "hemobank/internal/inventory/metrics"
	invservice "hemobank/internal/inventory/service"
	"hemobank/internal/issuance"
	"hemobank/internal/platform/config"
	"hemobank/internal/platform/httpserver"
	"hemobank/internal/platform/kafka"
	"hemobank/internal/platform/logger"
	"hemobank/internal/platform/metrics"
	"hemobank/internal/platform/middleware"
	platformredis "hemobank/internal/platform/redis"
	"hemobank/internal/request"
	reqmetrics "hemobank/internal/request/metrics"
	reqservice "hemobank/internal/request/service"
	httptransport "hemobank/internal/transport/http"
	"hemobank/pkg/platform/events"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var holdRegistry holds.Registry
	if redisClient != nil {
		defer redisClient.Close()
		holdRegistry = holds.NewRedisRegistry(redisClient.Client)
		log.Info("reservation holds backed by redis")
	} else {
		holdRegistry = holds.NewInMemoryRegistry()
	}

	publisher := events.NewChannelPublisher(cfg.EventBuffer, log)
	var workerOpts []events.WorkerOption
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close()
		if err := producer.EnsureTopics(ctx, events.Topics()...); err != nil {
			return fmt.Errorf("ensure kafka topics: %w", err)
		}
		workerOpts = append(workerOpts, events.WithSink(events.NewKafkaSink(producer)))
		log.Info("event sink enabled", "brokers", cfg.KafkaBrokers)
	}
	worker := events.NewWorker(stores.events, publisher.Events(), log, workerOpts...)

	ledger, err := invservice.New(stores.units, stores.donors, holdRegistry,
		invservice.WithLogger(log),
		invservice.WithPublisher(publisher),
		invservice.WithMetrics(invmetrics.New()),
		invservice.WithReservationGrace(cfg.ReservationGrace),
	)
	if err != nil {
		return err
	}
	gate, err := eligibility.NewGate(stores.donors, stores.requests, eligibility.WithLogger(log))
	if err != nil {
		return err
	}
	donorSvc, err := donorservice.New(stores.donors, gate, donorservice.WithLogger(log))
	if err != nil {
		return err
	}
	matcher, err := allocation.NewMatcher(ledger,
		allocation.WithLogger(log),
		allocation.WithMetrics(allocmetrics.New()),
	)
	if err != nil {
		return err
	}
	requestSvc, err := reqservice.New(stores.requests, gate, matcher, ledger, stores.issuances,
		reqservice.WithLogger(log),
		reqservice.WithPublisher(publisher),
		reqservice.WithMetrics(reqmetrics.New()),
	)
	if err != nil {
		return err
	}
	sweeper := invservice.NewSweeper(ledger, cfg.SweepInterval, log)

	validator := middleware.NewJWTValidator(cfg.JWTSigningKey)
	handler := httptransport.NewHandler(donorSvc, gate, ledger, requestSvc, log)
	router := httptransport.NewRouter(handler, validator, metrics.NewHTTP())
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCancel(worker.Run(ctx))
	})
	g.Go(func() error {
		return ignoreCancel(sweeper.Run(ctx))
	})
	g.Go(func() error {
		log.Info("starting hemobank", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type storeSet struct {
	donors    donor.Store
	units     inventory.Store
	requests  request.Store
	issuances issuance.Store
	events    events.Store
}

// buildStores selects durable stores when POSTGRES_URL is set and falls back
// to in-memory stores for development.
func buildStores(ctx context.Context, cfg config.Config) (storeSet, func(), error) {
	if cfg.PostgresURL == "" {
		return storeSet{
			donors:    donor.NewInMemoryStore(),
			units:     inventory.NewInMemoryStore(),
			requests:  request.NewInMemoryStore(),
			issuances: issuance.NewInMemoryStore(),
			events:    events.NewInMemoryStore(),
		}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return storeSet{}, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return storeSet{}, nil, fmt.Errorf("ping postgres: %w", err)
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		db.Close()
		return storeSet{}, nil, fmt.Errorf("open pgx pool: %w", err)
	}

	cleanup := func() {
		pool.Close()
		db.Close()
	}
	return storeSet{
		donors:    donor.NewPostgres(db),
		units:     inventory.NewPostgres(pool),
		requests:  request.NewPostgres(db),
		issuances: issuance.NewPostgres(db),
		events:    events.NewPostgresStore(db),
	}, cleanup, nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
