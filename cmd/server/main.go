// Command server runs the cafeteria claim-validation service. main wires
// high-level dependencies and keeps the server lifecycle small; business
// logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"cafeteria/internal/claims/eligibility"
	"cafeteria/internal/claims/handler"
	claimmetrics "cafeteria/internal/claims/metrics"
	"cafeteria/internal/claims/service"
	"cafeteria/internal/claims/store/claim"
	"cafeteria/internal/claims/store/marker"
	"cafeteria/internal/fulfillment"
	"cafeteria/internal/platform/config"
	"cafeteria/internal/platform/httpserver"
	"cafeteria/internal/platform/logger"
	"cafeteria/internal/platform/metrics"
	"cafeteria/internal/platform/middleware"
	platformredis "cafeteria/internal/platform/redis"
	"cafeteria/internal/printer"
	"cafeteria/internal/schedule"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Error("ping database", "error", err.Error())
		os.Exit(1)
	}

	claimStore := claim.NewPostgres(db)
	if err := claimStore.EnsureSchema(context.Background()); err != nil {
		log.Error("ensure schema", "error", err.Error())
		os.Exit(1)
	}

	// Redis is optional; without it the duplicate fast path is off and the
	// unique index carries the full load.
	var svcMarker service.Marker
	var workerMarker fulfillment.Marker
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		m := marker.NewRedis(redisClient.Client)
		svcMarker = m
		workerMarker = m
	}

	sched, err := schedule.New(cfg.Windows)
	if err != nil {
		log.Error("build schedule", "error", err.Error())
		os.Exit(1)
	}
	engine := eligibility.New(cfg.BlockedHomerooms)

	cm := claimmetrics.New()
	httpMetrics := metrics.New()

	queue := fulfillment.NewQueue()
	printerClient := printer.New(cfg.Printer.Endpoint, cfg.Printer.Timeout, log,
		printer.WithTestMode(cfg.Printer.TestMode))
	worker := fulfillment.NewWorker(queue, printerClient, claimStore, workerMarker, cm, log)

	svc := service.New(sched, engine, claimStore, svcMarker, queue, cm, log)
	h := handler.New(svc, sched, cfg.Printer, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(httpMetrics))
	r.Handle("/metrics", promhttp.Handler())
	h.Register(r)

	srv := httpserver.New(cfg.Addr, r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting cafeteria service",
			"addr", cfg.Addr,
			"printer", cfg.Printer.Endpoint,
			"printer_test_mode", cfg.Printer.TestMode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("stopped")
}
