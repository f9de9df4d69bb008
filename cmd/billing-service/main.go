package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/nurpe/policy-billing/internal/auth"
	"github.com/nurpe/policy-billing/internal/config"
	"github.com/nurpe/policy-billing/internal/db"
	"github.com/nurpe/policy-billing/internal/excel"
	httphandler "github.com/nurpe/policy-billing/internal/http"
	"github.com/nurpe/policy-billing/internal/http/middleware"
	"github.com/nurpe/policy-billing/internal/jobs"
	"github.com/nurpe/policy-billing/internal/logger"
	"github.com/nurpe/policy-billing/internal/metrics"
	"github.com/nurpe/policy-billing/internal/pdf"
	"github.com/nurpe/policy-billing/internal/repository"
	"github.com/nurpe/policy-billing/internal/seed"
	"github.com/nurpe/policy-billing/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	billingMetrics := metrics.New(registry)

	store := repository.NewGormStore(database)
	accounting := service.NewAccountingService(store, log, service.WithMetrics(billingMetrics))

	if cfg.SeedDemo {
		seeded, err := seed.Run(context.Background(), store, accounting)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed demo data")
		}
		log.Info().Bool("seeded", seeded).Msg("demo data checked")
	}

	scheduler := cron.New(cron.WithLocation(time.UTC))
	sweep := jobs.NewCancellationSweep(accounting, cfg.Billing.CancellationReason, log)
	if _, err := sweep.Schedule(scheduler, cfg.Billing.CancellationSchedule); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule cancellation sweep")
	}
	scheduler.Start()

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(accounting, excel.NewGenerator(), pdf.NewGenerator(), billingMetrics, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.CORSOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("cancellation_schedule", cfg.Billing.CancellationSchedule).
			Msg("starting billing service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	<-scheduler.Stop().Done()
}
