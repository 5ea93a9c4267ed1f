package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/config"
	"github.com/ndevops25/e-commerce-microservices/internal/infra"
	"github.com/ndevops25/e-commerce-microservices/internal/model"
	"github.com/ndevops25/e-commerce-microservices/internal/peer"
	"github.com/ndevops25/e-commerce-microservices/internal/repository"
	"github.com/ndevops25/e-commerce-microservices/internal/router"
	"github.com/ndevops25/e-commerce-microservices/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, &model.Supplier{}, &model.SupplierContact{}, &model.Delivery{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	peers := peer.NewClient(
		map[string]string{peer.ServiceProducts: cfg.ProductsURL},
		cfg.PeerTimeout(),
		peer.WithMaxAttempts(cfg.PeerMaxRetries),
	)

	// Propagation workers and the redrive cron are started here (composition
	// root) so they share the repository and peer client with the API.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	supplierRepo := repository.NewSupplierRepository(db)
	propagator := worker.NewPropagator(supplierRepo, peers, rdb, cfg.MaxDeliveryAttempts)
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, propagator)

	if cfg.RedrivePolicy == "manual" {
		log.Info().Msg("redrive policy is manual, overdue deliveries wait for an operator")
	} else {
		worker.StartRedriveCron(ctx, worker.RedriveCronConfig{
			Deliveries: supplierRepo,
			Dispatcher: worker.NewDispatcher(rdb),
			Breaker:    peers.Breaker(peer.ServiceProducts),
			Interval:   cfg.RedriveInterval(),
		})
	}

	r := router.Suppliers(cfg, db, rdb, peers)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("suppliers service listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
