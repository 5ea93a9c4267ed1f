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
	"github.com/ndevops25/e-commerce-microservices/internal/router"

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

	db, err := infra.NewDatabase(cfg.DatabaseURL, &model.Product{}, &model.AppliedDelivery{}, &model.PriceHistory{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	peers := peer.NewClient(
		map[string]string{
			peer.ServiceCategories: cfg.CategoriesURL,
			peer.ServiceSuppliers:  cfg.SuppliersURL,
		},
		cfg.PeerTimeout(),
		peer.WithMaxAttempts(cfg.PeerMaxRetries),
	)

	r := router.Products(cfg, db, peers)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("products service listening on :%d", cfg.Port)
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
