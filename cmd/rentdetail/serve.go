package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"rentdetail/internal/infra/broker/kafka"
	"rentdetail/internal/infra/config"
	ginserver "rentdetail/internal/infra/http/gin"
	"rentdetail/internal/infra/obs"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the listing detail pages and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.close(closeCtx); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil,
			kafka.InvalidationHandler{Commands: app.commands, Logger: logger}, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx, []string{cfg.KafkaInvalidationTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("invalidation consumer stopped", "error", err)
			}
		}()
		logger.Info("listening for listing changes", "topic", cfg.KafkaInvalidationTopic, "group", cfg.KafkaGroupID)
	}

	// warm the cache so the first page view does not wait on the source
	go func() {
		if err := app.store.FetchAll(ctx); err != nil {
			logger.Warn("initial listing fetch failed", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, ginserver.Handlers{
		Listing:    ginserver.ListingHandler{Queries: app.queries, Logger: logger},
		DetailPage: ginserver.DetailPage{Collection: app.store, Images: app.images, Wait: cfg.PageLoadingWait, Logger: logger},
		Admin:      ginserver.AdminHandler{Commands: app.commands, Logger: logger},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "source", cfg.ListingsSource)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
