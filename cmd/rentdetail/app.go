package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"

	"rentdetail/internal/app/commands"
	"rentdetail/internal/app/dto"
	listingapp "rentdetail/internal/app/handlers/listings"
	"rentdetail/internal/app/middleware"
	"rentdetail/internal/app/queries"
	"rentdetail/internal/domain/listings"
	"rentdetail/internal/infra/cache"
	"rentdetail/internal/infra/config"
	"rentdetail/internal/infra/db/mongo"
	"rentdetail/internal/infra/obs"
	"rentdetail/internal/infra/storage/memory"
	"rentdetail/internal/infra/storage/s3"
	"rentdetail/internal/infra/upstream"
)

type application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *cache.Store
	images   s3.ImageResolver
	queries  queries.Bus
	commands commands.Bus
	checks   map[string]obs.Check
	closers  []func(context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger, checks: map[string]obs.Check{}}

	source, err := app.listingSource(ctx)
	if err != nil {
		_ = app.close(ctx)
		return nil, err
	}

	opts := cache.Options{
		TTL:          cfg.CacheTTL,
		MaxSize:      cfg.CacheMaxSize,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       logger,
	}
	if cfg.MemcachedAddr != "" {
		opts.Remote = memcache.New(cfg.MemcachedAddr)
		logger.Info("memcached level enabled", "addr", cfg.MemcachedAddr)
	}
	app.store = cache.NewStore(source, opts)
	app.closers = append(app.closers, func(context.Context) error {
		app.store.Close()
		return nil
	})
	app.checks["listings"] = func(context.Context) error { return app.store.Ready() }

	app.images = s3.PassThrough{}
	if cfg.S3Endpoint != "" {
		images, err := s3.NewImages(s3.Options{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			UseSSL:         cfg.S3UseSSL,
			PresignTTL:     cfg.S3PresignTTL,
		}, logger)
		if err != nil {
			_ = app.close(ctx)
			return nil, fmt.Errorf("configure image storage: %w", err)
		}
		app.images = images
	}

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[listingapp.GetDetailQuery, dto.ListingDetail](queryBus, listingapp.GetDetailQuery{}.Key(),
		&listingapp.GetDetailHandler{Catalog: app.store, Images: app.images})
	queries.RegisterHandler[listingapp.SearchCatalogQuery, dto.ListingCatalog](queryBus, listingapp.SearchCatalogQuery{}.Key(),
		&listingapp.SearchCatalogHandler{Catalog: app.store, Images: app.images})

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[listingapp.InvalidateCatalogCommand, listingapp.InvalidationResult](commandBus,
		listingapp.InvalidateCatalogCommand{}.Key(), &listingapp.InvalidateCatalogHandler{Catalog: app.store})

	app.queries = middleware.ChainQueries(queryBus,
		middleware.QueryLogging(logger, obs.RequestIDFromContext),
		middleware.QueryTimeout(cfg.FetchTimeout),
	)
	app.commands = middleware.ChainCommands(commandBus,
		middleware.CommandLogging(logger, obs.RequestIDFromContext),
		middleware.Authorization(middleware.TokenAuthorizer{Token: cfg.AdminToken}),
	)
	return app, nil
}

func (a *application) listingSource(ctx context.Context) (listings.Source, error) {
	switch a.cfg.ListingsSource {
	case config.SourceMongo:
		client, err := mongo.New(ctx, a.cfg.MongoURI, a.cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.checks["mongo"] = client.Ping
		a.logger.Info("listing source: mongo", "db", a.cfg.MongoDB, "collection", a.cfg.MongoCollection)
		return mongo.NewListingRepository(client.DB, a.cfg.MongoCollection, a.logger), nil
	case config.SourceHTTP:
		a.logger.Info("listing source: upstream", "url", a.cfg.ListingsUpstreamURL)
		return upstream.NewClient(a.cfg.ListingsUpstreamURL, a.cfg.FetchTimeout, a.logger), nil
	default:
		repo := memory.NewListingRepository()
		if _, err := repo.LoadFixtures(ctx, a.cfg.ListingsFixtures, a.logger); err != nil {
			a.logger.Warn("listing fixtures load failed", "error", err, "path", a.cfg.ListingsFixtures)
		}
		return repo, nil
	}
}

func (a *application) imageURL(ctx context.Context) dto.ImageURLFunc {
	return func(ref string) string { return a.images.ImageURL(ctx, ref) }
}

func (a *application) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
