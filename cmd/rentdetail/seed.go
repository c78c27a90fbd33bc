package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rentdetail/internal/domain/listings"
	"rentdetail/internal/infra/broker/kafka"
	"rentdetail/internal/infra/config"
	"rentdetail/internal/infra/db/mongo"
	"rentdetail/internal/infra/obs"
	"rentdetail/internal/infra/storage/memory"
	"rentdetail/internal/infra/storage/s3"
)

func newSeedCmd() *cobra.Command {
	var (
		fixtures  string
		imagesDir string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load listing fixtures into MongoDB",
		Long: `Load listing fixtures into the MongoDB collection, uploading local images to S3
when --images-dir is set and announcing the reload on Kafka when brokers are configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), fixtures, imagesDir)
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "fixtures file (defaults to LISTINGS_FIXTURES)")
	cmd.Flags().StringVar(&imagesDir, "images-dir", "", "directory holding image files referenced by the fixtures")
	return cmd
}

func runSeed(ctx context.Context, fixtures, imagesDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := obs.NewLogger(cfg.Env)
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI is required for seeding")
	}
	if fixtures == "" {
		fixtures = cfg.ListingsFixtures
	}

	staged := memory.NewListingRepository()
	n, err := staged.LoadFixtures(ctx, fixtures, logger)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no listings in %s", fixtures)
	}
	items, err := staged.All(ctx)
	if err != nil {
		return err
	}

	if imagesDir != "" {
		if cfg.S3Endpoint == "" {
			return errors.New("S3_ENDPOINT is required with --images-dir")
		}
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
			return err
		}
		for i := range items {
			items[i].Image = uploadImage(ctx, images, imagesDir, items[i], logger)
		}
	}

	client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() { _ = client.Close(context.Background()) }()
	repo := mongo.NewListingRepository(client.DB, cfg.MongoCollection, logger)
	for _, item := range items {
		if err := repo.Save(ctx, item); err != nil {
			return fmt.Errorf("save listing %s: %w", item.ID, err)
		}
	}
	logger.Info("listings seeded", "count", len(items), "collection", cfg.MongoCollection)

	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaInvalidationTopic, nil)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	defer producer.Close()
	return producer.Publish(ctx, listings.ChangedEvent{Name: listings.EventListingsReset, At: time.Now()})
}

// uploadImage returns the object key for a local image, or the original reference when
// there is nothing to upload.
func uploadImage(ctx context.Context, images s3.Uploader, dir string, l listings.Listing, logger *slog.Logger) string {
	ref := l.Image
	if ref == "" || strings.Contains(ref, "://") {
		return ref
	}
	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(ref)))
	if err != nil {
		logger.Warn("image file not found, keeping reference", "listing_id", l.ID, "image", ref)
		return ref
	}
	defer f.Close()

	key := path.Join("listings", string(l.ID), path.Base(filepath.ToSlash(ref)))
	contentType := mime.TypeByExtension(filepath.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	stored, err := images.Upload(ctx, key, f, contentType)
	if err != nil {
		logger.Error("image upload failed", "listing_id", l.ID, "error", err)
		return ref
	}
	return stored
}
