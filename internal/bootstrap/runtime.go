// Package bootstrap wires the process-wide collaborators shared by every command.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rostrum/internal/cache"
	"rostrum/internal/config"
	"rostrum/internal/database"
	"rostrum/internal/events"
	"rostrum/internal/middleware"
	"rostrum/internal/observability"
	"rostrum/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ServiceName labels traces; empty disables tracing setup.
	ServiceName string
	// SkipBlobs leaves Blobs nil for commands that never touch pictures.
	SkipBlobs bool
}

// Runtime holds the connected collaborators.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Blobs  storage.BlobStore
	Events events.Publisher

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to the database and Redis, then builds the blob store
// and event publishers the config asks for.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{shutdownTracing: func(context.Context) error { return nil }}

	if opts.ServiceName != "" {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    opts.ServiceName,
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TracingSamplerRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	// May leave a nil client when Redis is unreachable.
	cache.InitRedis(cfg.RedisURL)
	rt.Redis = cache.GetClient()

	if !opts.SkipBlobs {
		blobs, err := NewBlobStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rt.Blobs = blobs
	}

	rt.Events = events.NopPublisher{}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		pub, err := events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		if err != nil {
			// Votes must keep working while the broker is down.
			middleware.Logger.Warn("Kafka unavailable, vote events will not be streamed",
				slog.String("error", err.Error()))
		} else {
			rt.Events = pub
		}
	}

	return rt, nil
}

// NewBlobStore returns MinIO when an endpoint is configured, else a disk
// store under BLOB_LOCAL_DIR.
func NewBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.BlobEndpoint != "" {
		store, err := storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  cfg.BlobEndpoint,
			AccessKey: cfg.BlobAccessKey,
			SecretKey: cfg.BlobSecretKey,
			Bucket:    cfg.BlobBucket,
			UseSSL:    cfg.BlobUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("blob store init failed: %w", err)
		}
		return store, nil
	}

	store, err := storage.NewDiskStore(cfg.BlobLocalDir)
	if err != nil {
		return nil, fmt.Errorf("blob store init failed: %w", err)
	}
	return store, nil
}

// Close releases every connection the runtime opened.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Events != nil {
		errs = append(errs, rt.Events.Close())
	}
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	database.Close()
	errs = append(errs, rt.shutdownTracing(ctx))
	return errors.Join(errs...)
}
