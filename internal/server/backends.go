package server

import (
	"context"
	"fmt"

	"backend-nepaltrip/internal/ai"
	"backend-nepaltrip/internal/config"
	"backend-nepaltrip/internal/db"
	"backend-nepaltrip/internal/feed"
	"backend-nepaltrip/internal/kv"
	"backend-nepaltrip/internal/media"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "nepaltrip:kv:"

type closer struct {
	name string
	fn   func() error
}

// backends holds the adapters selected by configuration.
type backends struct {
	querier  db.Querier
	kv       kv.Namespace
	feed     feed.Store
	uploader media.Uploader
	ai       *ai.Gateway

	fb      *firebase.App
	closers []closer
}

var connectFirebaseFn = db.ConnectFirebase

func openBackends(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, log *zap.Logger) (*backends, error) {
	b := &backends{}
	// a nil pool must stay a nil interface
	if pg != nil {
		b.querier = pg
	}

	steps := []func(context.Context, config.Config, *redis.Client, *zap.Logger) error{
		b.openKV,
		b.openFeed,
		b.openUploader,
		b.openAI,
	}
	for _, step := range steps {
		if err := step(ctx, cfg, rdb, log); err != nil {
			b.close(log)
			return nil, err
		}
	}
	log.Info("backends ready",
		zap.String("feed", cfg.FeedBackend),
		zap.String("kv", cfg.KVBackend),
		zap.String("media", cfg.MediaBackend),
		zap.Bool("ai", b.ai.Configured()))
	return b, nil
}

func (b *backends) openKV(ctx context.Context, cfg config.Config, rdb *redis.Client, _ *zap.Logger) error {
	switch cfg.KVBackend {
	case "sqlite":
		store, err := kv.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		b.kv = store
		b.closers = append(b.closers, closer{"sqlite", store.Close})
	case "redis", "":
		if rdb == nil {
			return fmt.Errorf("KV_BACKEND=redis requires REDIS_ADDR")
		}
		b.kv = kv.NewRedis(rdb, redisKeyPrefix)
	default:
		return fmt.Errorf("unknown KV_BACKEND %q", cfg.KVBackend)
	}
	return nil
}

func (b *backends) openFeed(ctx context.Context, cfg config.Config, _ *redis.Client, log *zap.Logger) error {
	switch cfg.FeedBackend {
	case "local", "":
		b.feed = feed.NewLocal(b.kv, cfg.LocalOwnerID)
	case "postgres":
		if b.querier == nil {
			return fmt.Errorf("FEED_BACKEND=postgres requires a database connection")
		}
		b.feed = feed.NewPostgres(b.querier, log)
	case "firestore":
		app, err := b.firebase(ctx, cfg)
		if err != nil {
			return err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("firestore client: %w", err)
		}
		b.feed = feed.NewFirestore(client, cfg.LocalOwnerID, log)
		b.closers = append(b.closers, closer{"firestore", client.Close})
	default:
		return fmt.Errorf("unknown FEED_BACKEND %q", cfg.FeedBackend)
	}
	return nil
}

func (b *backends) openUploader(ctx context.Context, cfg config.Config, _ *redis.Client, _ *zap.Logger) error {
	switch cfg.MediaBackend {
	case "inline", "":
		b.uploader = media.Inline{}
	case "firebase":
		app, err := b.firebase(ctx, cfg)
		if err != nil {
			return err
		}
		up, err := media.NewFirebase(ctx, app, cfg.FirebaseStorageBucket)
		if err != nil {
			return err
		}
		b.uploader = up
	case "s3":
		up, err := media.NewS3(cfg.S3Bucket, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			return err
		}
		b.uploader = up
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", cfg.MediaBackend)
	}
	return nil
}

func (b *backends) openAI(ctx context.Context, cfg config.Config, _ *redis.Client, log *zap.Logger) error {
	gateway, err := ai.New(ctx, ai.Config{
		APIKey:      cfg.GeminiAPIKey,
		Timeout:     cfg.AITimeout,
		PlanTimeout: cfg.AIPlanTimeout,
		RatePerSec:  cfg.AIRatePerSec,
	}, log)
	if err != nil {
		return err
	}
	b.ai = gateway
	return nil
}

// firebase returns the app shared by the Firestore feed and the storage
// uploader, connecting on first use.
func (b *backends) firebase(ctx context.Context, cfg config.Config) (*firebase.App, error) {
	if b.fb != nil {
		return b.fb, nil
	}
	app, err := connectFirebaseFn(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.fb = app
	return app, nil
}

func (b *backends) close(log *zap.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		c := b.closers[i]
		if err := c.fn(); err != nil {
			log.Warn("close backend", zap.String("backend", c.name), zap.Error(err))
		}
	}
	b.closers = nil
}
