package server

import (
	"context"
	"errors"

	"backend-nepaltrip/internal/ai"
	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/auth"
	"backend-nepaltrip/internal/config"
	"backend-nepaltrip/internal/contact"
	"backend-nepaltrip/internal/discover"
	"backend-nepaltrip/internal/feed"
	"backend-nepaltrip/internal/media"
	"backend-nepaltrip/internal/stream"
	"backend-nepaltrip/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultBodyLimit = 4 << 20

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Log    *zap.Logger

	backends *backends
	cancel   context.CancelFunc
}

// NewServer builds the backends selected by cfg and mounts every route.
// pg and redisClient may be nil; features that need them answer 503.
func NewServer(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)

	b, err := openBackends(ctx, cfg, pg, redisClient, log)
	if err != nil {
		cancel()
		return nil, err
	}

	app := fiber.New(fiber.Config{BodyLimit: bodyLimit(cfg.UploadMaxBytes)})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       pg,
		Redis:    redisClient,
		Stream:   stream.NewHub(ctx, redisClient, log),
		Log:      log,
		backends: b,
		cancel:   cancel,
	}

	registerRoutes(ctx, s)
	return s, nil
}

// Close stops the feed mirror and the hub relay and releases the backends
// the server opened itself. pg and redis stay with the caller.
func (s *Server) Close() {
	s.cancel()
	s.backends.close(s.Log)
}

func bodyLimit(uploadMax int64) int {
	// room for the multipart envelope around the largest upload
	limit := int(uploadMax) + 1<<20
	return max(limit, defaultBodyLimit)
}

func unavailable(what string) fiber.Handler {
	return func(*fiber.Ctx) error {
		return apperr.Fiber(apperr.Configuration("%s unavailable: database not connected", what))
	}
}

func registerRoutes(ctx context.Context, s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"ai":       s.backends.ai.Configured(),
			"database": s.DB != nil,
			"redis":    s.Redis != nil,
			"feed":     s.Cfg.FeedBackend,
			"media":    s.Cfg.MediaBackend,
		})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	q := s.backends.querier

	feedSvc := feed.NewService(s.backends.feed, s.Log)
	if q != nil {
		authSvc := auth.NewService(s.Cfg.JWTSecret, q)
		feedSvc.WithAuthors(authSvc)
		auth.RegisterRoutes(s.App.Group("/auth"), authSvc)
		trip.RegisterRoutes(s.App.Group("/trips"), trip.NewService(q, s.backends.ai), jwtMiddleware)
	} else {
		s.App.Use("/auth", unavailable("accounts"))
		s.App.Use("/trips", unavailable("trips"))
	}

	ai.RegisterRoutes(s.App.Group("/ai"), s.backends.ai)
	discover.RegisterRoutes(s.App.Group("/discover"),
		discover.NewService(s.backends.ai, s.Cfg.DiscoverTTL, s.Log))

	feedGroup := s.App.Group("/feed", auth.OptionalJWTMiddleware(s.Cfg.JWTSecret))
	feed.RegisterRoutes(feedGroup, feedSvc, jwtMiddleware)
	mirrorFeed(ctx, feedSvc, s.Stream, s.Log)

	contact.RegisterRoutes(s.App.Group("/contacts"), contact.NewService(s.backends.kv), jwtMiddleware)
	media.RegisterRoutes(s.App.Group("/media"),
		media.NewService(s.backends.uploader, q, s.Cfg.UploadMaxBytes, s.Log), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// mirrorFeed pushes feed snapshots to websocket clients on the feed channel
// when the backend can report changes. The mirror stops with ctx.
func mirrorFeed(ctx context.Context, svc *feed.Service, hub *stream.Hub, log *zap.Logger) {
	_, err := svc.Mirror(ctx, hub)
	switch {
	case errors.Is(err, feed.ErrNoPush):
		log.Info("feed backend has no change push; websocket feed channel stays idle")
	case err != nil:
		log.Warn("feed mirror not started", zap.Error(err))
	default:
		log.Info("feed changes mirrored", zap.String("channel", feed.FeedChannel))
	}
}
