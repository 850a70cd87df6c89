package main

import (
	"chatview/backend/internal/api/handler"
	"chatview/backend/internal/chathub"
	"chatview/backend/internal/config"
	"chatview/backend/internal/identity"
	"chatview/backend/internal/localization"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/membership"
	"chatview/backend/internal/presence"
	"chatview/backend/internal/queue"
	"chatview/backend/internal/router"
	"chatview/backend/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	log := logging.L()

	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect redis")
	}

	log.Info().Str("driver", cfg.Database.Driver).Msg("database and redis connections established, migrations complete")
	return db, rdb
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logging.L().Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "chatview"})
	log := logging.L()
	log.Info().Msg("starting chatview backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, *log)

	db, rdb := setupDependencies(ctx, cfg)
	defer rdb.Close()

	s := storage.NewStorageService(db)
	queues := queue.NewManager(queue.NewRedisBroker(rdb, cfg.Queue.Prefix), cfg.Queue.ReadTimeout)
	tracker := presence.NewTracker(s)
	auth := identity.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	localizer, err := localization.NewLocalizer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load translations")
	}

	hub := chathub.NewHub()
	relay := chathub.NewRedisRelay(rdb, cfg.Redis.RelayChannel, hub)
	hub.SetRelay(relay)

	rt := router.NewRouter(s, tracker, queues, hub, auth)
	bridge := chathub.NewBridge(hub, tracker, rt, localizer)
	members := membership.NewManager(s, queues, bridge)
	bridge.SetMembershipChecker(members)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(*log))
	handler.NewHandler(members, rt, bridge, auth, cfg.WebSocket).RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return relay.Listen(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
