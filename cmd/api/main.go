// Command api serves the blog HTTP API.
//
// @title                       Blogify API
// @version                     1.0
// @description                 Blog platform with role-based access control and live post notifications.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/blogify/blog-api/internal/api"
	"github.com/blogify/blog-api/internal/api/middleware"
	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/service"
	"github.com/blogify/blog-api/internal/infrastructure/db/mongo"
	"github.com/blogify/blog-api/internal/infrastructure/db/redis"
	"github.com/blogify/blog-api/internal/infrastructure/http/handlers"
	"github.com/blogify/blog-api/internal/infrastructure/mail"
	"github.com/blogify/blog-api/internal/infrastructure/notify"
	"github.com/blogify/blog-api/internal/infrastructure/queue"
	"github.com/blogify/blog-api/internal/pkg/config"
	"github.com/blogify/blog-api/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	eventBuffer     = 256
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Service: "blog-api",
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "blog-api"})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mongo")
	}
	defer func() {
		if err := mongo.Disconnect(mongoClient); err != nil {
			log.Error().Err(err).Msg("mongo disconnect error")
		}
	}()

	redisCfg := redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	accounts := mongo.NewAccountRepository(db)
	posts := mongo.NewPostRepository(db)
	if err := mongo.EnsureIndexes(ctx, accounts, posts); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisCfg.Addr, Password: redisCfg.Password, DB: redisCfg.DB})
	defer asynqClient.Close()

	hub := notify.NewHub(logger.Component("notify"))
	dispatcher := queue.NewDispatcher(eventBuffer, hub, logger.Component("dispatcher"))

	table := domain.DefaultPermissionTable()
	tokens := service.NewTokenIssuer(service.TokenIssuerConfig{
		AccessSecret:  cfg.Auth.JWTSecret,
		RefreshSecret: cfg.Auth.JWTRefreshSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	authService := service.NewAuthService(
		accounts,
		tokens,
		mail.NewQueue(asynqClient, cfg.FrontendURL, logger.Component("mail_queue")),
		table,
		service.AuthServiceConfig{
			BcryptCost: cfg.Auth.BcryptCost,
			Lockout:    domain.LockoutPolicy{MaxAttempts: cfg.Auth.MaxLoginAttempts, LockDuration: cfg.Auth.LockDuration},
		},
		logger.Component("auth"),
	)

	e := api.NewRouter(api.Deps{
		Config:   cfg,
		Logger:   log,
		Tokens:   tokens,
		Gate:     middleware.NewGate(service.NewAuthorizer(), accounts),
		Limiter:  redis.NewRateLimiter(rdb),
		Auth:     authService,
		Accounts: service.NewAccountService(accounts, table, logger.Component("accounts")),
		Posts:    service.NewPostService(posts, dispatcher, logger.Component("posts")),
		Events:   hub,
		Readiness: handlers.NewReadinessHandler(map[string]handlers.Check{
			"mongodb": handlers.MongoCheck(db),
			"redis":   handlers.RedisCheck(rdb),
		}, hub),
	})

	g, gctx := errgroup.WithContext(ctx)

	dispatcher.Start(gctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown signal received")

		// Open push streams only end once their subscription channels close.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
			return e.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
	dispatcher.Wait()
	log.Info().Msg("server exited cleanly")
}
