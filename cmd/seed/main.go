// Command seed creates the first super_admin account when none exists.
package main

import (
	"context"
	"time"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/service"
	"github.com/blogify/blog-api/internal/infrastructure/db/mongo"
	"github.com/blogify/blog-api/internal/pkg/config"
	"github.com/blogify/blog-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Service: "blog-seed",
		Level:   cfg.LogLevel,
		Pretty:  true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "blog-seed"})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mongo")
	}
	defer func() { _ = mongo.Disconnect(client) }()

	accounts := mongo.NewAccountRepository(db)
	if err := mongo.EnsureIndexes(ctx, accounts); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	svc := service.NewAccountService(accounts, domain.DefaultPermissionTable(), logger.Component("seed"))
	created, err := svc.BootstrapSuperAdmin(ctx, cfg.Seed.AdminName, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed super admin")
	}
	if !created {
		log.Info().Msg("super admin already exists, nothing to do")
		return
	}
	log.Info().Str("email", cfg.Seed.AdminEmail).Msg("super admin created, change the password after first login")
}
