// Command worker delivers queued verification mail.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/blogify/blog-api/internal/infrastructure/mail"
	"github.com/blogify/blog-api/internal/pkg/config"
	"github.com/blogify/blog-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Service: "blog-worker",
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sender mail.Sender
	if cfg.Mail.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST not set, verification mail will only be logged")
		sender = mail.NewLogSender(logger.Component("mail_sender"))
	} else {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
		})
	}

	worker := mail.NewWorker(mail.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB},
		Sender:    sender,
		Logger:    logger.Component("mail_worker"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })

	log.Info().Str("queue", mail.QueueMail).Msg("mail worker started")
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("mail worker stopped with error")
	}
	log.Info().Msg("mail worker exited cleanly")
}
