package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const verificationSubject = "Verify your email"

// Worker consumes mail tasks and hands them to a Sender.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	log    zerolog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Concurrency int
	Sender      Sender
	Logger      zerolog.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	w := &Worker{sender: cfg.Sender, log: cfg.Logger}
	w.server = asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{QueueMail: 1},
		Logger:      asynqLogger{log: cfg.Logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			cfg.Logger.Error().Err(err).Str("task_type", task.Type()).Msg("mail task failed")
		}),
	})
	w.mux = asynq.NewServeMux()
	w.mux.HandleFunc(TaskTypeVerificationEmail, w.HandleVerification)
	return w
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("mail worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// HandleVerification processes TaskTypeVerificationEmail tasks. Malformed
// payloads are not retried.
func (w *Worker) HandleVerification(ctx context.Context, t *asynq.Task) error {
	var payload VerificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode verification payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" || payload.Link == "" {
		return fmt.Errorf("verification payload missing recipient or link: %w", asynq.SkipRetry)
	}

	msg := Message{
		To:      payload.To,
		Subject: verificationSubject,
		Body:    verificationBody(payload),
	}
	if err := w.sender.Send(ctx, msg); err != nil {
		return err
	}
	w.log.Info().Str("to", payload.To).Msg("verification email sent")
	return nil
}

func verificationBody(p VerificationPayload) string {
	name := p.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nIf you did not create an account you can ignore this message.\n", name, p.Link)
}

// asynqLogger routes asynq's internal logging to zerolog.
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }

// IsSkipRetry reports whether err stops asynq from retrying the task.
func IsSkipRetry(err error) bool {
	return errors.Is(err, asynq.SkipRetry)
}
