package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/blogify/blog-api/internal/core/ports"
)

const (
	maxRetry    = 5
	taskTimeout = 30 * time.Second
)

// enqueuer is the subset of *asynq.Client used by Queue.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue implements ports.VerificationMailer by enqueuing tasks for the worker.
type Queue struct {
	client      enqueuer
	frontendURL string
	log         zerolog.Logger
}

var _ ports.VerificationMailer = (*Queue)(nil)

func NewQueue(client *asynq.Client, frontendURL string, log zerolog.Logger) *Queue {
	return &Queue{client: client, frontendURL: frontendURL, log: log}
}

func (q *Queue) SendVerification(ctx context.Context, msg ports.VerificationMessage) error {
	task, err := NewVerificationTask(VerificationPayload{
		To:   msg.To,
		Name: msg.Name,
		Link: VerificationLink(q.frontendURL, msg.Token, msg.To),
	})
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
	)
	if err != nil {
		return fmt.Errorf("enqueue verification: %w", err)
	}

	q.log.Debug().Str("task_id", info.ID).Str("to", msg.To).Msg("verification email queued")
	return nil
}
