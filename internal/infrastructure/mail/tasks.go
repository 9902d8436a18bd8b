// Package mail queues and delivers account verification messages through asynq.
package mail

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueMail is the asynq queue holding outbound mail.
	QueueMail = "mail"
	// TaskTypeVerificationEmail is the task type for verification messages.
	TaskTypeVerificationEmail = "mail:verify"
)

// VerificationPayload describes the information required to send a verification email.
type VerificationPayload struct {
	To   string `json:"to"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// NewVerificationTask constructs an asynq task.
func NewVerificationTask(payload VerificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode verification payload: %w", err)
	}
	return asynq.NewTask(TaskTypeVerificationEmail, data), nil
}

// VerificationLink builds the frontend URL a recipient follows to verify.
// Format: <frontend>/verify-email?token=<token>&email=<email>
func VerificationLink(frontendURL, token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return strings.TrimRight(frontendURL, "/") + "/verify-email?" + q.Encode()
}
