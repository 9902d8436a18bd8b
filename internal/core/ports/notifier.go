package ports

import (
	"context"

	"github.com/blogify/blog-api/internal/core/domain"
)

// ChangeNotifier broadcasts content mutations. Publish must not block the caller
// and gives no delivery guarantee.
type ChangeNotifier interface {
	Publish(event domain.PostEvent)
}

// VerificationMessage is what the mailer needs to reach a new account.
type VerificationMessage struct {
	To    string
	Name  string
	Token string
}

// VerificationMailer hands verification messages to the delivery collaborator.
type VerificationMailer interface {
	SendVerification(ctx context.Context, msg VerificationMessage) error
}
