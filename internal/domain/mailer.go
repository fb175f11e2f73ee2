package domain

import "context"

// Mailer delivers a plain-text message. A nil error means the message was
// handed to the transport, not that it reached the inbox.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
