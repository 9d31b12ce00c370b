package notifier

import "context"

// Message is one outbound transactional email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Notifier sends transactional email. Delivery is best-effort and
// at-most-once: callers log failures and never retry or roll back the
// state change the message describes.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
