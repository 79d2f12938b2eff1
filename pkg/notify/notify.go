// Package notify delivers one-time codes to their destination.
//
// Every provider implements Sender. The auth service only knows about the
// interface; cmd/auth picks the implementation from configuration.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	ErrInvalidMessage = errors.New("notify: invalid message")
	ErrInvalidConfig  = errors.New("notify: invalid config")
)

// Message is a single outbound email. TextBody is required so every
// provider has a plain-text fallback; HTMLBody is optional.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body,omitempty"`
	TextBody string `json:"text_body"`
	Tag      string `json:"tag,omitempty"`
}

// Sender hands a message to a delivery provider. A nil error means the
// provider accepted it, not that it reached the inbox.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Validate checks the fields every provider depends on.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(m.To)); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, m.To, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.TextBody) == "" {
		return fmt.Errorf("%w: text body is required", ErrInvalidMessage)
	}
	return nil
}

func validateFrom(from string) error {
	if strings.TrimSpace(from) == "" {
		return fmt.Errorf("%w: sender address is required", ErrInvalidConfig)
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return fmt.Errorf("%w: sender address: %v", ErrInvalidConfig, err)
	}
	return nil
}
