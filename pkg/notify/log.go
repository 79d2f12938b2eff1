package notify

import (
	"context"
	"log/slog"

	"github.com/crissvargas/realestate/pkg/slogx"
)

// LogSender writes messages to the logger instead of delivering them.
// The body, which carries the code, is only logged when IncludeBody is set.
type LogSender struct {
	Logger      *slog.Logger
	IncludeBody bool
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	log := l.Logger
	if log == nil {
		log = slogx.FromContext(ctx)
	}

	attrs := []any{slogx.Email(msg.To), slog.String("subject", msg.Subject)}
	if msg.Tag != "" {
		attrs = append(attrs, slog.String("tag", msg.Tag))
	}
	if l.IncludeBody {
		attrs = append(attrs, slog.String("body", msg.TextBody))
	}
	log.InfoContext(ctx, "notification not delivered (log provider)", attrs...)
	return nil
}
