package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// OutboxEntry is one line of the outbox file.
type OutboxEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message
}

// OutboxSender appends each message as a JSON line to a local file instead
// of delivering it. Used in development and by the end-to-end suite, which
// reads codes back out of the file.
type OutboxSender struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewOutboxSender(path string) (*OutboxSender, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: outbox path is required", ErrInvalidConfig)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("outbox: create directory: %w", err)
	}
	return &OutboxSender{path: path, now: time.Now}, nil
}

func (o *OutboxSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(OutboxEntry{Timestamp: o.now().UTC(), Message: msg})
	if err != nil {
		return fmt.Errorf("outbox: marshal: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("outbox: open: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("outbox: write: %w", err)
	}
	return f.Close()
}

// ReadOutbox parses an outbox file in append order.
func ReadOutbox(r io.Reader) ([]OutboxEntry, error) {
	var entries []OutboxEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e OutboxEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("outbox: line %d: %w", len(entries)+1, err)
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
