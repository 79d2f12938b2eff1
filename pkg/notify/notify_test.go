package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/require"
)

func validMessage() Message {
	return Message{
		To:       "jane@example.com",
		Subject:  "Código de acceso - Criss Vargas",
		TextBody: "Tu código de acceso es: 12345",
		HTMLBody: "<h1>12345</h1>",
		Tag:      "one-time-code",
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Message)
	}{
		{"bad recipient", func(m *Message) { m.To = "not-an-address" }},
		{"empty recipient", func(m *Message) { m.To = "" }},
		{"empty subject", func(m *Message) { m.Subject = " " }},
		{"empty text body", func(m *Message) { m.TextBody = "" }},
	}

	require.NoError(t, validMessage().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMessage()
			tt.mutate(&m)
			require.ErrorIs(t, m.Validate(), ErrInvalidMessage)
		})
	}
}

type fakeSMTPClient struct {
	authed bool
	from   string
	rcpt   []string
	data   bytes.Buffer
	quit   bool
	closed bool
	rcptFn func(string) error
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (c *fakeSMTPClient) Mail(from string) error { c.from = from; return nil }
func (c *fakeSMTPClient) Rcpt(to string) error {
	if c.rcptFn != nil {
		if err := c.rcptFn(to); err != nil {
			return err
		}
	}
	c.rcpt = append(c.rcpt, to)
	return nil
}
func (c *fakeSMTPClient) Data() (io.WriteCloser, error) { return nopWriteCloser{&c.data}, nil }
func (c *fakeSMTPClient) Quit() error                   { c.quit = true; return nil }
func (c *fakeSMTPClient) Close() error                  { c.closed = true; return nil }
func (c *fakeSMTPClient) Auth(smtp.Auth) error          { c.authed = true; return nil }

func newTestSMTPSender(t *testing.T, client *fakeSMTPClient) *SMTPSender {
	t.Helper()
	s, err := NewSMTPSender(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "no-reply@example.com",
	})
	require.NoError(t, err)
	s.dial = func(context.Context, SMTPConfig) (smtpClient, error) { return client, nil }
	s.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestNewSMTPSenderValidatesConfig(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Port: 587, From: "a@example.com"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "a@example.com"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "bad"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, s.cfg.Timeout)
}

func TestSMTPSenderSend(t *testing.T) {
	client := &fakeSMTPClient{}
	s := newTestSMTPSender(t, client)

	require.NoError(t, s.Send(context.Background(), validMessage()))
	require.True(t, client.authed)
	require.Equal(t, "no-reply@example.com", client.from)
	require.Equal(t, []string{"jane@example.com"}, client.rcpt)
	require.True(t, client.quit)
	require.True(t, client.closed)

	body := client.data.String()
	require.Contains(t, body, "From: no-reply@example.com\r\n")
	require.Contains(t, body, "To: jane@example.com\r\n")
	require.Contains(t, body, "Subject: =?utf-8?q?")
	require.Contains(t, body, "multipart/alternative; boundary=")
	require.Contains(t, body, "Tu código de acceso es: 12345")
	require.Contains(t, body, "<h1>12345</h1>")
}

func TestSMTPSenderPropagatesServerError(t *testing.T) {
	rejected := errors.New("550 mailbox unavailable")
	client := &fakeSMTPClient{rcptFn: func(string) error { return rejected }}
	s := newTestSMTPSender(t, client)

	err := s.Send(context.Background(), validMessage())
	require.ErrorIs(t, err, rejected)
	require.True(t, client.closed)
}

func TestSMTPSenderHonoursContext(t *testing.T) {
	s := newTestSMTPSender(t, &fakeSMTPClient{})
	release := make(chan struct{})
	defer close(release)
	s.dial = func(context.Context, SMTPConfig) (smtpClient, error) {
		<-release
		return nil, errors.New("never reached")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, validMessage())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFormatMessagePlainText(t *testing.T) {
	m := validMessage()
	m.HTMLBody = ""
	m.To = "jane@example.com\r\nBcc: evil@example.com"

	raw, err := formatMessage("from@example.com", m, time.Now())
	require.NoError(t, err)

	content := string(raw)
	require.Contains(t, content, "Content-Type: text/plain; charset=UTF-8\r\n")
	require.NotContains(t, content, "\r\nBcc:")
	require.True(t, strings.HasSuffix(content, m.TextBody))
}

type fakePostmark struct {
	got  postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakePostmark) SendEmail(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	f.got = e
	return f.resp, f.err
}

func TestPostmarkSender(t *testing.T) {
	_, err := NewPostmarkSender(PostmarkConfig{From: "a@example.com"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	p, err := NewPostmarkSender(PostmarkConfig{ServerToken: "server", From: "no-reply@example.com"})
	require.NoError(t, err)

	t.Run("maps message", func(t *testing.T) {
		api := &fakePostmark{}
		p.client = api

		require.NoError(t, p.Send(context.Background(), validMessage()))
		require.Equal(t, "no-reply@example.com", api.got.From)
		require.Equal(t, "jane@example.com", api.got.To)
		require.Equal(t, "one-time-code", api.got.Tag)
		require.Equal(t, "Tu código de acceso es: 12345", api.got.TextBody)
		require.Equal(t, "<h1>12345</h1>", api.got.HTMLBody)
	})

	t.Run("api error code", func(t *testing.T) {
		p.client = &fakePostmark{resp: postmark.EmailResponse{ErrorCode: 406, Message: "Inactive recipient"}}
		err := p.Send(context.Background(), validMessage())
		require.ErrorContains(t, err, "406")
		require.ErrorContains(t, err, "Inactive recipient")
	})

	t.Run("transport error", func(t *testing.T) {
		boom := errors.New("connection reset")
		p.client = &fakePostmark{err: boom}
		require.ErrorIs(t, p.Send(context.Background(), validMessage()), boom)
	})
}

func TestOutboxSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "outbox.jsonl")
	o, err := NewOutboxSender(path)
	require.NoError(t, err)

	first := validMessage()
	second := validMessage()
	second.TextBody = "Tu código de acceso es: 67890"

	require.NoError(t, o.Send(context.Background(), first))
	require.NoError(t, o.Send(context.Background(), second))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	entries, err := ReadOutbox(f)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, first, entries[0].Message)
	require.Equal(t, second, entries[1].Message)
	require.False(t, entries[0].Timestamp.IsZero())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, o.Send(ctx, first), context.Canceled)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	s := &LogSender{Logger: logger}
	require.NoError(t, s.Send(context.Background(), validMessage()))
	require.Contains(t, buf.String(), `"email":"j***@example.com"`)
	require.NotContains(t, buf.String(), "12345")

	buf.Reset()
	s.IncludeBody = true
	require.NoError(t, s.Send(context.Background(), validMessage()))
	require.Contains(t, buf.String(), "12345")
}
