package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/crissvargas/realestate/internal/auth/service"
	"github.com/crissvargas/realestate/pkg/jwtx"
	"github.com/crissvargas/realestate/pkg/notify"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ProviderSMTP     = "smtp"
	ProviderPostmark = "postmark"
	ProviderOutbox   = "outbox"
	ProviderLog      = "log"
)

var ErrInvalidConfig = errors.New("app: invalid config")

type Config struct {
	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"4000"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	DatabaseDriver string `env:"AUTH_DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseFile   string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	DatabaseURL    string `env:"DATABASE_URL"`

	PepperFile        string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`
	Argon2MemoryKiB   uint32 `env:"AUTH_ARGON2_MEMORY_KIB"`
	Argon2Iterations  uint32 `env:"AUTH_ARGON2_ITERATIONS"`
	Argon2Parallelism uint8  `env:"AUTH_ARGON2_PARALLELISM"`

	JWTSecret       string        `env:"JWT_SECRET"`
	Issuer          string        `env:"AUTH_ISSUER" envDefault:"realestate-auth"`
	SessionTTL      time.Duration `env:"AUTH_SESSION_TTL" envDefault:"1h"`
	CodeTTL         time.Duration `env:"AUTH_CODE_TTL" envDefault:"10m"`
	DispatchTimeout time.Duration `env:"AUTH_DISPATCH_TIMEOUT" envDefault:"10s"`
	SweepSchedule   string        `env:"AUTH_CODE_SWEEP_SCHEDULE" envDefault:"@every 15m"`

	NotifyProvider string `env:"AUTH_NOTIFY_PROVIDER" envDefault:"log"`
	MailFrom       string `env:"AUTH_MAIL_FROM"`
	MailSubject    string `env:"AUTH_MAIL_SUBJECT"`
	OutboxFile     string `env:"AUTH_OUTBOX_FILE" envDefault:"outbox.jsonl"`

	SMTP     SMTPConfig
	Postmark PostmarkConfig
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	UseTLS   bool   `env:"SMTP_USE_TLS"`
}

type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
}

// LoadConfig reads an optional .env file and then the environment. Values
// already set in the environment win over the file.
func LoadConfig() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.MailSubject == "" {
		cfg.MailSubject = service.DefaultMailSubject
	}
	return cfg, nil
}

// Validate reports every problem at once so a misconfigured deploy fails
// with the full list.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.JWTSecret) < jwtx.MinSecretLength {
		add("JWT_SECRET must be at least %d bytes", jwtx.MinSecretLength)
	}
	if c.Port <= 0 || c.Port > 65535 {
		add("PORT %d is out of range", c.Port)
	}
	if c.SessionTTL <= 0 {
		add("AUTH_SESSION_TTL must be positive")
	}
	if c.CodeTTL <= 0 {
		add("AUTH_CODE_TTL must be positive")
	}
	if c.DispatchTimeout <= 0 {
		add("AUTH_DISPATCH_TIMEOUT must be positive")
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DatabaseFile) == "" {
			add("AUTH_DATABASE_FILE is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			add("DATABASE_URL is required for the postgres driver")
		}
	default:
		add("AUTH_DATABASE_DRIVER %q is not one of sqlite, postgres", c.DatabaseDriver)
	}

	switch c.NotifyProvider {
	case ProviderSMTP:
		if c.SMTP.Host == "" {
			add("SMTP_HOST is required for the smtp provider")
		}
		if c.MailFrom == "" {
			add("AUTH_MAIL_FROM is required for the smtp provider")
		}
	case ProviderPostmark:
		if c.Postmark.ServerToken == "" {
			add("POSTMARK_SERVER_TOKEN is required for the postmark provider")
		}
		if c.MailFrom == "" {
			add("AUTH_MAIL_FROM is required for the postmark provider")
		}
	case ProviderOutbox:
		if c.OutboxFile == "" {
			add("AUTH_OUTBOX_FILE is required for the outbox provider")
		}
	case ProviderLog:
		if c.Env == "prod" {
			add("AUTH_NOTIFY_PROVIDER=log cannot deliver codes in prod")
		}
	default:
		add("AUTH_NOTIFY_PROVIDER %q is not one of smtp, postmark, outbox, log", c.NotifyProvider)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (c Config) smtpConfig() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.MailFrom,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.DispatchTimeout,
	}
}

func (c Config) postmarkConfig() notify.PostmarkConfig {
	return notify.PostmarkConfig{
		ServerToken:  c.Postmark.ServerToken,
		AccountToken: c.Postmark.AccountToken,
		From:         c.MailFrom,
	}
}
