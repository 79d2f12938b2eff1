package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/crissvargas/realestate/pkg/slogx"
)

// DefaultSweepSchedule is the cron spec used when none is configured.
const DefaultSweepSchedule = "@every 15m"

// Sweeper is anything that can reap stale one-time codes.
type Sweeper interface {
	SweepCodes(ctx context.Context) (int64, error)
}

// CodeSweeper periodically deletes used and expired one-time codes so the
// table does not grow without bound. Redemption never depends on it; the
// expiry check happens in the consume query itself.
type CodeSweeper struct {
	sweeper  Sweeper
	logger   *slog.Logger
	schedule string
	cron     *cron.Cron

	mu      sync.Mutex
	started bool
}

// SweeperOption customises a CodeSweeper.
type SweeperOption func(*CodeSweeper)

// WithCron injects a preconfigured cron instance, mainly for tests.
func WithCron(c *cron.Cron) SweeperOption {
	return func(cs *CodeSweeper) {
		if c != nil {
			cs.cron = c
		}
	}
}

// WithSchedule overrides the cron spec. An empty spec keeps the default.
func WithSchedule(spec string) SweeperOption {
	return func(cs *CodeSweeper) {
		if spec != "" {
			cs.schedule = spec
		}
	}
}

func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(cs *CodeSweeper) {
		if l != nil {
			cs.logger = l
		}
	}
}

func NewCodeSweeper(s Sweeper, opts ...SweeperOption) *CodeSweeper {
	cs := &CodeSweeper{
		sweeper:  s,
		logger:   slog.Default(),
		schedule: DefaultSweepSchedule,
	}
	for _, opt := range opts {
		opt(cs)
	}
	if cs.cron == nil {
		cs.cron = cron.New(cron.WithLogger(cron.DiscardLogger), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	}
	return cs
}

// Start registers the sweep job and launches the scheduler. It is
// non-blocking; call Stop to shut it down.
func (cs *CodeSweeper) Start() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.started {
		return nil
	}

	if _, err := cs.cron.AddFunc(cs.schedule, func() {
		if _, err := cs.RunOnce(context.Background()); err != nil {
			cs.logger.Warn("one-time code sweep failed", slog.Any("error", err))
		}
	}); err != nil {
		return err
	}

	cs.cron.Start()
	cs.started = true
	cs.logger.Info("code sweeper started", slog.String("schedule", cs.schedule))
	return nil
}

// Stop halts the scheduler and blocks until a running sweep has finished.
func (cs *CodeSweeper) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if !cs.started {
		return
	}
	<-cs.cron.Stop().Done()
	cs.started = false
	cs.logger.Info("code sweeper stopped")
}

// RunOnce performs a single sweep.
func (cs *CodeSweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx = slogx.WithContext(ctx, cs.logger)
	return cs.sweeper.SweepCodes(ctx)
}
