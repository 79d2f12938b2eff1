package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (c *countingSweeper) SweepCodes(context.Context) (int64, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestCodeSweeperRunsOnSchedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	sw := &countingSweeper{}
	cs := NewCodeSweeper(sw, WithSchedule("@every 1s"))
	require.NoError(t, cs.Start())
	require.NoError(t, cs.Start())

	require.Eventually(t, func() bool { return sw.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	cs.Stop()
	cs.Stop()
}

func TestCodeSweeperRunOnce(t *testing.T) {
	sw := &countingSweeper{}
	cs := NewCodeSweeper(sw, WithCron(cron.New()))

	n, err := cs.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, int64(1), sw.calls.Load())

	sw.err = errors.New("database is locked")
	_, err = cs.RunOnce(context.Background())
	require.ErrorContains(t, err, "locked")
}

func TestCodeSweeperRejectsBadSchedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	cs := NewCodeSweeper(&countingSweeper{}, WithSchedule("every now and then"))
	require.Error(t, cs.Start())
	cs.Stop()
}

func TestCodeSweeperAgainstStore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "42424")
	h.register(t, "a@x.com", "secret1")

	_, err := h.svc.RequestOneTimeCode(ctx, "a@x.com")
	require.NoError(t, err)
	h.clock.Advance(time.Hour)

	n, err := NewCodeSweeper(h.svc).RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
