package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/pkg/logger"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	panic bool
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func newScheduler() *Scheduler {
	cfg := DefaultSchedulerConfig()
	cfg.Logger = logger.Nop()
	return NewScheduler(cfg)
}

func TestRegister_Validation(t *testing.T) {
	s := newScheduler()

	assert.ErrorIs(t, s.Register(nil, "@every 1m"), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, " "), ErrNilSchedule)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, "@every soon"), ErrInvalidSchedule)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, "61 * * * *"), ErrInvalidSchedule)

	require.NoError(t, s.Register(&countingJob{name: "a"}, "0 3 * * *"))
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, "@every 1m"), ErrJobAlreadyExists)

	require.NoError(t, s.Unregister("a"))
	assert.ErrorIs(t, s.Unregister("a"), ErrJobNotFound)
}

func TestRunNow_RecordsResults(t *testing.T) {
	s := newScheduler()
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("store down")}
	boom := &countingJob{name: "boom", panic: true}
	for _, j := range []*countingJob{ok, bad, boom} {
		require.NoError(t, s.Register(j, "0 3 * * *"))
	}

	var completed []string
	s.OnJobComplete(func(r JobResult) { completed = append(completed, r.JobName) })

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)

	_, err = s.RunNow(context.Background(), "bad")
	assert.EqualError(t, err, "store down")

	_, err = s.RunNow(context.Background(), "boom")
	assert.ErrorIs(t, err, ErrJobPanicked)

	_, err = s.RunNow(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.Equal(t, []string{"ok", "bad", "boom"}, completed)

	history := s.GetHistory(2)
	require.Len(t, history, 2)
	assert.Equal(t, "bad", history[0].JobName)
	assert.Equal(t, "boom", history[1].JobName)

	info, err := s.GetJobInfo("bad")
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.RunCount)
	assert.EqualValues(t, 1, info.FailCount)
	assert.Equal(t, "0 3 * * *", info.Schedule)

	snap := s.GetMetrics().Snapshot()
	assert.EqualValues(t, 3, snap.TotalExecutions)
	assert.EqualValues(t, 2, snap.TotalFailures)

	names := make([]string, 0)
	for _, ji := range s.ListJobs() {
		names = append(names, ji.Name)
	}
	assert.Equal(t, []string{"bad", "boom", "ok"}, names)
}

func TestStart_RunsIntervalJobs(t *testing.T) {
	s := newScheduler()
	fast := &countingJob{name: "fast"}
	paused := &countingJob{name: "paused"}
	require.NoError(t, s.Register(fast, "@every 20ms"))
	require.NoError(t, s.Register(paused, "@every 20ms"))
	require.NoError(t, s.SetEnabled("paused", false))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return fast.runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	assert.Zero(t, paused.runs.Load())
	manual, err := s.RunNow(context.Background(), "paused")
	require.NoError(t, err)
	assert.True(t, manual.Success, "RunNow ignores the enabled flag")
}
