package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/listinghub/internal/logging"
)

type fakeExpirer struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeExpirer) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestListingExpiryTask_RunsOnStartAndStops(t *testing.T) {
	exp := &fakeExpirer{n: 2}
	task := NewListingExpiryTask(exp, time.Hour, logging.Discard())

	m := NewManager(logging.Discard())
	m.RegisterTask(task)
	m.StartScheduledTasks(context.Background())

	require.Eventually(t, func() bool { return exp.calls.Load() == 1 }, time.Second, time.Millisecond)
	st := m.Statuses()
	require.Len(t, st, 1)
	assert.Equal(t, "listing-expiry", st[0].Name)
	assert.True(t, st[0].Running)

	m.StopAllTasks()
	st = m.Statuses()
	assert.False(t, st[0].Running)
	assert.Equal(t, 1, st[0].Runs)
	assert.Empty(t, st[0].LastError)

	// stopping twice is harmless
	m.StopAllTasks()
}

func TestTickerTask_Ticks(t *testing.T) {
	exp := &fakeExpirer{}
	task := NewListingExpiryTask(exp, 5*time.Millisecond, logging.Discard())
	task.Start(context.Background())
	defer task.Stop()

	require.Eventually(t, func() bool { return exp.calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestManager_Run(t *testing.T) {
	exp := &fakeExpirer{err: errors.New("connection refused")}
	m := NewManager(logging.Discard())
	m.RegisterTask(NewListingExpiryTask(exp, time.Hour, logging.Discard()))

	err := m.Run(context.Background(), "listing-expiry")
	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, int32(1), exp.calls.Load())
	assert.Equal(t, "connection refused", m.Statuses()[0].LastError)
	assert.False(t, m.Statuses()[0].Running)

	err = m.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownTask)
}
