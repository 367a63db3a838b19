package poller_test

import (
	"testing"
	"time"

	"github.com/leighmacdonald/steam-friends/internal/poller"
	"github.com/stretchr/testify/require"
)

func testTiming() poller.Timing {
	return poller.Timing{
		Hot:            30 * time.Second,
		Cold:           5 * time.Minute,
		HotWindow:      5 * time.Minute,
		ErrorThreshold: 5,
		ErrorInterval:  10 * time.Minute,
	}
}

func TestStateStartsCold(t *testing.T) {
	state := poller.NewState(testTiming())
	require.Equal(t, poller.Cold, state.Mode)
	require.Equal(t, 5*time.Minute, state.Interval)
	require.Equal(t, 30*time.Second, state.BaseInterval)
}

func TestStateHotThenCold(t *testing.T) {
	timing := testTiming()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state := poller.NewState(timing)

	state.RecordSuccess(timing, true, now)
	require.Equal(t, poller.Hot, state.Mode)
	require.Equal(t, timing.Hot, state.Interval)
	require.Equal(t, 1, state.Changes)

	state.RecordSuccess(timing, false, now.Add(timing.HotWindow))
	require.Equal(t, poller.Hot, state.Mode)

	state.RecordSuccess(timing, false, now.Add(timing.HotWindow+time.Second))
	require.Equal(t, poller.Cold, state.Mode)
	require.Equal(t, timing.Cold, state.Interval)
	require.Equal(t, 1, state.Changes)
}

func TestStateBackoff(t *testing.T) {
	timing := testTiming()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state := poller.NewState(timing)

	for range 2 {
		state.RecordFailure(timing, now)
	}

	require.Equal(t, 2, state.Failures)
	require.NotEqual(t, poller.Backoff, state.Mode)

	for range 3 {
		state.RecordFailure(timing, now)
	}

	require.Equal(t, 5, state.Failures)
	require.Equal(t, poller.Backoff, state.Mode)
	require.Equal(t, timing.ErrorInterval, state.Interval)

	state.RecordSuccess(timing, true, now)
	require.Zero(t, state.Failures)
	require.Equal(t, poller.Hot, state.Mode)
	require.Equal(t, timing.Hot, state.Interval)
}

func TestStateRateLimited(t *testing.T) {
	timing := testTiming()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state := poller.NewState(timing)
	state.RecordSuccess(timing, true, now)

	state.RecordRateLimited(timing)
	require.Zero(t, state.Failures)
	require.Equal(t, timing.Cold, state.Interval)
}

func TestModeString(t *testing.T) {
	require.Equal(t, "cold", poller.Cold.String())
	require.Equal(t, "hot", poller.Hot.String())
	require.Equal(t, "backoff", poller.Backoff.String())
}
