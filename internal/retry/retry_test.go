package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string   { return "status error" }
func (e statusErr) StatusCode() int { return int(e) }

// finalErr carries no status but refuses retries.
type finalErr struct{}

func (finalErr) Error() string   { return "login required" }
func (finalErr) StatusCode() int { return 0 }
func (finalErr) Retryable() bool { return false }

// recordingSleep returns immediately and remembers requested delays.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordingSleep) total() time.Duration {
	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}
	return sum
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{40, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.attempt), "attempt %d", tt.attempt)
	}

	assert.Equal(t, 100*time.Millisecond+200*time.Millisecond+400*time.Millisecond,
		Policy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second}.MaxTotalDelay())
}

func TestDoBoundsAttemptsAndWait(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 2, 5} {
		rec := &recordingSleep{}
		p := Policy{
			MaxRetries:   maxRetries,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     40 * time.Millisecond,
			Sleep:        rec.sleep,
		}

		calls := 0
		_, err := Do(context.Background(), p, func(context.Context) (int, error) {
			calls++
			return 0, statusErr(503)
		})

		require.Error(t, err)
		assert.Equal(t, maxRetries+1, calls, "maxRetries=%d", maxRetries)
		assert.LessOrEqual(t, rec.total(), p.MaxTotalDelay())
		assert.Len(t, rec.delays, maxRetries)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 409, 422} {
		calls := 0
		_, err := Do(context.Background(), Policy{MaxRetries: 5, Sleep: (&recordingSleep{}).sleep},
			func(context.Context) (string, error) {
				calls++
				return "", statusErr(status)
			})

		require.Error(t, err)
		assert.Equal(t, 1, calls, "status %d", status)
	}
}

func TestDoRetriesTransportFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{MaxRetries: 3, Sleep: (&recordingSleep{}).sleep},
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", statusErr(0)
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoPreservesErrorIdentity(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := Do(context.Background(), Policy{MaxRetries: 2, Sleep: (&recordingSleep{}).sleep},
		func(context.Context) (int, error) { return 0, sentinel })

	assert.Same(t, sentinel, err)
}

func TestDoReportsProgress(t *testing.T) {
	var events []Progress
	p := Policy{
		MaxRetries:   2,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     time.Second,
		Sleep:        (&recordingSleep{}).sleep,
		OnProgress:   func(pr Progress) { events = append(events, pr) },
	}

	_ = Run(context.Background(), p, func(context.Context) error { return statusErr(500) })

	require.Len(t, events, 2)
	assert.Equal(t, Progress{Attempt: 1, Delay: 5 * time.Millisecond, TotalAttempts: 3, Err: statusErr(500)}, events[0])
	assert.Equal(t, 2, events[1].Attempt)
	assert.Equal(t, 10*time.Millisecond, events[1].Delay)
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	err := Run(ctx, p, func(context.Context) error {
		calls++
		return statusErr(502)
	})

	assert.Equal(t, statusErr(502), err)
	assert.Equal(t, 1, calls)
}

func TestDefaultShouldRetry(t *testing.T) {
	assert.False(t, DefaultShouldRetry(nil))
	assert.True(t, DefaultShouldRetry(statusErr(500)))
	assert.True(t, DefaultShouldRetry(statusErr(0)))
	assert.False(t, DefaultShouldRetry(statusErr(404)))
	assert.False(t, DefaultShouldRetry(context.Canceled))
	assert.True(t, DefaultShouldRetry(errors.New("connection reset")))
	assert.False(t, DefaultShouldRetry(finalErr{}))
	assert.False(t, DefaultShouldRetry(fmt.Errorf("wrapped: %w", finalErr{})))
}

func TestDoDoesNotRetryFinalErrorsWithoutStatus(t *testing.T) {
	var progress int
	sleep := &recordingSleep{}
	calls := 0
	err := Run(context.Background(), Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Sleep:        sleep.sleep,
		OnProgress:   func(Progress) { progress++ },
	}, func(context.Context) error {
		calls++
		return finalErr{}
	})

	assert.Equal(t, finalErr{}, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, progress)
	assert.Empty(t, sleep.delays)
}

func TestTimerSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, timerSleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, timerSleep(context.Background(), time.Millisecond))
}
