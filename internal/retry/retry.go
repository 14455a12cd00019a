// Package retry runs an operation with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// StatusCoder is implemented by errors that carry an HTTP status.
// A zero status means the failure happened below HTTP (DNS, dial, timeout).
type StatusCoder interface {
	StatusCode() int
}

// Retryabler is implemented by errors that know whether a retry could help.
// It takes precedence over the status.
type Retryabler interface {
	Retryable() bool
}

// Progress describes an upcoming retry. It is emitted before each backoff wait.
type Progress struct {
	Attempt       int           // attempt that just failed, starting at 1
	Delay         time.Duration // wait before the next attempt
	TotalAttempts int           // MaxRetries + 1
	Err           error         // failure of the attempt
}

// Policy configures Do.
type Policy struct {
	MaxRetries   int           // retries after the first attempt
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap on any single delay

	// ShouldRetry decides whether an error is worth another attempt.
	// Defaults to DefaultShouldRetry.
	ShouldRetry func(error) bool

	// OnProgress is called before each wait. Optional.
	OnProgress func(Progress)

	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait before retry number attempt (0-based):
// min(InitialDelay * 2^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
		if d <= 0 {
			// overflow
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// MaxTotalDelay is the upper bound of time spent waiting across all retries.
func (p Policy) MaxTotalDelay() time.Duration {
	var total time.Duration
	for i := 0; i < p.MaxRetries; i++ {
		total += p.Delay(i)
	}
	return total
}

// WithProgress returns a copy of p reporting to fn.
func (p Policy) WithProgress(fn func(Progress)) Policy {
	p.OnProgress = fn
	return p
}

// Do runs op until it succeeds, the policy gives up, or ctx is done.
// The error of the last attempt is returned as-is.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= maxRetries || ctx.Err() != nil || !shouldRetry(err) {
			return result, err
		}

		delay := p.Delay(attempt)
		if p.OnProgress != nil {
			p.OnProgress(Progress{
				Attempt:       attempt + 1,
				Delay:         delay,
				TotalAttempts: maxRetries + 1,
				Err:           err,
			})
		}

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return result, err
		}
	}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DefaultShouldRetry retries server errors (5xx) and transport failures
// (no status). Client errors (4xx) and cancellations are final, as is any
// error whose Retryable method says so.
func DefaultShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var re Retryabler
	if errors.As(err, &re) {
		return re.Retryable()
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		status := sc.StatusCode()
		if status == 0 {
			return true
		}
		return status >= http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
