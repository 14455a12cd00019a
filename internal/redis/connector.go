// Package redis opens the optional redis connection used for session
// persistence and the transliteration cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/wander/internal/logger"
	"github.com/MrSnakeDoc/wander/internal/retry"
)

// ConnectOptions defines the Redis client and its connection retries.
type ConnectOptions struct {
	Addr           string        // Redis address (ex: "localhost:6379")
	User           string        // Optional username
	Password       string        // Optional password
	RedisDB        int           // Redis DB number
	DialTimeout    time.Duration // Redis dial timeout
	ReadTimeout    time.Duration // Redis read timeout
	WriteTimeout   time.Duration // Redis write timeout
	PoolSize       int           // Redis connection pool size
	ConnectRetries int           // ping attempts after the first one
	RetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	MaxWait        time.Duration // max wait between retries (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping attempt (ex: 2s)
	WarnThreshold  int           // warn up to this attempt, error after
}

// connectionLogger handles all Redis connection logging.
type connectionLogger struct {
	logger logger.Logger
	addr   string
}

func (cl *connectionLogger) logConnectionStart(attempts int) {
	cl.logger.Info("connecting to redis",
		logger.String("addr", cl.addr),
		logger.Int("max_attempts", attempts))
}

func (cl *connectionLogger) logSuccess(attempts int, elapsed time.Duration) {
	if attempts > 1 {
		cl.logger.Warn("connected to redis after retry",
			logger.String("addr", cl.addr),
			logger.Int("attempts", attempts),
			logger.Duration("elapsed", elapsed))
		return
	}
	cl.logger.Info("connected to redis", logger.String("addr", cl.addr))
}

func (cl *connectionLogger) logRetry(p retry.Progress, warnThreshold int) {
	fields := []logger.Field{
		logger.String("addr", cl.addr),
		logger.Int("attempt", p.Attempt),
		logger.Int("max_attempts", p.TotalAttempts),
		logger.Duration("next_retry_in", p.Delay),
		logger.Error(p.Err),
	}
	switch {
	case p.Attempt+1 == p.TotalAttempts:
		cl.logger.Error("redis still down, last attempt next", fields...)
	case p.Attempt <= warnThreshold:
		cl.logger.Warn("redis connection failed, retrying", fields...)
	default:
		cl.logger.Error("redis still unavailable, connection attempts failing", fields...)
	}
}

func (cl *connectionLogger) logGiveUp(attempts int, err error) {
	cl.logger.Error("redis unavailable, giving up",
		logger.String("addr", cl.addr),
		logger.Int("attempts", attempts),
		logger.Error(err))
}

func validateOptions(opts ConnectOptions) error {
	var errs []error
	if opts.Addr == "" {
		errs = append(errs, errors.New("Addr must be set"))
	}
	if opts.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("ConnectRetries must be >= 0, got %d", opts.ConnectRetries))
	}
	if opts.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("RetryInterval must be > 0, got %v", opts.RetryInterval))
	}
	if opts.MaxWait <= 0 {
		errs = append(errs, fmt.Errorf("MaxWait must be > 0, got %v", opts.MaxWait))
	}
	if opts.PingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PingTimeout must be > 0, got %v", opts.PingTimeout))
	}
	if opts.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", opts.WarnThreshold))
	}
	return errors.Join(errs...)
}

// New creates a Redis client and pings it until it answers, with
// exponential backoff capped at MaxWait. The client is closed and an
// error returned when every attempt failed.
func New(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := validateOptions(opts); err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	cl := &connectionLogger{logger: log, addr: opts.Addr}
	if err := connectWithRetry(ctx, client, opts, cl); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func connectWithRetry(ctx context.Context, client redis.UniversalClient, opts ConnectOptions, cl *connectionLogger) error {
	policy := retry.Policy{
		MaxRetries:   opts.ConnectRetries,
		InitialDelay: opts.RetryInterval,
		MaxDelay:     opts.MaxWait,
		ShouldRetry: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
		OnProgress: func(p retry.Progress) { cl.logRetry(p, opts.WarnThreshold) },
	}

	cl.logConnectionStart(opts.ConnectRetries + 1)
	start := time.Now()
	attempts := 0

	err := retry.Run(ctx, policy, func(ctx context.Context) error {
		attempts++
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		cl.logGiveUp(attempts, err)
		return fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempts, err)
	}

	cl.logSuccess(attempts, time.Since(start))
	return nil
}
