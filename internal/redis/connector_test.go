package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/wander/internal/logger"
)

func validOptions(addr string) ConnectOptions {
	return ConnectOptions{
		Addr:           addr,
		DialTimeout:    100 * time.Millisecond,
		ConnectRetries: 2,
		RetryInterval:  time.Millisecond,
		MaxWait:        5 * time.Millisecond,
		PingTimeout:    200 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestValidateOptions(t *testing.T) {
	require.NoError(t, validateOptions(validOptions("localhost:6379")))

	bad := validOptions("")
	bad.RetryInterval = 0
	bad.ConnectRetries = -1
	err := validateOptions(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Addr")
	assert.Contains(t, err.Error(), "RetryInterval")
	assert.Contains(t, err.Error(), "ConnectRetries")
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestNewGivesUpAfterRetries(t *testing.T) {
	client, err := New(context.Background(), validOptions(closedAddr(t)), logger.NewNop())
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestNewStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := validOptions(closedAddr(t))
	opts.ConnectRetries = 50
	opts.RetryInterval = time.Second

	start := time.Now()
	_, err := New(ctx, opts, logger.NewNop())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
