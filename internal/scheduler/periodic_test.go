package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/wander/internal/logger"
	"github.com/MrSnakeDoc/wander/internal/scheduler"
	"github.com/MrSnakeDoc/wander/internal/scheduler/clocktest"
)

func TestPeriodicRunsAtInterval(t *testing.T) {
	clock := clocktest.New(epoch)
	runs := 0
	p := scheduler.NewPeriodic("preview", 10*time.Second, clock, logger.NewNop(), func(context.Context) { runs++ })

	p.Start(context.Background())
	p.Start(context.Background()) // no-op
	assert.True(t, p.Running())

	clock.Advance(9 * time.Second)
	assert.Zero(t, runs)

	clock.Advance(21 * time.Second)
	assert.Equal(t, 3, runs)
	assert.Equal(t, 1, clock.Pending())
}

func TestPeriodicStop(t *testing.T) {
	clock := clocktest.New(epoch)
	runs := 0
	p := scheduler.NewPeriodic("preview", time.Second, clock, nil, func(context.Context) { runs++ })

	p.Start(context.Background())
	clock.Advance(time.Second)
	p.Stop()
	p.Stop()

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, runs)
	assert.False(t, p.Running())
	assert.Zero(t, clock.Pending())
}

func TestPeriodicStopFromTaskCancelsContext(t *testing.T) {
	clock := clocktest.New(epoch)
	var p *scheduler.Periodic
	var taskCtx context.Context
	p = scheduler.NewPeriodic("once", time.Second, clock, nil, func(ctx context.Context) {
		taskCtx = ctx
		p.Stop()
	})

	p.Start(context.Background())
	clock.Advance(5 * time.Second)

	assert.Error(t, taskCtx.Err())
	assert.Zero(t, clock.Pending(), "a task stopped while running is not re-armed")
}

func TestPeriodicRestartResetsInterval(t *testing.T) {
	clock := clocktest.New(epoch)
	runs := 0
	p := scheduler.NewPeriodic("preview", 10*time.Second, clock, nil, func(context.Context) { runs++ })

	p.Start(context.Background())
	clock.Advance(8 * time.Second)
	p.Restart(context.Background())
	clock.Advance(8 * time.Second)
	assert.Zero(t, runs)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, runs)
}

func TestPeriodicWithZeroIntervalNeverStarts(t *testing.T) {
	p := scheduler.NewPeriodic("off", 0, clocktest.New(epoch), nil, func(context.Context) {})
	p.Start(context.Background())
	assert.False(t, p.Running())
}
