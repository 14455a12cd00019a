package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/wander/internal/scheduler"
	"github.com/MrSnakeDoc/wander/internal/scheduler/clocktest"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDebouncerFiresOncePerBurst(t *testing.T) {
	clock := clocktest.New(epoch)
	d := scheduler.NewDebouncer(clock, 500*time.Millisecond)

	var fired []time.Time
	var last string
	for i, text := range []string{"北", "北京", "北京 ", "北京故", "北京故宫", "北京", "北", "北京", "北京故", "北京"} {
		if i > 0 {
			clock.Advance(100 * time.Millisecond)
		}
		text := text
		d.Trigger(func() {
			fired = append(fired, clock.Now())
			last = text
		})
	}
	lastKeystroke := clock.Now()

	clock.Advance(2 * time.Second)

	assert.Len(t, fired, 1)
	assert.Equal(t, lastKeystroke.Add(500*time.Millisecond), fired[0])
	assert.Equal(t, "北京", last)
	assert.False(t, d.Pending())
}

func TestDebouncerCancel(t *testing.T) {
	clock := clocktest.New(epoch)
	d := scheduler.NewDebouncer(clock, 500*time.Millisecond)

	calls := 0
	d.Trigger(func() { calls++ })
	assert.True(t, d.Pending())

	d.Cancel()
	assert.False(t, d.Pending())
	assert.Zero(t, clock.Pending(), "the timer itself is stopped")

	clock.Advance(time.Second)
	assert.Zero(t, calls)
}

func TestDebouncerSeparateBursts(t *testing.T) {
	clock := clocktest.New(epoch)
	d := scheduler.NewDebouncer(clock, 500*time.Millisecond)

	calls := 0
	d.Trigger(func() { calls++ })
	clock.Advance(600 * time.Millisecond)
	d.Trigger(func() { calls++ })
	clock.Advance(600 * time.Millisecond)

	assert.Equal(t, 2, calls)
}
