package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/wander/internal/logger"
)

// Periodic runs a task at a fixed interval until stopped.
// The first run happens one interval after Start.
type Periodic struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context)
	clock    Clock
	logger   logger.Logger

	mu      sync.Mutex
	running bool
	gen     uint64
	timer   Timer
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPeriodic creates a stopped periodic task.
func NewPeriodic(name string, interval time.Duration, clock Clock, log logger.Logger, task func(ctx context.Context)) *Periodic {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Periodic{
		name:     name,
		interval: interval,
		task:     task,
		clock:    clock,
		logger:   log,
	}
}

// Start begins the periodic runs. It is a no-op when already running or
// when the interval is not positive.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.interval <= 0 {
		return
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.armLocked()

	p.logger.Debug("periodic task started",
		logger.String("task", p.name),
		logger.Duration("interval", p.interval))
}

// Stop cancels the pending run and the context of a run in progress.
func (p *Periodic) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.cancel()

	p.logger.Debug("periodic task stopped", logger.String("task", p.name))
}

// Restart stops then starts the task, resetting its interval.
func (p *Periodic) Restart(ctx context.Context) {
	p.Stop()
	p.Start(ctx)
}

// Running reports whether the task is started.
func (p *Periodic) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Periodic) armLocked() {
	gen := p.gen
	p.timer = p.clock.AfterFunc(p.interval, func() { p.fire(gen) })
}

func (p *Periodic) fire(gen uint64) {
	p.mu.Lock()
	if !p.running || gen != p.gen {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.timer = nil
	p.mu.Unlock()

	p.task(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running && gen == p.gen {
		p.armLocked()
	}
}
