// Package clock holds the monotonic simulated-time source driving
// every Session, plus the scheduler goroutine that pumps it.
package clock

import (
	"sync"
	"time"
)

// Clock tracks simulated-time progress for one Session. It owns no
// timer itself — it is pumped by a Scheduler (or directly by tests).
type Clock struct {
	mu          sync.Mutex
	start       time.Time
	day         int
	speed       float64 // SetSpeed clamps to 0.1 .. 10; New and Restore take the value as given (New replaces <= 0 with 1.0)
	weeksBudget int     // 0 = unlimited (classic/challenge/daytrader/portfolio modes)
	exhausted   bool
}

// New creates a Clock starting at startDate, ticking at speed
// (simulated days per wall-clock unit). weeksBudget of 0 means no
// custom-mode limit is enforced.
func New(startDate time.Time, speed float64, weeksBudget int) *Clock {
	if speed <= 0 {
		speed = 1.0
	}
	return &Clock{
		start:       startDate,
		speed:       speed,
		weeksBudget: weeksBudget,
	}
}

// Advance moves the clock forward by n simulated days. If the
// Session is in custom mode and the week budget has already been
// consumed, Advance is a no-op and returns exhausted=true. An advance
// that would overshoot the budget is clamped to it and also returns
// exhausted=true; one that lands exactly on it does not.
func (c *Clock) Advance(n int) (newDay int, exhausted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.weeksBudget > 0 && c.day >= c.weeksBudget*7 {
		c.exhausted = true
		return c.day, true
	}

	c.day += n

	if c.weeksBudget > 0 && c.day > c.weeksBudget*7 {
		c.day = c.weeksBudget * 7
		c.exhausted = true
		return c.day, true
	}

	return c.day, false
}

// DayCount returns the integer day index since the Session's start date.
func (c *Clock) DayCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

// Exhausted reports whether custom-mode week budget has been consumed.
func (c *Clock) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}

// SimulatedDate returns the wall-clock date the simulated day maps to.
func (c *Clock) SimulatedDate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.AddDate(0, 0, c.day)
}

// Speed returns the clock's tick speed.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetSpeed updates the tick speed (0.1 .. 10, clamped).
func (c *Clock) SetSpeed(speed float64) {
	if speed < 0.1 {
		speed = 0.1
	}
	if speed > 10 {
		speed = 10
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
}

// State captures the fields needed to restore a Clock from a snapshot.
type State struct {
	StartDate   time.Time
	Day         int
	Speed       float64
	WeeksBudget int
}

// Snapshot returns the Clock's persistable state.
func (c *Clock) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{StartDate: c.start, Day: c.day, Speed: c.speed, WeeksBudget: c.weeksBudget}
}

// Restore rebuilds a Clock from persisted State.
func Restore(s State) *Clock {
	return &Clock{start: s.StartDate, day: s.Day, speed: s.Speed, weeksBudget: s.WeeksBudget}
}

// TickInterval returns the wall-clock interval between ticks for the
// Clock's current speed, per spec §4.8: max(1000/speed, 50) ms.
func (c *Clock) TickInterval() time.Duration {
	c.mu.Lock()
	speed := c.speed
	c.mu.Unlock()

	ms := 1000.0 / speed
	if ms < 50 {
		ms = 50
	}
	return time.Duration(ms) * time.Millisecond
}

// Ticker is the minimal interface a Scheduler drives once per
// interval. tickAdapter in cmd/marketsim implements it over a Session.
type Ticker interface {
	Tick()
}

// Scheduler calls its target's Tick at the Clock's configured
// interval. Modeled on the teacher's time.NewTicker + ctx.Done() loop
// (cmd/feedsim/main.go's symbolRunner).
type Scheduler struct {
	clock  *Clock
	target Ticker

	stopCh chan struct{}
	once   sync.Once
}

// NewScheduler creates a Scheduler for clock, driving target.Tick()
// every TickInterval.
func NewScheduler(clock *Clock, target Ticker) *Scheduler {
	return &Scheduler{clock: clock, target: target, stopCh: make(chan struct{})}
}

// Run blocks, ticking target until Stop is called or done is closed.
func (s *Scheduler) Run(done <-chan struct{}) {
	ticker := time.NewTicker(s.clock.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.target.Tick()
			// speed may have changed; re-arm at the new interval
			ticker.Reset(s.clock.TickInterval())
		}
	}
}

// Stop terminates the scheduler's Run loop. Idempotent.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}
