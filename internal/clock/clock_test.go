package clock

import (
	"testing"
	"time"
)

func TestAdvanceAccumulatesDays(t *testing.T) {
	c := New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1.0, 0)

	day, exhausted := c.Advance(3)
	if exhausted {
		t.Fatal("unlimited clock reported exhausted")
	}
	if day != 3 {
		t.Fatalf("day = %d, want 3", day)
	}
	if c.DayCount() != 3 {
		t.Fatalf("DayCount = %d, want 3", c.DayCount())
	}
}

func TestAdvanceRespectsWeekBudget(t *testing.T) {
	c := New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1.0, 2) // 2 weeks = 14 days

	day, exhausted := c.Advance(10)
	if exhausted {
		t.Fatal("should not be exhausted after 10/14 days")
	}
	if day != 10 {
		t.Fatalf("day = %d, want 10", day)
	}

	day, exhausted = c.Advance(10)
	if !exhausted {
		t.Fatal("expected exhausted after exceeding week budget")
	}
	if day != 14 {
		t.Fatalf("day = %d, want clamped to 14", day)
	}

	// further Advance calls are a no-op once exhausted
	day, exhausted = c.Advance(5)
	if !exhausted {
		t.Fatal("expected still exhausted")
	}
	if day != 14 {
		t.Fatalf("day = %d, want unchanged at 14", day)
	}
	if !c.Exhausted() {
		t.Fatal("Exhausted() should report true")
	}
}

func TestSimulatedDate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(start, 1.0, 0)
	c.Advance(5)

	want := start.AddDate(0, 0, 5)
	if !c.SimulatedDate().Equal(want) {
		t.Fatalf("SimulatedDate = %v, want %v", c.SimulatedDate(), want)
	}
}

func TestTickIntervalFloor(t *testing.T) {
	c := New(time.Now(), 10.0, 0) // 1000/10 = 100ms, above floor
	if c.TickInterval() != 100*time.Millisecond {
		t.Fatalf("TickInterval = %v, want 100ms", c.TickInterval())
	}

	c = New(time.Now(), 100.0, 0) // New does not clamp speed: 1000/100 = 10ms, clamped to 50ms floor
	if c.TickInterval() != 50*time.Millisecond {
		t.Fatalf("TickInterval = %v, want 50ms floor", c.TickInterval())
	}
}

func TestSetSpeedClampsRange(t *testing.T) {
	c := New(time.Now(), 1.0, 0)
	c.SetSpeed(0.01)
	if c.Speed() != 0.1 {
		t.Fatalf("Speed = %v, want clamped to 0.1", c.Speed())
	}
	c.SetSpeed(1000)
	if c.Speed() != 10 {
		t.Fatalf("Speed = %v, want clamped to 10", c.Speed())
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(start, 2.0, 4)
	c.Advance(3)

	snap := c.Snapshot()
	restored := Restore(snap)

	if restored.DayCount() != c.DayCount() {
		t.Fatalf("restored day = %d, want %d", restored.DayCount(), c.DayCount())
	}
	if restored.Speed() != c.Speed() {
		t.Fatalf("restored speed = %v, want %v", restored.Speed(), c.Speed())
	}
}

type countingTarget struct {
	n int
}

func (t *countingTarget) Tick() { t.n++ }

func TestSchedulerStops(t *testing.T) {
	c := New(time.Now(), 10.0, 0) // fast tick for test speed
	target := &countingTarget{}
	s := NewScheduler(c, target)

	done := make(chan struct{})
	runDone := make(chan struct{})
	go func() {
		s.Run(done)
		close(runDone)
	}()

	time.Sleep(250 * time.Millisecond)
	s.Stop()

	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	if target.n == 0 {
		t.Fatal("expected at least one tick before stop")
	}
}
