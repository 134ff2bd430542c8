package session

import (
	"context"
	"log"
	"time"

	"github.com/marketsim/core/internal/metrics"
)

// Reaper periodically sweeps a Registry for sessions whose last
// activity exceeds an idle threshold and unregisters them, per spec
// §3's "destroyed on explicit disconnect, timeout, or process
// shutdown" — the timeout mechanism the distilled spec leaves
// unspecified. Adapted from the teacher's
// internal/persist/retention.go RunRetention ticker loop (same
// run-once-then-ticker shape; Run returns on ctx.Done() without a
// final sweep), repurposed from pruning old trade documents to reaping
// idle in-memory sessions.
type Reaper struct {
	registry *Registry
	idle     time.Duration
}

// NewReaper creates a Reaper over registry, evicting sessions idle for
// longer than idleTimeout.
func NewReaper(registry *Registry, idleTimeout time.Duration) *Reaper {
	return &Reaper{registry: registry, idle: idleTimeout}
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (rp *Reaper) Run(ctx context.Context, interval time.Duration) {
	if rp.idle <= 0 {
		log.Println("session reaper disabled (idle timeout <= 0)")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	rp.sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rp.sweep()
		}
	}
}

func (rp *Reaper) sweep() {
	reaped := 0
	for _, s := range rp.registry.Snapshot() {
		if s.IdleSince() > rp.idle {
			rp.registry.Unregister(s.ID)
			metrics.ActiveSessions.Dec()
			reaped++
		}
	}
	if reaped > 0 {
		log.Printf("session reaper: evicted %d idle session(s)", reaped)
	}
}
