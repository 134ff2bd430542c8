package session

import (
	"testing"

	"github.com/marketsim/core/internal/priceengine"
)

func newTestSession(owner string, kind OwnerKind) *Session {
	cfg := Config{StartingCapital: 25_000, RiskLevel: RiskModerate, Difficulty: DifficultyMedium, Mode: ModeClassic}
	return New(owner, kind, cfg, testInstruments(), priceengine.NewRNG(1), false)
}

func TestRegistryRegisterGetUnregister(t *testing.T) {
	r := NewRegistry()
	s := newTestSession("user-1", OwnerHuman)

	r.Register(s)
	if got, ok := r.Get(s.ID); !ok || got != s {
		t.Fatal("Get did not return registered session")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}

	r.Unregister(s.ID)
	if _, ok := r.Get(s.ID); ok {
		t.Fatal("session still present after Unregister")
	}

	// idempotent
	r.Unregister(s.ID)
}

func TestRegistryPrimarySessionPerHumanUser(t *testing.T) {
	r := NewRegistry()
	s1 := newTestSession("user-1", OwnerHuman)
	s2 := newTestSession("user-1", OwnerHuman)

	r.Register(s1)
	r.Register(s2)

	got, ok := r.PrimaryFor("user-1")
	if !ok || got != s2 {
		t.Fatal("expected most recently registered session to be primary")
	}
}

func TestRegistrySnapshotIsStableCopy(t *testing.T) {
	r := NewRegistry()
	r.Register(newTestSession("user-1", OwnerHuman))
	r.Register(newTestSession("bot-1", OwnerBot))

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(snap))
	}

	r.Unregister(snap[0].ID)
	if len(snap) != 2 {
		t.Fatal("mutating registry after Snapshot must not affect the returned slice")
	}
}
