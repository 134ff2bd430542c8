package users

import (
	"context"
	"testing"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/auth"
)

func TestCreateRejectsDuplicateIdentifier(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	if _, err := m.Create(ctx, "trader1", "Trader One", "hash", auth.RoleUser); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := m.Create(ctx, "trader1", "Trader One Again", "hash2", auth.RoleUser)
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestRecordSessionResultUpdatesStats(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	u, _ := m.Create(ctx, "trader1", "Trader One", "hash", auth.RoleUser)

	if err := m.RecordSessionResult(ctx, u.ID, 10.0); err != nil {
		t.Fatalf("RecordSessionResult: %v", err)
	}
	if err := m.RecordSessionResult(ctx, u.ID, 30.0); err != nil {
		t.Fatalf("RecordSessionResult: %v", err)
	}

	got, _ := m.FindByID(ctx, u.ID)
	if got.Stats.GamesPlayed != 2 {
		t.Fatalf("GamesPlayed = %d, want 2", got.Stats.GamesPlayed)
	}
	if got.Stats.BestReturn != 30.0 {
		t.Fatalf("BestReturn = %f, want 30.0", got.Stats.BestReturn)
	}
	if got.Stats.AverageReturn != 20.0 {
		t.Fatalf("AverageReturn = %f, want 20.0", got.Stats.AverageReturn)
	}
}

func TestSeedAccountIsIdempotent(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	if err := SeedAccount(ctx, m, "admin", "hash", auth.RoleAdmin); err != nil {
		t.Fatalf("first SeedAccount: %v", err)
	}
	if err := SeedAccount(ctx, m, "admin", "hash", auth.RoleAdmin); err != nil {
		t.Fatalf("second SeedAccount: %v", err)
	}

	u, err := m.FindByIdentifier(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByIdentifier: %v", err)
	}
	if u.Role != auth.RoleAdmin {
		t.Fatalf("Role = %q, want admin", u.Role)
	}
}

func TestSeedAccountSkipsEmptyIdentifier(t *testing.T) {
	m := NewMemStore()
	if err := SeedAccount(context.Background(), m, "", "hash", auth.RoleTester); err != nil {
		t.Fatalf("SeedAccount with empty identifier: %v", err)
	}
}
