package savestore

import (
	"context"
	"testing"

	"github.com/marketsim/core/internal/apperr"
)

func TestCreateCodeFormat(t *testing.T) {
	m := NewMemStore()
	code, err := m.CreateCode(context.Background())
	if err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	if len(code) != codeLength {
		t.Fatalf("len(code) = %d, want %d", len(code), codeLength)
	}
	for _, c := range code {
		if !strings_ContainsRune(codeAlphabet, c) {
			t.Fatalf("code %q contains invalid character %q", code, c)
		}
	}
}

func strings_ContainsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func TestPutGetRoundTrip(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	code, err := m.CreateCode(ctx)
	if err != nil {
		t.Fatalf("CreateCode: %v", err)
	}

	snap := Snapshot{Config: ConfigSnapshot{StartingCapital: 25000, Mode: "classic"}}
	if err := m.Put(ctx, code, "slot-a", snap); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := m.GetPreset(ctx, code, "slot-a")
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	if got.Config.StartingCapital != 25000 {
		t.Fatalf("StartingCapital = %f, want 25000", got.Config.StartingCapital)
	}

	rec, err := m.Get(ctx, code)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ActivePreset != "slot-a" {
		t.Fatalf("ActivePreset = %q, want slot-a", rec.ActivePreset)
	}
	if len(rec.Presets) != 1 {
		t.Fatalf("Presets len = %d, want 1", len(rec.Presets))
	}
}

func TestDeletePresetIsIdempotentAndReassignsActive(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	code, _ := m.CreateCode(ctx)
	m.Put(ctx, code, "b-slot", Snapshot{})
	m.Put(ctx, code, "a-slot", Snapshot{})

	rec, _ := m.Get(ctx, code)
	if rec.ActivePreset != "a-slot" {
		t.Fatalf("ActivePreset = %q, want a-slot (most recently put)", rec.ActivePreset)
	}

	if err := m.DeletePreset(ctx, code, "a-slot"); err != nil {
		t.Fatalf("DeletePreset: %v", err)
	}
	rec, _ = m.Get(ctx, code)
	if rec.ActivePreset != "b-slot" {
		t.Fatalf("ActivePreset after delete = %q, want b-slot (lexicographically smallest remaining)", rec.ActivePreset)
	}

	err := m.DeletePreset(ctx, code, "a-slot")
	if !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("second delete should return NotFound, got %v", err)
	}
}

func TestGetUnknownCodeIsNotFound(t *testing.T) {
	m := NewMemStore()
	_, err := m.Get(context.Background(), "NOSUCHCOD")
	if !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
