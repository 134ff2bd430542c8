package chat

import (
	"strings"
	"testing"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/broadcast"
)

func fixedLookup(name string) DisplayNameLookup {
	return func(userID string) (string, error) { return name, nil }
}

func TestPostRejectsEmptyText(t *testing.T) {
	r := NewRoom(broadcast.NewHub(), fixedLookup("Trader"))
	_, err := r.Post("u1", "   ", 1)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestPostRejectsOverLengthText(t *testing.T) {
	r := NewRoom(broadcast.NewHub(), fixedLookup("Trader"))
	_, err := r.Post("u1", strings.Repeat("a", maxTextLen+1), 1)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestPostTrimsAndAssignsIncrementingIDs(t *testing.T) {
	r := NewRoom(broadcast.NewHub(), fixedLookup("Trader"))

	m1, err := r.Post("u1", "  hello  ", 1)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if m1.Text != "hello" {
		t.Fatalf("Text = %q, want %q", m1.Text, "hello")
	}

	m2, err := r.Post("u1", "world", 1)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if m2.ID <= m1.ID {
		t.Fatalf("ID not incrementing: %d <= %d", m2.ID, m1.ID)
	}
}

func TestMessagesNewestFirstWithLimitAndOffset(t *testing.T) {
	r := NewRoom(broadcast.NewHub(), fixedLookup("Trader"))
	for i := 0; i < 5; i++ {
		if _, err := r.Post("u1", "msg", 1); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}

	got, total := r.Messages(2, 0)
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].ID != 5 || got[1].ID != 4 {
		t.Fatalf("got ids %d,%d, want 5,4", got[0].ID, got[1].ID)
	}

	got, _ = r.Messages(2, 4)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("offset window wrong: %+v", got)
	}
}

func TestMessagesClampsLimit(t *testing.T) {
	r := NewRoom(broadcast.NewHub(), fixedLookup("Trader"))
	for i := 0; i < 5; i++ {
		r.Post("u1", "msg", 1)
	}
	got, _ := r.Messages(1000, 0)
	if len(got) != 5 {
		t.Fatalf("len(got) = %d, want 5 (clamped but capped by actual count)", len(got))
	}
}
