package portfolio

import "testing"

func TestNewSeedsCash(t *testing.T) {
	p := New(100000)
	if p.Cash != 100000 {
		t.Fatalf("Cash = %f, want 100000", p.Cash)
	}
}

func TestDetailsIsACopy(t *testing.T) {
	p := New(1000)
	p.Positions["NEXO"] = &Position{Quantity: 10, TotalCostBasis: 1800}

	snap := p.Details()
	snap.Positions["NEXO"] = Position{Quantity: 999}

	if p.Positions["NEXO"].Quantity != 10 {
		t.Fatal("mutating a Details() snapshot leaked into the live Portfolio")
	}
}

func TestTotalValueIncludesLongsAndShorts(t *testing.T) {
	p := New(1000)
	p.Positions["NEXO"] = &Position{Quantity: 10, TotalCostBasis: 1800}
	p.Shorts["QBIT"] = &Short{Quantity: 5, EntryPrice: 90}

	prices := map[string]float64{"NEXO": 200, "QBIT": 80}
	// cash + 10*200 - (5*80 - 90*5) = 1000 + 2000 - (400-450) = 1000+2000+50
	want := 1000.0 + 2000.0 - (400.0 - 450.0)
	got := p.TotalValue(prices)
	if got != want {
		t.Fatalf("TotalValue = %f, want %f", got, want)
	}
}

func TestMarginLevelInfiniteWithoutMargin(t *testing.T) {
	p := New(1000)
	if !isInf(p.MarginLevel(nil)) {
		t.Fatal("expected +Inf margin level with no open positions")
	}
}

func isInf(f float64) bool {
	return f > 1e300
}

func TestAvgCost(t *testing.T) {
	pos := Position{Quantity: 4, TotalCostBasis: 800}
	if pos.AvgCost() != 200 {
		t.Fatalf("AvgCost = %f, want 200", pos.AvgCost())
	}
	empty := Position{}
	if empty.AvgCost() != 0 {
		t.Fatal("AvgCost of empty position should be 0")
	}
}
