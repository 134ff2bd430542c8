package trading

import (
	"errors"
	"testing"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/portfolio"
)

func fixedPrice(prices map[string]float64) PriceLookup {
	return func(symbol string) (float64, bool) {
		p, ok := prices[symbol]
		return p, ok
	}
}

func TestBuyDecrementsCashAndAddsPosition(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	trade, err := tr.Buy("NEXO", 10, 0)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if trade.ExecutionPrice != 100 {
		t.Fatalf("ExecutionPrice = %f, want 100", trade.ExecutionPrice)
	}
	if p.Cash != 9000 {
		t.Fatalf("Cash = %f, want 9000", p.Cash)
	}
	if p.Positions["NEXO"].Quantity != 10 {
		t.Fatalf("position qty = %d, want 10", p.Positions["NEXO"].Quantity)
	}
}

func TestBuyRejectsInsufficientCash(t *testing.T) {
	p := portfolio.New(500)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	_, err := tr.Buy("NEXO", 10, 0)
	if !errors.Is(err, apperr.ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}
}

func TestBuyRejectsConflictingShort(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	if _, err := tr.OpenShort("NEXO", 5, 0); err != nil {
		t.Fatalf("OpenShort failed: %v", err)
	}
	_, err := tr.Buy("NEXO", 1, 0)
	if !errors.Is(err, apperr.ErrConflictingShortPosition) {
		t.Fatalf("expected ErrConflictingShortPosition, got %v", err)
	}
}

func TestBuyRejectsUnknownSymbol(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{}), false)

	_, err := tr.Buy("ZZZZ", 1, 0)
	if !errors.Is(err, apperr.ErrSymbolUnknown) {
		t.Fatalf("expected ErrSymbolUnknown, got %v", err)
	}
}

func TestBuyRejectsNonPositiveQuantity(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	_, err := tr.Buy("NEXO", 0, 0)
	if !errors.Is(err, apperr.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestBuyThenSellRoundTripsCashWithoutCommission(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	if _, err := tr.Buy("NEXO", 10, 0); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if _, err := tr.Sell("NEXO", 10, 0); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if p.Cash != 10000 {
		t.Fatalf("Cash = %f, want 10000 (round trip over unchanged price)", p.Cash)
	}
	if _, exists := p.Positions["NEXO"]; exists {
		t.Fatal("position should be removed after selling full quantity")
	}
}

func TestBuyThenSellRoundTripsCashWithCommission(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), true)

	if _, err := tr.Buy("NEXO", 10, 0); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if _, err := tr.Sell("NEXO", 10, 0); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	// 2 * 0.1% of 1000 notional = 2
	want := 10000.0 - 2.0
	if p.Cash != want {
		t.Fatalf("Cash = %f, want %f", p.Cash, want)
	}
}

func TestSellRejectsInsufficientShares(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	_, err := tr.Sell("NEXO", 1, 0)
	if !errors.Is(err, apperr.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
}

func TestAverageCostBasisOnPartialSell(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	tr.Buy("NEXO", 10, 0)
	trade, err := tr.Sell("NEXO", 5, 0)
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if trade.RealizedGain != 0 {
		t.Fatalf("RealizedGain = %f, want 0 at unchanged price", trade.RealizedGain)
	}
	pos := p.Positions["NEXO"]
	if pos.Quantity != 5 {
		t.Fatalf("remaining qty = %d, want 5", pos.Quantity)
	}
	if pos.TotalCostBasis != 500 {
		t.Fatalf("remaining cost basis = %f, want 500", pos.TotalCostBasis)
	}
}

func TestOpenShortRejectsConflictingLong(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	tr.Buy("NEXO", 1, 0)
	_, err := tr.OpenShort("NEXO", 1, 0)
	if !errors.Is(err, apperr.ErrConflictingLongPosition) {
		t.Fatalf("expected ErrConflictingLongPosition, got %v", err)
	}
}

func TestOpenShortThenCloseShortRoundTrips(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	if _, err := tr.OpenShort("NEXO", 10, 0); err != nil {
		t.Fatalf("OpenShort failed: %v", err)
	}
	if p.Cash != 11000 {
		t.Fatalf("Cash after open short = %f, want 11000", p.Cash)
	}
	if _, err := tr.CloseShort("NEXO", 10, 0); err != nil {
		t.Fatalf("CloseShort failed: %v", err)
	}
	if p.Cash != 10000 {
		t.Fatalf("Cash after round-trip short = %f, want 10000", p.Cash)
	}
	if _, exists := p.Shorts["NEXO"]; exists {
		t.Fatal("short position should be removed once fully closed")
	}
}

func TestCloseShortRejectsWithoutOpenShort(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	_, err := tr.CloseShort("NEXO", 1, 0)
	if !errors.Is(err, apperr.ErrNoShortPosition) {
		t.Fatalf("expected ErrNoShortPosition, got %v", err)
	}
}

func TestCloseShortRejectsQuantityExceedsShort(t *testing.T) {
	p := portfolio.New(10000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	tr.OpenShort("NEXO", 5, 0)
	_, err := tr.CloseShort("NEXO", 10, 0)
	if !errors.Is(err, apperr.ErrQuantityExceedsShort) {
		t.Fatalf("expected ErrQuantityExceedsShort, got %v", err)
	}
}

func TestDayTradeLimitEnforced(t *testing.T) {
	p := portfolio.New(100000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	tradesToday := 0
	tr.ModeRules = ModeRules{
		MaxTradesPerDay: 3,
		TradesToday:     func() int { return tradesToday },
		IncrementToday:  func() { tradesToday++ },
	}

	for i := 0; i < 3; i++ {
		if _, err := tr.Buy("NEXO", 1, 0); err != nil {
			t.Fatalf("trade %d should succeed, got %v", i, err)
		}
	}
	if _, err := tr.Buy("NEXO", 1, 0); !errors.Is(err, apperr.ErrDayTradeLimitExceeded) {
		t.Fatalf("expected ErrDayTradeLimitExceeded on 4th trade, got %v", err)
	}
}

func TestTradeIDsAreUniqueAndMonotonic(t *testing.T) {
	p := portfolio.New(100000)
	tr := New(p, fixedPrice(map[string]float64{"NEXO": 100}), false)

	t1, _ := tr.Buy("NEXO", 1, 0)
	t2, _ := tr.Buy("NEXO", 1, 0)
	if t2.ID <= t1.ID {
		t.Fatalf("expected monotonic trade IDs, got %d then %d", t1.ID, t2.ID)
	}
}
