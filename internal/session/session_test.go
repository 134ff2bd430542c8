package session

import (
	"math"
	"testing"

	"github.com/marketsim/core/internal/catalog"
	"github.com/marketsim/core/internal/portfolio"
	"github.com/marketsim/core/internal/priceengine"
)

func testInstruments() []catalog.Instrument {
	return []catalog.Instrument{
		{Symbol: "NEXO", DisplayName: "Nexo Dynamics Inc", Type: catalog.TypeGrowth, BasePrice: 100, BaseVolatility: 0.03},
		{Symbol: "TBND", DisplayName: "Treasury Bond Fund", Type: catalog.TypeBond, BasePrice: 100, BaseVolatility: 0.002},
	}
}

func TestNewSessionClampsStartingCapital(t *testing.T) {
	cfg := Config{StartingCapital: 5_000_000, RiskLevel: RiskModerate, Difficulty: DifficultyMedium, Mode: ModeClassic}
	s := New("user-1", OwnerHuman, cfg, testInstruments(), priceengine.NewRNG(42), false)
	if s.Portfolio.Cash != maxStartingCapital {
		t.Fatalf("Cash = %f, want clamp to %f", s.Portfolio.Cash, maxStartingCapital)
	}
}

func TestBuyThenSellRoundTripsCash(t *testing.T) {
	cfg := Config{StartingCapital: 25_000, RiskLevel: RiskModerate, Difficulty: DifficultyMedium, Mode: ModeClassic}
	s := New("user-1", OwnerHuman, cfg, testInstruments(), priceengine.NewRNG(42), false)

	if _, err := s.Buy("NEXO", 10); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := s.Sell("NEXO", 10); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	snap, _ := s.PortfolioDetails()
	if snap.Cash != 25_000 {
		t.Fatalf("Cash = %f, want 25000 (no commission, unchanged price)", snap.Cash)
	}
	if len(snap.Positions) != 0 {
		t.Fatalf("expected position closed, got %+v", snap.Positions)
	}
	if len(s.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(s.Trades))
	}
}

func TestDaytraderLimitResetsOnDayRollover(t *testing.T) {
	cfg := Config{StartingCapital: 25_000, RiskLevel: RiskModerate, Difficulty: DifficultyMedium, Mode: ModeDaytrader}
	s := New("bot-1", OwnerBot, cfg, testInstruments(), priceengine.NewRNG(1), false)

	for i := 0; i < 3; i++ {
		if _, err := s.Buy("NEXO", 1); err != nil {
			t.Fatalf("buy %d: %v", i, err)
		}
	}
	if _, err := s.Buy("NEXO", 1); err == nil {
		t.Fatal("expected 4th same-day buy to be rejected")
	}

	s.ModeState.OnDayRollover(ModeDaytrader, s.Clock.DayCount()+1, s.TotalValue(), s.initialCapital)
	if s.ModeState.TradesToday != 0 {
		t.Fatalf("TradesToday = %d after rollover, want 0", s.ModeState.TradesToday)
	}

	if _, err := s.Buy("NEXO", 1); err != nil {
		t.Fatalf("buy after rollover should succeed: %v", err)
	}
}

func TestCustomModeClockStopsAtWeekBudget(t *testing.T) {
	cfg := Config{Mode: ModeCustom, Weeks: 1}
	s := New("bot-1", OwnerBot, cfg, testInstruments(), priceengine.NewRNG(1), false)

	for i := 0; i < 7; i++ {
		s.Tick()
	}
	if s.Clock.DayCount() != 7 {
		t.Fatalf("day count = %d, want 7", s.Clock.DayCount())
	}
	if s.Clock.Exhausted() {
		t.Fatal("clock should not be exhausted yet at exactly the boundary")
	}

	s.Tick()
	if !s.Clock.Exhausted() {
		t.Fatal("clock should be exhausted one tick past the week budget")
	}
	if s.Clock.DayCount() != 7 {
		t.Fatalf("day count after exhaustion = %d, want unchanged 7", s.Clock.DayCount())
	}
}

func TestShortPnLInvertedSign(t *testing.T) {
	cfg := Config{StartingCapital: 25_000, RiskLevel: RiskModerate, Difficulty: DifficultyMedium, Mode: ModeClassic}
	s := New("user-1", OwnerHuman, cfg, testInstruments(), priceengine.NewRNG(42), false)

	open, err := s.OpenShort("NEXO", 10)
	if err != nil {
		t.Fatalf("OpenShort: %v", err)
	}

	// let one tick move the price, then close at the new price
	s.Tick()
	exit, _ := s.Engine.Snapshot("NEXO")

	trade, err := s.CloseShort("NEXO", 10)
	if err != nil {
		t.Fatalf("CloseShort: %v", err)
	}
	if trade.Kind != portfolio.ShortClose {
		t.Fatalf("Kind = %s, want SHORT_CLOSE", trade.Kind)
	}
	// a short gains when the price falls: (entry - exit) × qty
	want := (open.ExecutionPrice - exit.Price) * 10
	if math.Abs(trade.RealizedGain-want) > 1e-9 {
		t.Fatalf("RealizedGain = %f, want (entry - exit) × qty = %f", trade.RealizedGain, want)
	}
}
