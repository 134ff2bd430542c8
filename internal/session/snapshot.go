package session

import (
	"github.com/google/uuid"

	"github.com/marketsim/core/internal/catalog"
	"github.com/marketsim/core/internal/clock"
	"github.com/marketsim/core/internal/portfolio"
	"github.com/marketsim/core/internal/priceengine"
	"github.com/marketsim/core/internal/savestore"
	"github.com/marketsim/core/internal/trading"
)

// ToSnapshot captures the Session's full state as the closed,
// typed savestore.Snapshot document (spec §4.7), the save
// path's half of the load(save(S)) ≡ S round-trip law (spec §8).
func (s *Session) ToSnapshot() savestore.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfgSnap := savestore.ConfigSnapshot{
		StartingCapital:  s.Config.StartingCapital,
		RiskLevel:        string(s.Config.RiskLevel),
		Difficulty:       string(s.Config.Difficulty),
		Mode:             string(s.Config.Mode),
		Weeks:            s.Config.Weeks,
		ShowDayCounter:   s.Config.ShowDayCounter,
		MarginEnabled:    s.Config.MarginEnabled,
		MarginMultiplier: s.Config.MarginMultiplier,
	}

	pf := s.Portfolio.Details()
	positions := make(map[string]savestore.PositionSnapshot, len(pf.Positions))
	for sym, p := range pf.Positions {
		positions[sym] = savestore.PositionSnapshot{Quantity: p.Quantity, TotalCostBasis: p.TotalCostBasis}
	}
	shorts := make(map[string]savestore.ShortSnapshot, len(pf.Shorts))
	for sym, sh := range pf.Shorts {
		shorts[sym] = savestore.ShortSnapshot{Quantity: sh.Quantity, EntryPrice: sh.EntryPrice}
	}

	engineState := s.Engine.SnapshotAll()
	stocks := make(map[string]savestore.StockSnapshot, len(engineState.Prices))
	history := make(map[string][]float64, len(engineState.Prices))
	for sym, ps := range engineState.Prices {
		stocks[sym] = savestore.StockSnapshot{Price: ps.Price, PrevDelta: ps.PrevDelta}
		history[sym] = append([]float64(nil), ps.History...)
	}

	trades := make([]savestore.TradeSnapshot, 0, len(s.Trades))
	for _, t := range s.Trades {
		trades = append(trades, savestore.TradeSnapshot{
			ID:             t.ID,
			Kind:           string(t.Kind),
			Symbol:         t.Symbol,
			Quantity:       t.Quantity,
			ExecutionPrice: t.ExecutionPrice,
			Commission:     t.Commission,
			RealizedGain:   t.RealizedGain,
			WallTimestamp:  t.WallTimestamp,
			SimTimestamp:   t.SimTimestamp,
		})
	}

	targetAlloc := make(map[string]float64, len(s.ModeState.TargetAllocation))
	for t, v := range s.ModeState.TargetAllocation {
		targetAlloc[string(t)] = v
	}

	clockState := s.Clock.Snapshot()

	return savestore.Snapshot{
		Config: cfgSnap,
		Simulator: savestore.SimulatorSnapshot{
			Config: cfgSnap,
			Portfolio: savestore.PortfolioSnapshot{
				Cash:          pf.Cash,
				Positions:     positions,
				Shorts:        shorts,
				RealizedGains: pf.RealizedGains,
			},
			Stocks:        stocks,
			PriceHistory:  history,
			SimulatedTime: clockState.StartDate.AddDate(0, 0, clockState.Day),
			Day:           clockState.Day,
			Trades:        trades,
			ModeState: savestore.ModeStateSnapshot{
				TradesToday:      s.ModeState.TradesToday,
				CurrentSimDay:    s.ModeState.CurrentSimDay,
				DailyTarget:      s.ModeState.DailyTarget,
				DaysCompleted:    s.ModeState.DaysCompleted,
				StreakDays:       s.ModeState.StreakDays,
				TargetAllocation: targetAlloc,
				StartDay:         s.ModeState.StartDay,
				WeeksBudget:      s.ModeState.WeeksBudget,
			},
			StartTime:      clockState.StartDate,
			InitialCapital: s.initialCapital,
			Engine:         savestore.EngineStateSnapshot{RNGState: engineState.RNGState, RNGInc: engineState.RNGInc},
			Speed:          clockState.Speed,
			TradeIDCounter: trading.GetTradeIDCounter(),
		},
	}
}

// Restore rebuilds a Session owned by owner from a previously captured
// Snapshot, against the given instrument universe, the load() half of
// spec §8's round-trip law. commissionsOn is re-supplied by the
// caller (it is a process-wide setting, not part of the saved state).
func Restore(owner string, ownerKind OwnerKind, snap savestore.Snapshot, instruments []catalog.Instrument, commissionsOn bool) *Session {
	cfg := Config{
		StartingCapital:  snap.Config.StartingCapital,
		RiskLevel:        RiskLevel(snap.Config.RiskLevel),
		Difficulty:       Difficulty(snap.Config.Difficulty),
		Mode:             Mode(snap.Config.Mode),
		Weeks:            snap.Config.Weeks,
		ShowDayCounter:   snap.Config.ShowDayCounter,
		MarginEnabled:    snap.Config.MarginEnabled,
		MarginMultiplier: snap.Config.MarginMultiplier,
	}.Normalize()

	sim := snap.Simulator

	// A restored save's trade IDs must stay globally unique alongside
	// every other live session's counter, so Restore only ever raises
	// the shared counter, never lowers it.
	if sim.TradeIDCounter > trading.GetTradeIDCounter() {
		trading.SetTradeIDCounter(sim.TradeIDCounter)
	}

	pf := portfolio.New(sim.Portfolio.Cash)
	pf.MarginEnabled = cfg.MarginEnabled
	pf.MarginMultiplier = cfg.MarginMultiplier
	pf.RealizedGains = sim.Portfolio.RealizedGains
	for sym, p := range sim.Portfolio.Positions {
		pf.Positions[sym] = &portfolio.Position{Quantity: p.Quantity, TotalCostBasis: p.TotalCostBasis}
	}
	for sym, sh := range sim.Portfolio.Shorts {
		pf.Shorts[sym] = &portfolio.Short{Quantity: sh.Quantity, EntryPrice: sh.EntryPrice}
	}

	engineState := priceengine.EngineState{
		RNGState: sim.Engine.RNGState,
		RNGInc:   sim.Engine.RNGInc,
		Prices:   make(map[string]priceengine.PriceState, len(sim.Stocks)),
	}
	for sym, st := range sim.Stocks {
		engineState.Prices[sym] = priceengine.PriceState{
			Price:     st.Price,
			PrevDelta: st.PrevDelta,
			History:   append([]float64(nil), sim.PriceHistory[sym]...),
		}
	}
	engine := priceengine.Restore(engineState, instruments)

	targetAlloc := make(map[catalog.InstrumentType]float64, len(sim.ModeState.TargetAllocation))
	for t, v := range sim.ModeState.TargetAllocation {
		targetAlloc[catalog.InstrumentType(t)] = v
	}

	trades := make([]portfolio.Trade, 0, len(sim.Trades))
	for _, t := range sim.Trades {
		trades = append(trades, portfolio.Trade{
			ID:             t.ID,
			Kind:           portfolio.TradeKind(t.Kind),
			Symbol:         t.Symbol,
			Quantity:       t.Quantity,
			ExecutionPrice: t.ExecutionPrice,
			Commission:     t.Commission,
			RealizedGain:   t.RealizedGain,
			WallTimestamp:  t.WallTimestamp,
			SimTimestamp:   t.SimTimestamp,
		})
	}

	s := &Session{
		ID:        uuid.NewString(),
		Owner:     owner,
		OwnerKind: ownerKind,
		Config:    cfg,
		Clock: clock.Restore(clock.State{
			StartDate:   sim.StartTime,
			Day:         sim.Day,
			Speed:       sim.Speed,
			WeeksBudget: sim.ModeState.WeeksBudget,
		}),
		Engine:    engine,
		Portfolio: pf,
		ModeState: ModeState{
			TradesToday:      sim.ModeState.TradesToday,
			CurrentSimDay:    sim.ModeState.CurrentSimDay,
			DailyTarget:      sim.ModeState.DailyTarget,
			DaysCompleted:    sim.ModeState.DaysCompleted,
			StreakDays:       sim.ModeState.StreakDays,
			TargetAllocation: targetAlloc,
			StartDay:         sim.ModeState.StartDay,
			WeeksBudget:      sim.ModeState.WeeksBudget,
		},
		Trades:         trades,
		instruments:    instruments,
		initialCapital: sim.InitialCapital,
	}
	s.Trader = trading.New(pf, s.priceLookup, commissionsOn)
	s.Trader.ModeRules = trading.ModeRules{
		MaxTradesPerDay: DayTradeLimit(cfg.Mode),
		TradesToday:     func() int { return s.ModeState.TradesToday },
		IncrementToday:  func() { s.ModeState.TradesToday++ },
	}
	s.touch()
	return s
}
