// Package session implements the Session and SessionRegistry
// components (spec §3, §4.4): a bound tuple of Config, Clock,
// PriceEngine, Portfolio, TradeLog and ModeState, owned by a single
// mutex, plus the concurrent registry of active sessions. Adapted
// from the teacher's internal/session package (Client/Manager), which
// tracked WebSocket subscribers rather than trading state — the
// registry's RWMutex/map[id]*T shape and idempotent
// Register/Unregister/lifecycle pattern carries over; the per-entity
// payload is rebuilt from scratch for this domain.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/catalog"
	"github.com/marketsim/core/internal/clock"
	"github.com/marketsim/core/internal/portfolio"
	"github.com/marketsim/core/internal/priceengine"
	"github.com/marketsim/core/internal/trading"
)

// OwnerKind distinguishes a human-owned Session from a bot-owned one,
// relevant only for registry bookkeeping (spec §4.4: "each human user
// has at most one primary session").
type OwnerKind string

const (
	OwnerHuman OwnerKind = "human"
	OwnerBot   OwnerKind = "bot"
)

// Session is the private trading context spec §3 defines: one
// Portfolio, one simulated market tape, one ModeState. Every mutating
// operation (Tick, order admission) must hold mu for its duration —
// the sole synchronization point for in-session state, per spec §5.
type Session struct {
	mu sync.Mutex

	ID        string
	Owner     string
	OwnerKind OwnerKind

	Config    Config
	Clock     *clock.Clock
	Engine    *priceengine.Engine
	Portfolio *portfolio.Portfolio
	Trader    *trading.Trader
	ModeState ModeState
	Trades    []portfolio.Trade

	instruments []catalog.Instrument

	initialCapital float64
	lastActivity   atomic.Int64 // unix seconds
}

// New creates a Session for owner, seeded with instruments at their
// catalog base prices and startingCash in the Portfolio.
func New(owner string, ownerKind OwnerKind, cfg Config, instruments []catalog.Instrument, rng *priceengine.RNG, commissionsOn bool) *Session {
	cfg = cfg.Normalize()

	engine := priceengine.New(rng, instruments)
	pf := portfolio.New(cfg.StartingCapital)
	pf.MarginEnabled = cfg.MarginEnabled
	pf.MarginMultiplier = cfg.MarginMultiplier

	var weeksBudget int
	if cfg.Mode == ModeCustom {
		weeksBudget = cfg.Weeks
	}

	s := &Session{
		ID:             uuid.NewString(),
		Owner:          owner,
		OwnerKind:      ownerKind,
		Config:         cfg,
		Clock:          clock.New(time.Now(), 1.0, weeksBudget),
		Engine:         engine,
		Portfolio:      pf,
		ModeState:      NewModeState(cfg),
		instruments:    instruments,
		initialCapital: cfg.StartingCapital,
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

func (s *Session) priceLookup(symbol string) (float64, bool) {
	st, ok := s.Engine.Snapshot(symbol)
	if !ok {
		return 0, false
	}
	return st.Price, true
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().Unix())
}

// IdleSince reports how long the Session has gone without a Tick or
// order admission.
func (s *Session) IdleSince() time.Duration {
	return time.Since(time.Unix(s.lastActivity.Load(), 0))
}

// Tick advances the Session's Clock and PriceEngine by one scheduler
// interval, implementing the Clock Scheduler's per-Session callback
// (spec §4.8). Because it returns deltas, it does not satisfy
// clock.Ticker itself; tickAdapter in cmd/marketsim wraps it for the
// clock.Scheduler.
func (s *Session) Tick() []priceengine.MarketDelta {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	prevDay := s.Clock.DayCount()
	newDay, exhausted := s.Clock.Advance(1)
	if exhausted && newDay == prevDay {
		return nil
	}

	deltas := s.Engine.Tick(1, s.Config.RiskLevel.Multiplier(), s.Config.Difficulty.Multiplier())

	if newDay != prevDay {
		s.ModeState.OnDayRollover(s.Config.Mode, newDay, s.totalValueLocked(), s.initialCapital)
	}

	return deltas
}

func (s *Session) totalValueLocked() float64 {
	return s.Portfolio.TotalValue(s.Engine.AllPrices())
}

// TotalValue returns the Session's current mark-to-market portfolio
// value (cash + longs − short liability), per spec §8's invariant.
func (s *Session) TotalValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalValueLocked()
}

// recordTrade appends trade to the append-only TradeLog. Callers must
// hold s.mu.
func (s *Session) recordTrade(t portfolio.Trade) {
	t.SimTimestamp = s.Clock.DayCount()
	s.Trades = append(s.Trades, t)
}

// Buy admits a buy order, enforcing mode rules and executing at the
// current price, per spec §4.3. The whole operation is atomic: either
// cash/position/trades/modeState all mutate together, or none do.
func (s *Session) Buy(symbol string, qty int) (portfolio.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	t, err := s.Trader.Buy(symbol, qty, s.Clock.DayCount())
	if err != nil {
		return portfolio.Trade{}, err
	}
	s.recordTrade(t)
	return t, nil
}

// Sell admits a sell order symmetric to Buy.
func (s *Session) Sell(symbol string, qty int) (portfolio.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	t, err := s.Trader.Sell(symbol, qty, s.Clock.DayCount())
	if err != nil {
		return portfolio.Trade{}, err
	}
	s.recordTrade(t)
	return t, nil
}

// OpenShort admits a short-open order.
func (s *Session) OpenShort(symbol string, qty int) (portfolio.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	t, err := s.Trader.OpenShort(symbol, qty, s.Clock.DayCount())
	if err != nil {
		return portfolio.Trade{}, err
	}
	s.recordTrade(t)
	return t, nil
}

// CloseShort admits a short-close order.
func (s *Session) CloseShort(symbol string, qty int) (portfolio.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	t, err := s.Trader.CloseShort(symbol, qty, s.Clock.DayCount())
	if err != nil {
		return portfolio.Trade{}, err
	}
	s.recordTrade(t)
	return t, nil
}

// Execute dispatches a named order kind to the matching Trader method,
// the single entry point ControlAPI's bot-order handler calls.
func (s *Session) Execute(kind portfolio.TradeKind, symbol string, qty int) (portfolio.Trade, error) {
	switch kind {
	case portfolio.Buy:
		return s.Buy(symbol, qty)
	case portfolio.Sell:
		return s.Sell(symbol, qty)
	case portfolio.ShortOpen:
		return s.OpenShort(symbol, qty)
	case portfolio.ShortClose:
		return s.CloseShort(symbol, qty)
	default:
		return portfolio.Trade{}, apperr.New(apperr.Validation, "unknown order kind %q", kind)
	}
}

// PortfolioDetails returns a consistent snapshot of cash/positions/
// shorts plus the current total value, per spec §5's "no torn read"
// requirement.
func (s *Session) PortfolioDetails() (portfolio.Snapshot, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Portfolio.Details(), s.totalValueLocked()
}

// MarginView returns the Portfolio's current margin level and
// margin-call flag against live prices, per spec §4.3 ("observable on
// the Portfolio").
func (s *Session) MarginView() (level float64, callFlag bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prices := s.Engine.AllPrices()
	return s.Portfolio.MarginLevel(prices), s.Portfolio.MarginCallFlag(prices)
}

// Stats is the bot-stats aggregation view spec §6 names
// (GET /bot/{id}/stats) without detailing further — computed the way
// the teacher's api.handleStats aggregates order/trade counts across
// books, generalized to one Session.
type Stats struct {
	TradeCount     int
	RealizedGains  float64
	UnrealizedPnL  float64
	PortfolioValue float64
	WinRate        float64
}

// Stats computes the bot-stats aggregation view.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.Portfolio.Details()
	total := s.totalValueLocked()

	wins := 0
	scored := 0
	for _, t := range s.Trades {
		if t.Kind == portfolio.Sell || t.Kind == portfolio.ShortClose {
			scored++
			if t.RealizedGain > 0 {
				wins++
			}
		}
	}
	winRate := 0.0
	if scored > 0 {
		winRate = float64(wins) / float64(scored)
	}

	costBasis := 0.0
	for _, pos := range snap.Positions {
		costBasis += pos.TotalCostBasis
	}
	// total - cash already carries each short's (entry - current) × qty,
	// so only the longs' cost basis is subtracted.
	unrealized := (total - snap.Cash) - costBasis

	return Stats{
		TradeCount:     len(s.Trades),
		RealizedGains:  snap.RealizedGains,
		UnrealizedPnL:  unrealized,
		PortfolioValue: total,
		WinRate:        winRate,
	}
}

func sumShortEntryNotional(snap portfolio.Snapshot) float64 {
	total := 0.0
	for _, sh := range snap.Shorts {
		total += sh.EntryPrice * float64(sh.Quantity)
	}
	return total
}

// Allocation reports current-vs-target allocation by instrument type,
// informational only per spec §4.9 (portfolio mode).
func (s *Session) Allocation() AllocationView {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[string]catalog.InstrumentType, len(s.instruments))
	for _, ins := range s.instruments {
		byType[ins.Symbol] = ins.Type
	}

	current := map[catalog.InstrumentType]float64{}
	total := s.Portfolio.Cash
	byTypeValue := map[catalog.InstrumentType]float64{}
	prices := s.Engine.AllPrices()
	for sym, pos := range s.Portfolio.Positions {
		value := float64(pos.Quantity) * prices[sym]
		total += value
		byTypeValue[byType[sym]] += value
	}
	if total > 0 {
		for t, v := range byTypeValue {
			current[t] = v / total
		}
	}

	return AllocationView{Current: current, Target: s.ModeState.TargetAllocation}
}
