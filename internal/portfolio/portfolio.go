// Package portfolio holds the per-Session cash/position/short
// bookkeeping. Mutation is the Trader's job (internal/trading); this
// package owns only the data shape and derived-value accessors, the
// same split the teacher draws between internal/orderbook's plain
// Order struct and Simulator's mutating logic.
package portfolio

import (
	"math"
	"sync"
)

// Position is a long holding in one symbol.
type Position struct {
	Quantity       int
	TotalCostBasis float64
}

// AvgCost returns the position's average cost per share.
func (p Position) AvgCost() float64 {
	if p.Quantity == 0 {
		return 0
	}
	return p.TotalCostBasis / float64(p.Quantity)
}

// Short is an open short position in one symbol.
type Short struct {
	Quantity   int
	EntryPrice float64
}

// TradeKind enumerates the four order outcomes the Trader can record.
type TradeKind string

const (
	Buy        TradeKind = "BUY"
	Sell       TradeKind = "SELL"
	ShortOpen  TradeKind = "SHORT_OPEN"
	ShortClose TradeKind = "SHORT_CLOSE"
)

// Trade is an immutable execution record appended to a Session's
// trade log. Never mutated after creation.
type Trade struct {
	ID             uint64
	Kind           TradeKind
	Symbol         string
	Quantity       int
	ExecutionPrice float64
	Commission     float64
	RealizedGain   float64
	WallTimestamp  int64 // unix millis
	SimTimestamp   int   // simulated day index
}

// Portfolio is the mutable cash/position/short state of one Session.
// Every mutating method must be called with the owning Session's
// mutex held — Portfolio itself adds a lightweight RWMutex only to
// guard getPortfolioDetails()-style readers against a torn snapshot
// (spec §5).
type Portfolio struct {
	mu sync.RWMutex

	Cash           float64
	Positions      map[string]*Position
	Shorts         map[string]*Short
	RealizedGains  float64

	// margin
	MarginEnabled   bool
	MarginMultiplier float64
}

// New creates a Portfolio seeded with startingCash.
func New(startingCash float64) *Portfolio {
	return &Portfolio{
		Cash:             startingCash,
		Positions:        make(map[string]*Position),
		Shorts:           make(map[string]*Short),
		MarginMultiplier: 1.0,
	}
}

// Snapshot is a consistent, copy-safe read of the Portfolio, returned
// by getPortfolioDetails()-style callers so torn reads are impossible
// (spec §5: "observes a consistent Portfolio snapshot").
type Snapshot struct {
	Cash          float64
	Positions     map[string]Position
	Shorts        map[string]Short
	RealizedGains float64
}

// Lock acquires the Portfolio's internal mutex. The Trader (a
// different package) calls Lock/Unlock around each mutating
// operation; Details/TotalValue/UsedMargin/MarginLevel take the read
// side of the same lock so a concurrent reader never observes a torn
// snapshot (spec §5).
func (p *Portfolio) Lock() { p.mu.Lock() }

// Unlock releases the Portfolio's internal mutex.
func (p *Portfolio) Unlock() { p.mu.Unlock() }

// Details returns a consistent snapshot of cash, positions and shorts.
func (p *Portfolio) Details() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make(map[string]Position, len(p.Positions))
	for sym, pos := range p.Positions {
		positions[sym] = *pos
	}
	shorts := make(map[string]Short, len(p.Shorts))
	for sym, sh := range p.Shorts {
		shorts[sym] = *sh
	}
	return Snapshot{
		Cash:          p.Cash,
		Positions:     positions,
		Shorts:        shorts,
		RealizedGains: p.RealizedGains,
	}
}

// TotalValue computes cash + long market value − short liability,
// using currentPrices keyed by symbol. Callers hold the Session mutex;
// the internal RWMutex additionally guards against concurrent readers
// calling Details() mid-mutation.
func (p *Portfolio) TotalValue(currentPrices map[string]float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := p.Cash
	for sym, pos := range p.Positions {
		total += float64(pos.Quantity) * currentPrices[sym]
	}
	for sym, sh := range p.Shorts {
		// short liability: mark-to-market loss/gain vs entry
		total -= float64(sh.Quantity)*currentPrices[sym] - sh.EntryPrice*float64(sh.Quantity)
	}
	return total
}

// UsedMargin is the notional currently financed by margin: the market
// value of long positions purchased beyond available cash. For the
// reference model this is simply the aggregate cost basis of open
// longs plus open shorts, a conservative proxy sufficient for the
// observe-only marginLevel/marginCallFlag the Trader exposes.
func (p *Portfolio) UsedMargin(currentPrices map[string]float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	used := 0.0
	for _, pos := range p.Positions {
		used += pos.TotalCostBasis
	}
	for sym, sh := range p.Shorts {
		used += sh.EntryPrice * float64(sh.Quantity)
		_ = currentPrices[sym]
	}
	return used
}

// MarginLevel returns equity / usedMargin × 100, per spec §4.3. If no
// margin is in use, MarginLevel returns +Inf (no call risk).
func (p *Portfolio) MarginLevel(currentPrices map[string]float64) float64 {
	used := p.UsedMargin(currentPrices)
	if used <= 0 {
		return math.Inf(1)
	}
	equity := p.TotalValue(currentPrices)
	return equity / used * 100
}

// MarginCallFlag reports whether MarginLevel has fallen below 130, per
// spec §4.3. The Trader only observes this flag; it never liquidates.
func (p *Portfolio) MarginCallFlag(currentPrices map[string]float64) bool {
	return p.MarginLevel(currentPrices) < 130
}
