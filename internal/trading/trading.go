// Package trading implements the Trader: order admission, mode-rule
// enforcement, and atomic execution against a Session's current
// prices. The per-op dispatch mirrors the teacher's
// internal/orderbook/simulator.go action-switch shape, trading its
// weighted random action picker for a direct method call per
// operation named by a caller (ControlAPI or bot client).
package trading

import (
	"sync/atomic"
	"time"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/portfolio"
)

const commissionRate = 0.001 // 0.1% of notional, both sides (spec §4.3)

// tradeIDCounter is a package-level atomic ID source, the same shape
// as the teacher's orderbook.NextOrderID/NextMatchNumber counters.
var tradeIDCounter uint64

// NextTradeID returns a globally unique Trade ID.
func NextTradeID() uint64 {
	return atomic.AddUint64(&tradeIDCounter, 1)
}

// SetTradeIDCounter restores the counter from persistence.
func SetTradeIDCounter(val uint64) {
	atomic.StoreUint64(&tradeIDCounter, val)
}

// GetTradeIDCounter returns the counter's current value for persistence.
func GetTradeIDCounter() uint64 {
	return atomic.LoadUint64(&tradeIDCounter)
}

// PriceLookup resolves a symbol's current mid-price for execution.
// Callers pass the Session's PriceEngine (or catalog-backed fallback).
type PriceLookup func(symbol string) (price float64, ok bool)

// Trader executes orders against one Portfolio. A Trader instance is
// scoped to a single Session and must only be called with that
// Session's mutex held — spec §4.3's atomicity contract depends on it.
type Trader struct {
	Portfolio       *portfolio.Portfolio
	Prices          PriceLookup
	CommissionsOn   bool
	MaxLongAndShort bool // not read: Buy and OpenShort always reject a symbol that holds the opposite side

	ModeRules ModeRules
}

// ModeRules captures the mode-specific constraints a Trader enforces
// without needing to know which mode variant is active — the
// ModeState (internal/session) feeds in only the derived
// limits, keeping Trader mode-agnostic.
type ModeRules struct {
	// MaxTradesPerDay is 0 for unlimited (classic/challenge/portfolio/
	// custom); 3 for daytrader per spec §4.3/§4.9.
	MaxTradesPerDay int
	// The trades-today counter is owned by the caller's
	// ModeState; Trader reads/increments it via the callbacks below
	// so the counter reset on day-rollover stays in ModeState, not here.
	TradesToday    func() int
	IncrementToday func()
}

// New creates a Trader bound to portfolio, using priceLookup to
// resolve execution prices.
func New(p *portfolio.Portfolio, priceLookup PriceLookup, commissionsOn bool) *Trader {
	return &Trader{Portfolio: p, Prices: priceLookup, CommissionsOn: commissionsOn}
}

func (t *Trader) commission(notional float64) float64 {
	if !t.CommissionsOn {
		return 0
	}
	return notional * commissionRate
}

func (t *Trader) checkDayTradeLimit() error {
	if t.ModeRules.MaxTradesPerDay <= 0 || t.ModeRules.TradesToday == nil {
		return nil
	}
	if t.ModeRules.TradesToday() >= t.ModeRules.MaxTradesPerDay {
		return apperr.ErrDayTradeLimitExceeded
	}
	return nil
}

func (t *Trader) countTrade() {
	if t.ModeRules.IncrementToday != nil {
		t.ModeRules.IncrementToday()
	}
}

// Buy executes a market buy of qty shares of symbol at the current
// price, per spec §4.3.
func (t *Trader) Buy(symbol string, qty int, simDay int) (portfolio.Trade, error) {
	if qty <= 0 {
		return portfolio.Trade{}, apperr.ErrInvalidQuantity
	}
	price, ok := t.Prices(symbol)
	if !ok {
		return portfolio.Trade{}, apperr.ErrSymbolUnknown
	}
	if err := t.checkDayTradeLimit(); err != nil {
		return portfolio.Trade{}, err
	}

	notional := price * float64(qty)
	fee := t.commission(notional)
	cost := notional + fee

	p := t.Portfolio
	p.Lock()
	defer p.Unlock()

	if _, hasShort := p.Shorts[symbol]; hasShort {
		return portfolio.Trade{}, apperr.ErrConflictingShortPosition
	}

	if !p.MarginEnabled {
		if cost > p.Cash {
			return portfolio.Trade{}, apperr.ErrInsufficientCash
		}
	} else {
		if cost > p.Cash*p.MarginMultiplier {
			return portfolio.Trade{}, apperr.ErrInsufficientCash
		}
	}

	p.Cash -= cost
	pos, exists := p.Positions[symbol]
	if !exists {
		pos = &portfolio.Position{}
		p.Positions[symbol] = pos
	}
	pos.Quantity += qty
	pos.TotalCostBasis += notional

	t.countTrade()

	return portfolio.Trade{
		ID:             NextTradeID(),
		Kind:           portfolio.Buy,
		Symbol:         symbol,
		Quantity:       qty,
		ExecutionPrice: price,
		Commission:     fee,
		WallTimestamp:  time.Now().UnixMilli(),
		SimTimestamp:   simDay,
	}, nil
}

// Sell executes a market sell of qty shares of symbol at the current
// price, using average-cost-basis accounting per spec §4.3.
func (t *Trader) Sell(symbol string, qty int, simDay int) (portfolio.Trade, error) {
	if qty <= 0 {
		return portfolio.Trade{}, apperr.ErrInvalidQuantity
	}
	price, ok := t.Prices(symbol)
	if !ok {
		return portfolio.Trade{}, apperr.ErrSymbolUnknown
	}
	if err := t.checkDayTradeLimit(); err != nil {
		return portfolio.Trade{}, err
	}

	p := t.Portfolio
	p.Lock()
	defer p.Unlock()

	pos, exists := p.Positions[symbol]
	if !exists || pos.Quantity < qty {
		return portfolio.Trade{}, apperr.ErrInsufficientShares
	}

	notional := price * float64(qty)
	fee := t.commission(notional)
	proceeds := notional - fee

	avgCost := pos.TotalCostBasis / float64(pos.Quantity)
	realized := proceeds - avgCost*float64(qty)

	pos.TotalCostBasis -= avgCost * float64(qty)
	pos.Quantity -= qty
	if pos.Quantity == 0 {
		delete(p.Positions, symbol)
	}

	p.Cash += proceeds
	p.RealizedGains += realized

	t.countTrade()

	return portfolio.Trade{
		ID:             NextTradeID(),
		Kind:           portfolio.Sell,
		Symbol:         symbol,
		Quantity:       qty,
		ExecutionPrice: price,
		Commission:     fee,
		RealizedGain:   realized,
		WallTimestamp:  time.Now().UnixMilli(),
		SimTimestamp:   simDay,
	}, nil
}

// OpenShort opens (or adds to) a short position in symbol, crediting
// cash by price × qty, per spec §4.3.
func (t *Trader) OpenShort(symbol string, qty int, simDay int) (portfolio.Trade, error) {
	if qty <= 0 {
		return portfolio.Trade{}, apperr.ErrInvalidQuantity
	}
	price, ok := t.Prices(symbol)
	if !ok {
		return portfolio.Trade{}, apperr.ErrSymbolUnknown
	}

	p := t.Portfolio
	p.Lock()
	defer p.Unlock()

	if _, hasLong := p.Positions[symbol]; hasLong {
		return portfolio.Trade{}, apperr.ErrConflictingLongPosition
	}

	notional := price * float64(qty)
	fee := t.commission(notional)

	sh, exists := p.Shorts[symbol]
	if !exists {
		sh = &portfolio.Short{}
		p.Shorts[symbol] = sh
	}
	// weighted-average entry price across repeated short opens
	totalNotionalBefore := sh.EntryPrice * float64(sh.Quantity)
	sh.Quantity += qty
	sh.EntryPrice = (totalNotionalBefore + notional) / float64(sh.Quantity)

	p.Cash += notional - fee

	return portfolio.Trade{
		ID:             NextTradeID(),
		Kind:           portfolio.ShortOpen,
		Symbol:         symbol,
		Quantity:       qty,
		ExecutionPrice: price,
		Commission:     fee,
		WallTimestamp:  time.Now().UnixMilli(),
		SimTimestamp:   simDay,
	}, nil
}

// CloseShort buys back qty shares of a short position in symbol,
// debiting cash by currentPrice × qty, per spec §4.3.
func (t *Trader) CloseShort(symbol string, qty int, simDay int) (portfolio.Trade, error) {
	if qty <= 0 {
		return portfolio.Trade{}, apperr.ErrInvalidQuantity
	}
	price, ok := t.Prices(symbol)
	if !ok {
		return portfolio.Trade{}, apperr.ErrSymbolUnknown
	}

	p := t.Portfolio
	p.Lock()
	defer p.Unlock()

	sh, exists := p.Shorts[symbol]
	if !exists {
		return portfolio.Trade{}, apperr.ErrNoShortPosition
	}
	if qty > sh.Quantity {
		return portfolio.Trade{}, apperr.ErrQuantityExceedsShort
	}

	notional := price * float64(qty)
	fee := t.commission(notional)
	// inverted-sign P&L: short profits when price falls below entry
	realized := (sh.EntryPrice-price)*float64(qty) - fee

	sh.Quantity -= qty
	if sh.Quantity == 0 {
		delete(p.Shorts, symbol)
	}

	p.Cash -= notional + fee
	p.RealizedGains += realized

	return portfolio.Trade{
		ID:             NextTradeID(),
		Kind:           portfolio.ShortClose,
		Symbol:         symbol,
		Quantity:       qty,
		ExecutionPrice: price,
		Commission:     fee,
		RealizedGain:   realized,
		WallTimestamp:  time.Now().UnixMilli(),
		SimTimestamp:   simDay,
	}, nil
}
