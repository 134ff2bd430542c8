// Package priceengine evolves instrument prices one simulated day at a
// time. The evolution rule is a single closed-form step (uniform noise
// + drift + momentum + rare jump/news-gap) rather than the teacher's
// GBM-plus-sector-shock model; the RNG and per-symbol state shape are
// carried over from the teacher's internal/engine package.
package priceengine

import (
	"sort"

	"github.com/marketsim/core/internal/catalog"
)

const historyCap = 1024

// PriceState is the minimal, serializable state needed to resume a
// symbol's evolution: current price and the previous delta for the
// momentum term. History is observational only (§4.1).
type PriceState struct {
	Price     float64
	PrevDelta float64
	History   []float64
}

// newPriceState seeds a PriceState at an instrument's base price.
func newPriceState(base float64) *PriceState {
	return &PriceState{Price: base, PrevDelta: 0, History: []float64{base}}
}

func (s *PriceState) appendHistory(p float64) {
	s.History = append(s.History, p)
	if len(s.History) > historyCap {
		s.History = s.History[len(s.History)-historyCap:]
	}
}

// Engine evolves every instrument's PriceState for one Session. It is
// not safe for concurrent use by itself — callers hold the Session
// mutex around Tick, per spec §5.
type Engine struct {
	rng     *RNG
	states  map[string]*PriceState
	catalog map[string]*catalog.Instrument
}

// New creates an Engine seeded at each instrument's base price.
func New(rng *RNG, instruments []catalog.Instrument) *Engine {
	e := &Engine{
		rng:     rng,
		states:  make(map[string]*PriceState, len(instruments)),
		catalog: make(map[string]*catalog.Instrument, len(instruments)),
	}
	for i := range instruments {
		ins := instruments[i]
		e.catalog[ins.Symbol] = &ins
		e.states[ins.Symbol] = newPriceState(ins.BasePrice)
	}
	return e
}

// Snapshot returns a copy of the current price for symbol, and
// whether the symbol exists.
func (e *Engine) Snapshot(symbol string) (PriceState, bool) {
	s, ok := e.states[symbol]
	if !ok {
		return PriceState{}, false
	}
	return *s, true
}

// AllPrices returns a copy of every symbol's current price, the
// teacher's AllPrices()/SetPrice() snapshot shape preserved
// per-Session rather than as a single global map.
func (e *Engine) AllPrices() map[string]float64 {
	out := make(map[string]float64, len(e.states))
	for sym, s := range e.states {
		out[sym] = s.Price
	}
	return out
}

// MarketDelta describes a single symbol's price movement on one tick,
// the unit the Broadcaster fans out to market_data subscribers.
type MarketDelta struct {
	Symbol   string
	OldPrice float64
	NewPrice float64
}

// Tick advances every symbol by ticks logical days (ticks >= 1),
// applying riskMultiplier and difficultyMultiplier to each symbol's
// base volatility per spec §4.1, and returns a MarketDelta for every
// symbol whose price changed.
func (e *Engine) Tick(ticks int, riskMultiplier, difficultyMultiplier float64) []MarketDelta {
	if ticks < 1 {
		ticks = 1
	}
	// Visit symbols in sorted order so the shared RNG's draws land on
	// the same symbols every run.
	syms := make([]string, 0, len(e.states))
	for sym := range e.states {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	deltas := make([]MarketDelta, 0, len(e.states))
	for _, sym := range syms {
		state := e.states[sym]
		ins := e.catalog[sym]
		old := state.Price
		for n := 0; n < ticks; n++ {
			e.step(state, ins, riskMultiplier, difficultyMultiplier)
		}
		if state.Price != old {
			deltas = append(deltas, MarketDelta{Symbol: sym, OldPrice: old, NewPrice: state.Price})
		}
	}
	return deltas
}

// step applies one logical day's evolution rule (spec §4.1) to state.
func (e *Engine) step(state *PriceState, ins *catalog.Instrument, riskMultiplier, difficultyMultiplier float64) {
	p := state.Price
	dPrev := state.PrevDelta

	var typeVol float64
	if ins.Type == catalog.TypeBond {
		typeVol = 0.002
	} else {
		typeVol = ins.BaseVolatility * riskMultiplier * difficultyMultiplier
	}

	random := e.rng.Uniform(-0.5, 0.5) * typeVol * p
	drift := 0.00005 * p
	momentum := 0.3 * dPrev

	jump := 1.0
	roll := e.rng.Float64()
	switch {
	case roll < 0.005:
		jump = 1 + e.rng.Uniform(-0.2, 0.2)
	case roll < 0.005+0.02:
		jump = 1 + e.rng.Uniform(-0.05, 0.05)
	}

	pNew := p*jump + random + drift + momentum
	if pNew < 0.01 {
		pNew = 0.01
	}

	state.PrevDelta = pNew - p
	state.Price = pNew
	state.appendHistory(pNew)
}

// EngineState is the persistable shape of an Engine: the RNG's
// internal state plus every symbol's PriceState.
type EngineState struct {
	RNGState uint64
	RNGInc   uint64
	Prices   map[string]PriceState
}

// SnapshotAll captures the Engine's full state for save/restore.
func (e *Engine) SnapshotAll() EngineState {
	st, inc := e.rng.State()
	prices := make(map[string]PriceState, len(e.states))
	for sym, s := range e.states {
		cp := *s
		cp.History = append([]float64(nil), s.History...)
		prices[sym] = cp
	}
	return EngineState{RNGState: st, RNGInc: inc, Prices: prices}
}

// Restore rebuilds an Engine from a previously captured EngineState.
func Restore(s EngineState, instruments []catalog.Instrument) *Engine {
	rng := NewRNG(1)
	rng.RestoreState(s.RNGState, s.RNGInc)

	e := &Engine{
		rng:     rng,
		states:  make(map[string]*PriceState, len(instruments)),
		catalog: make(map[string]*catalog.Instrument, len(instruments)),
	}
	for i := range instruments {
		ins := instruments[i]
		e.catalog[ins.Symbol] = &ins
		if saved, ok := s.Prices[ins.Symbol]; ok {
			cp := saved
			cp.History = append([]float64(nil), saved.History...)
			e.states[ins.Symbol] = &cp
		} else {
			e.states[ins.Symbol] = newPriceState(ins.BasePrice)
		}
	}
	return e
}
