package api

import (
	"math"
	"net/http"

	"github.com/marketsim/core/internal/apperr"
)

type marketSnapshot struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// handleMarketData returns one symbol's snapshot, or every symbol's,
// per spec §6 (GET /market/data[?symbol=S]). Because prices are
// per-Session (spec §3: "priceStates map symbol→PriceState" lives on
// the Session, not globally), this reads from the caller's primary
// session if one exists, falling back to the catalog's base prices
// for an authenticated caller with no primary session (bots included,
// since their sessions are never primary) — the same fallback
// shape the teacher's /api/symbols endpoint uses when no live feed
// state exists yet for a ticker.
func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	symbol := r.URL.Query().Get("symbol")

	prices := s.basePrices()
	if sess, ok := s.Registry.PrimaryFor(id.UserID); ok {
		prices = sess.Engine.AllPrices()
	}

	if symbol != "" {
		price, ok := prices[symbol]
		if !ok {
			writeErr(w, apperr.New(apperr.NotFound, "unknown symbol %q", symbol))
			return
		}
		writeJSON(w, http.StatusOK, marketSnapshot{Symbol: symbol, Price: price})
		return
	}

	out := make([]marketSnapshot, 0, len(prices))
	for sym, p := range prices {
		out = append(out, marketSnapshot{Symbol: sym, Price: p})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) basePrices() map[string]float64 {
	out := make(map[string]float64, len(s.Instruments))
	for _, ins := range s.Instruments {
		out[ins.Symbol] = ins.BasePrice
	}
	return out
}

type portfolioResponse struct {
	Cash          float64                 `json:"cash"`
	Positions     map[string]positionView `json:"positions"`
	Shorts        map[string]shortView    `json:"shorts"`
	RealizedGains float64                 `json:"realizedGains"`
	TotalValue    float64                 `json:"totalValue"`
	// MarginLevel is omitted when no margin is in use (mathematically
	// +Inf, which encoding/json cannot represent).
	MarginLevel    *float64 `json:"marginLevel,omitempty"`
	MarginCallFlag bool     `json:"marginCallFlag"`
}

type positionView struct {
	Quantity       int     `json:"quantity"`
	TotalCostBasis float64 `json:"totalCostBasis"`
}

type shortView struct {
	Quantity   int     `json:"quantity"`
	EntryPrice float64 `json:"entryPrice"`
}

// handlePortfolio returns a bot's cash, positions, shorts, realized
// gains, total value and margin view, per spec §6
// (GET /portfolio?bot_id=B). The response has no separate unrealized
// P&L field; /bot/{id}/stats reports it. bot_id is the sessionId returned
// from /bot/register, the same id /bot/order and /bot/{id}/stats key
// on — bot-owned sessions aren't tracked in the registry's per-user
// "primary session" map, so Get is the only lookup that resolves them.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r.URL.Query().Get("bot_id"))
	if sess == nil {
		return
	}

	snap, total := sess.PortfolioDetails()
	marginLevel, marginCall := sess.MarginView()

	positions := make(map[string]positionView, len(snap.Positions))
	for sym, p := range snap.Positions {
		positions[sym] = positionView{Quantity: p.Quantity, TotalCostBasis: p.TotalCostBasis}
	}
	shorts := make(map[string]shortView, len(snap.Shorts))
	for sym, sh := range snap.Shorts {
		shorts[sym] = shortView{Quantity: sh.Quantity, EntryPrice: sh.EntryPrice}
	}

	var marginLevelOut *float64
	if !math.IsInf(marginLevel, 1) {
		marginLevelOut = &marginLevel
	}

	writeJSON(w, http.StatusOK, portfolioResponse{
		Cash:           snap.Cash,
		Positions:      positions,
		Shorts:         shorts,
		RealizedGains:  snap.RealizedGains,
		TotalValue:     total,
		MarginLevel:    marginLevelOut,
		MarginCallFlag: marginCall,
	})
}
