// Package savestore implements the SaveStore component (spec §4.7):
// opaque-code → snapshot documents with named preset slots. The
// Snapshot type is the closed schema spec §6 names — a structured
// document, not the source's free-form gameState object. Loading does
// not check for fields outside that schema; no code path rejects them.
package savestore

import "time"

// StockSnapshot is one instrument's persisted price state: current
// price and the previous delta carried for the momentum term. History
// is stored separately in PriceHistory, per spec §4.7.
type StockSnapshot struct {
	Price     float64 `json:"price"`
	PrevDelta float64 `json:"prevDelta"`
}

// PositionSnapshot is a persisted long holding.
type PositionSnapshot struct {
	Quantity       int     `json:"quantity"`
	TotalCostBasis float64 `json:"totalCostBasis"`
}

// ShortSnapshot is a persisted short holding.
type ShortSnapshot struct {
	Quantity   int     `json:"quantity"`
	EntryPrice float64 `json:"entryPrice"`
}

// PortfolioSnapshot is the persisted Portfolio, including shorts, per
// spec §4.7.
type PortfolioSnapshot struct {
	Cash          float64                     `json:"cash"`
	Positions     map[string]PositionSnapshot `json:"positions"`
	Shorts        map[string]ShortSnapshot    `json:"shorts"`
	RealizedGains float64                     `json:"realizedGains"`
}

// TradeSnapshot is one persisted Trade record.
type TradeSnapshot struct {
	ID             uint64  `json:"id"`
	Kind           string  `json:"kind"`
	Symbol         string  `json:"symbol"`
	Quantity       int     `json:"quantity"`
	ExecutionPrice float64 `json:"executionPrice"`
	Commission     float64 `json:"commission"`
	RealizedGain   float64 `json:"realizedGain"`
	WallTimestamp  int64   `json:"wallTimestamp"`
	SimTimestamp   int     `json:"simTimestamp"`
}

// ModeStateSnapshot is the persisted tagged-union ModeState — every
// field is present in the schema, but only the subset relevant to
// ConfigSnapshot.Mode is meaningful, per spec §3.
type ModeStateSnapshot struct {
	TradesToday      int                `json:"tradesToday"`
	CurrentSimDay    int                `json:"currentSimDay"`
	DailyTarget      float64            `json:"dailyTarget"`
	DaysCompleted    int                `json:"daysCompleted"`
	StreakDays       int                `json:"streakDays"`
	TargetAllocation map[string]float64 `json:"targetAllocation,omitempty"`
	StartDay         int                `json:"startDay"`
	WeeksBudget      int                `json:"weeksBudget"`
}

// ConfigSnapshot is the persisted Config.
type ConfigSnapshot struct {
	StartingCapital  float64 `json:"startingCapital"`
	RiskLevel        string  `json:"riskLevel"`
	Difficulty       string  `json:"difficulty"`
	Mode             string  `json:"mode"`
	Weeks            int     `json:"weeks"`
	ShowDayCounter   bool    `json:"showDayCounter"`
	MarginEnabled    bool    `json:"marginEnabled"`
	MarginMultiplier float64 `json:"marginMultiplier"`
}

// DailyStatsSnapshot is a small supplemental record of per-day
// portfolio value, not named in spec §3's data model but present in
// spec §6's snapshot schema key list — useful for a UI performance
// chart, harmless to round-trip.
type DailyStatsSnapshot struct {
	Day            int     `json:"day"`
	PortfolioValue float64 `json:"portfolioValue"`
}

// EngineStateSnapshot carries the PriceEngine's PRNG cursor, so a
// restored Session resumes its exact random-walk sequence.
type EngineStateSnapshot struct {
	RNGState uint64 `json:"rngState"`
	RNGInc   uint64 `json:"rngInc"`
}

// SimulatorSnapshot is the nested "simulator" document spec §6 names:
// {config, portfolio, stocks, priceHistory, simulatedTime, trades,
// modeState, startTime, initialCapital, dailyStats}.
type SimulatorSnapshot struct {
	Config         ConfigSnapshot            `json:"config"`
	Portfolio      PortfolioSnapshot         `json:"portfolio"`
	Stocks         map[string]StockSnapshot  `json:"stocks"`
	PriceHistory   map[string][]float64      `json:"priceHistory"`
	SimulatedTime  time.Time                 `json:"simulatedTime"`
	Day            int                       `json:"day"`
	Trades         []TradeSnapshot           `json:"trades"`
	ModeState      ModeStateSnapshot         `json:"modeState"`
	StartTime      time.Time                 `json:"startTime"`
	InitialCapital float64                   `json:"initialCapital"`
	DailyStats     []DailyStatsSnapshot      `json:"dailyStats,omitempty"`
	Engine         EngineStateSnapshot       `json:"engine"`
	Speed          float64                   `json:"speed"`
	TradeIDCounter uint64                    `json:"tradeIdCounter"`
}

// Snapshot is the top-level save document, per spec §6: "a JSON
// document with top-level keys {config, simulator: {...}}".
type Snapshot struct {
	Config    ConfigSnapshot    `json:"config"`
	Simulator SimulatorSnapshot `json:"simulator"`
}
