package session

import "github.com/marketsim/core/internal/catalog"

// RiskLevel scales instrument volatility, per spec §3.
type RiskLevel string

const (
	RiskConservative RiskLevel = "conservative"
	RiskModerate     RiskLevel = "moderate"
	RiskAggressive   RiskLevel = "aggressive"
)

// Multiplier returns the risk level's volatility multiplier.
func (r RiskLevel) Multiplier() float64 {
	switch r {
	case RiskConservative:
		return 0.5
	case RiskAggressive:
		return 1.8
	default:
		return 1.0
	}
}

// Difficulty scales instrument volatility alongside RiskLevel.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Multiplier returns the difficulty's volatility multiplier.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case DifficultyEasy:
		return 0.6
	case DifficultyHard:
		return 1.3
	default:
		return 1.0
	}
}

// Mode selects the ruleset variant a Session plays under, per spec §3/§4.9.
type Mode string

const (
	ModeClassic   Mode = "classic"
	ModeChallenge Mode = "challenge"
	ModeDaytrader Mode = "daytrader"
	ModePortfolio Mode = "portfolio"
	ModeCustom    Mode = "custom"
)

// maxStartingCapital is the clamp spec §3/§8 requires.
const maxStartingCapital = 1_000_000.0

// Config is a Session's immutable-after-creation ruleset, per spec §3.
type Config struct {
	StartingCapital float64
	RiskLevel       RiskLevel
	Difficulty      Difficulty
	Mode            Mode
	Weeks           int
	ShowDayCounter  bool

	// MarginEnabled/MarginMultiplier configure the short/margin
	// extension (spec §4.3): when enabled, a buy's admission threshold
	// relaxes from cost ≤ cash to cost ≤ cash × MarginMultiplier.
	MarginEnabled    bool
	MarginMultiplier float64
}

// Normalize clamps/forces fields per spec §3/§4.9: starting capital is
// capped at 1,000,000, and custom mode overrides risk/difficulty/
// capital to its fixed preset regardless of what was requested.
func (c Config) Normalize() Config {
	if c.StartingCapital > maxStartingCapital {
		c.StartingCapital = maxStartingCapital
	}
	if c.StartingCapital <= 0 {
		c.StartingCapital = 25_000
	}
	if c.Mode == ModeCustom {
		c.StartingCapital = 10_000
		c.RiskLevel = RiskModerate
		c.Difficulty = DifficultyMedium
		if c.Weeks <= 0 {
			c.Weeks = 1
		}
	}
	if c.MarginEnabled {
		if c.MarginMultiplier <= 1.0 {
			c.MarginMultiplier = 2.0
		}
	} else {
		c.MarginMultiplier = 1.0
	}
	return c
}

// ModeState is the tagged-variant bag of mode-specific mutable state
// spec §3 names. Exactly one group of fields is meaningful, selected
// by the owning Session's Config.Mode — the same "tagged variant,
// dispatch on the tag" shape the teacher's StressController.updatePhase
// uses for its phase switch (REDESIGN FLAG §9).
type ModeState struct {
	// daytrader
	TradesToday   int
	CurrentSimDay int

	// challenge
	DailyTarget  float64
	DaysCompleted int
	StreakDays    int

	// portfolio
	TargetAllocation map[catalog.InstrumentType]float64

	// custom
	StartDay    int
	WeeksBudget int
}

// MaxTradesPerDay is the day-trader cap, per spec §3/§4.3.
const MaxTradesPerDay = 3

// NewModeState builds the ModeState variant appropriate for mode.
func NewModeState(cfg Config) ModeState {
	ms := ModeState{}
	switch cfg.Mode {
	case ModeChallenge:
		ms.DailyTarget = cfg.StartingCapital * 0.05
	case ModePortfolio:
		ms.TargetAllocation = map[catalog.InstrumentType]float64{
			catalog.TypeGrowth:   0.40,
			catalog.TypeDividend: 0.25,
			catalog.TypeETF:      0.25,
			catalog.TypeBond:     0.10,
		}
	case ModeCustom:
		ms.WeeksBudget = cfg.Weeks
	}
	return ms
}

// OnDayRollover applies the per-mode day-boundary transition, per spec
// §4.9: daytrader resets its counter, challenge scores the day against
// its target. classic/portfolio/custom are pure observation here.
func (ms *ModeState) OnDayRollover(mode Mode, newDay int, portfolioValue, initialCapital float64) {
	switch mode {
	case ModeDaytrader:
		ms.CurrentSimDay = newDay
		ms.TradesToday = 0
	case ModeChallenge:
		if portfolioValue-initialCapital >= ms.DailyTarget {
			ms.DaysCompleted++
			ms.StreakDays++
		} else {
			ms.StreakDays = 0
		}
	}
}

// DayTradeLimit returns the mode's MaxTradesPerDay (0 = unlimited).
func DayTradeLimit(mode Mode) int {
	if mode == ModeDaytrader {
		return MaxTradesPerDay
	}
	return 0
}

// AllocationView is the current-vs-target comparison portfolio mode
// reports on request, per spec §4.9 ("does not constrain trading").
type AllocationView struct {
	Current map[catalog.InstrumentType]float64
	Target  map[catalog.InstrumentType]float64
}
