// Package catalog holds the static instrument universe every Session
// trades against. Instruments are immutable once loaded.
package catalog

import "fmt"

// InstrumentType classifies an instrument for volatility and
// portfolio-allocation purposes.
type InstrumentType string

const (
	TypeGrowth   InstrumentType = "growth"
	TypeDividend InstrumentType = "dividend"
	TypeETF      InstrumentType = "etf"
	TypeBond     InstrumentType = "bond"
)

// Instrument is a single tradable symbol definition.
type Instrument struct {
	Symbol         string
	DisplayName    string
	Type           InstrumentType
	BasePrice      float64
	BaseVolatility float64
}

// seed holds the hand-curated flagship instruments, in the spirit of a
// hand-picked symbol list — the remainder of the 135-instrument universe
// is filled out by generate() below.
var seed = []Instrument{
	// Growth — high volatility, no dividend
	{"NEXO", "Nexo Dynamics Inc", TypeGrowth, 185.00, 0.032},
	{"QBIT", "Qbit Quantum Corp", TypeGrowth, 92.50, 0.041},
	{"FLUX", "Flux Systems Ltd", TypeGrowth, 310.00, 0.028},
	{"SYNK", "Synk Networks Inc", TypeGrowth, 67.25, 0.037},
	{"CYRA", "Cyra Robotics Inc", TypeGrowth, 220.00, 0.045},
	{"HLIX", "Helix Biomedical Inc", TypeGrowth, 195.00, 0.030},
	{"ORBT", "Orbital Launch Corp", TypeGrowth, 58.00, 0.050},
	{"VRTX", "Vertex AI Labs", TypeGrowth, 410.00, 0.048},

	// Dividend — low-mid volatility, steady payers
	{"LEDG", "Ledger Capital Group", TypeDividend, 78.50, 0.011},
	{"VALT", "Vault Securities Inc", TypeDividend, 125.00, 0.009},
	{"MNTX", "Mintex Banking Corp", TypeDividend, 165.00, 0.008},
	{"FNDX", "Fundex Asset Mgmt", TypeDividend, 88.75, 0.010},
	{"BRND", "Brand Global Inc", TypeDividend, 112.00, 0.012},
	{"WATT", "Watt Grid Systems", TypeDividend, 63.00, 0.013},

	// ETF — broad baskets, lowest volatility
	{"MKTS", "Markets Broad ETF", TypeETF, 350.00, 0.006},
	{"GRWT", "Growth Select ETF", TypeETF, 180.00, 0.009},
	{"DIVY", "Dividend Income ETF", TypeETF, 95.00, 0.005},
	{"GLBL", "Global Equity ETF", TypeETF, 210.00, 0.007},

	// Bond — fixed-income proxies, baseVolatility is unused (tick rule
	// hardcodes bond volatility, see priceengine)
	{"TBND", "Treasury Bond Fund", TypeBond, 101.50, 0.002},
	{"CBND", "Corporate Bond Fund", TypeBond, 98.75, 0.002},
	{"MBND", "Municipal Bond Fund", TypeBond, 104.25, 0.002},
}

// AllInstruments returns the full 135-instrument universe: the
// hand-curated seed above, topped up to the target distribution by
// generate().
func AllInstruments() []Instrument {
	out := make([]Instrument, 0, 135)
	out = append(out, seed...)
	out = append(out, generate(TypeGrowth, 60, 20.0, 400.0, 0.020, 0.050)...)
	out = append(out, generate(TypeDividend, 35, 25.0, 250.0, 0.006, 0.016)...)
	out = append(out, generate(TypeETF, 25, 50.0, 450.0, 0.004, 0.010)...)
	out = append(out, generate(TypeBond, 15, 90.0, 110.0, 0.002, 0.002)...)
	return out[:135]
}

// generate deterministically fills out the remainder of a type's quota
// with plausible synthetic tickers/prices, so the catalog reaches its
// target size without hand-listing hundreds of literals.
func generate(t InstrumentType, total int, minPrice, maxPrice, minVol, maxVol float64) []Instrument {
	already := 0
	for _, s := range seed {
		if s.Type == t {
			already++
		}
	}
	need := total - already
	if need <= 0 {
		return nil
	}

	prefix := map[InstrumentType]string{
		TypeGrowth:   "G",
		TypeDividend: "D",
		TypeETF:      "E",
		TypeBond:     "B",
	}[t]

	out := make([]Instrument, 0, need)
	for i := 1; i <= need; i++ {
		frac := float64(i-1) / float64(maxInt(need-1, 1))
		price := minPrice + frac*(maxPrice-minPrice)
		vol := minVol + frac*(maxVol-minVol)
		out = append(out, Instrument{
			Symbol:         fmt.Sprintf("%s%03d", prefix, i),
			DisplayName:    fmt.Sprintf("%s Series %03d", typeLabel(t), i),
			Type:           t,
			BasePrice:      round2(price),
			BaseVolatility: vol,
		})
	}
	return out
}

func typeLabel(t InstrumentType) string {
	switch t {
	case TypeGrowth:
		return "Growth"
	case TypeDividend:
		return "Dividend"
	case TypeETF:
		return "Index"
	case TypeBond:
		return "Bond"
	default:
		return "Instrument"
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ByTicker returns a map from symbol to instrument for quick lookups.
func ByTicker() map[string]*Instrument {
	all := AllInstruments()
	m := make(map[string]*Instrument, len(all))
	for i := range all {
		m[all[i].Symbol] = &all[i]
	}
	return m
}

// ByType groups instruments by their InstrumentType.
func ByType() map[InstrumentType][]Instrument {
	all := AllInstruments()
	m := make(map[InstrumentType][]Instrument)
	for _, ins := range all {
		m[ins.Type] = append(m[ins.Type], ins)
	}
	return m
}
