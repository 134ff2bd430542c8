package catalog

import "testing"

func TestAllInstrumentsCount(t *testing.T) {
	all := AllInstruments()
	if len(all) != 135 {
		t.Fatalf("AllInstruments returned %d instruments, want 135", len(all))
	}
}

func TestAllInstrumentsPositivePrice(t *testing.T) {
	for _, ins := range AllInstruments() {
		if ins.BasePrice <= 0 {
			t.Errorf("%s: base price %f is not positive", ins.Symbol, ins.BasePrice)
		}
		if ins.BaseVolatility <= 0 {
			t.Errorf("%s: base volatility %f is not positive", ins.Symbol, ins.BaseVolatility)
		}
	}
}

func TestAllInstrumentsUniqueSymbols(t *testing.T) {
	seen := make(map[string]bool)
	for _, ins := range AllInstruments() {
		if seen[ins.Symbol] {
			t.Fatalf("duplicate symbol %s", ins.Symbol)
		}
		seen[ins.Symbol] = true
	}
}

func TestByTickerLookup(t *testing.T) {
	m := ByTicker()
	nexo, ok := m["NEXO"]
	if !ok {
		t.Fatal("expected NEXO in catalog")
	}
	if nexo.Type != TypeGrowth {
		t.Fatalf("NEXO type = %s, want growth", nexo.Type)
	}
}

func TestByTypeDistribution(t *testing.T) {
	byType := ByType()
	if len(byType[TypeGrowth]) != 60 {
		t.Errorf("growth count = %d, want 60", len(byType[TypeGrowth]))
	}
	if len(byType[TypeBond]) != 15 {
		t.Errorf("bond count = %d, want 15", len(byType[TypeBond]))
	}
}
