package catalog

import (
	"fmt"
	"strings"
)

// Section identifies the dashboard group an instrument belongs to.
type Section string

const (
	SectionEquities    Section = "equities"
	SectionETFs        Section = "etfs"
	SectionFutures     Section = "futures"
	SectionCommodities Section = "commodities"
	SectionCrypto      Section = "crypto"
)

// Sections returns every section in canonical dashboard order.
func Sections() []Section {
	return []Section{
		SectionEquities,
		SectionETFs,
		SectionFutures,
		SectionCommodities,
		SectionCrypto,
	}
}

// Valid reports whether the section is one of the known dashboard groups.
func (s Section) Valid() bool {
	switch s {
	case SectionEquities, SectionETFs, SectionFutures, SectionCommodities, SectionCrypto:
		return true
	}
	return false
}

// Title returns the human-facing section heading.
func (s Section) Title() string {
	switch s {
	case SectionEquities:
		return "Equities"
	case SectionETFs:
		return "ETFs"
	case SectionFutures:
		return "Futures"
	case SectionCommodities:
		return "Commodities"
	case SectionCrypto:
		return "Crypto"
	}
	return string(s)
}

// ParseSection maps a config string onto a known section.
func ParseSection(raw string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("catalog: unknown section %q", raw)
	}
	return s, nil
}

// Display unit hints carried alongside each instrument. The pipeline stores
// prices as plain numbers; units only affect human-facing rendering.
const (
	UnitPrice   = "price"
	UnitIndex   = "index"
	UnitPercent = "percent"
)

// TickerSpec describes one instrument in the fetch universe.
type TickerSpec struct {
	// Symbol is the provider identifier, e.g. "GC=F" or "BTC-USD".
	Symbol string
	// Label is the human-readable name shown on the dashboard.
	Label string
	// Section is the dashboard group the instrument renders under.
	Section Section
	// Unit hints how the value should be formatted (price, index, percent).
	Unit string
}

// Catalog is an ordered, validated instrument universe. The order of entries
// fixes the order of quotes within each snapshot section.
type Catalog struct {
	specs []TickerSpec
}

// New validates the given specs and builds a catalog from them. Any invalid
// entry is fatal: a run must never start against a partial universe.
func New(specs []TickerSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("catalog: no tickers configured")
	}

	seen := make(map[string]struct{}, len(specs))
	out := make([]TickerSpec, 0, len(specs))
	for i, spec := range specs {
		spec.Symbol = strings.TrimSpace(spec.Symbol)
		if spec.Symbol == "" {
			return nil, fmt.Errorf("catalog: entry %d has empty symbol", i)
		}
		if _, dup := seen[spec.Symbol]; dup {
			return nil, fmt.Errorf("catalog: duplicate symbol %q", spec.Symbol)
		}
		seen[spec.Symbol] = struct{}{}

		if !spec.Section.Valid() {
			return nil, fmt.Errorf("catalog: entry %q has unknown section %q", spec.Symbol, spec.Section)
		}
		if strings.TrimSpace(spec.Label) == "" {
			spec.Label = spec.Symbol
		}
		switch spec.Unit {
		case "":
			spec.Unit = UnitPrice
		case UnitPrice, UnitIndex, UnitPercent:
		default:
			return nil, fmt.Errorf("catalog: entry %q has unknown unit %q", spec.Symbol, spec.Unit)
		}
		out = append(out, spec)
	}

	return &Catalog{specs: out}, nil
}

// Default returns the built-in instrument universe used when the config file
// does not override the ticker list.
func Default() *Catalog {
	cat, err := New(defaultSpecs())
	if err != nil {
		// The built-in list is validated by tests; reaching this is a bug.
		panic(err)
	}
	return cat
}

// List returns the catalog entries in declaration order.
func (c *Catalog) List() []TickerSpec {
	out := make([]TickerSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

// Len returns the number of instruments in the catalog.
func (c *Catalog) Len() int {
	return len(c.specs)
}

// Lookup returns the TickerSpec for a symbol, if present.
func (c *Catalog) Lookup(symbol string) (TickerSpec, bool) {
	for _, spec := range c.specs {
		if spec.Symbol == symbol {
			return spec, true
		}
	}
	return TickerSpec{}, false
}

func defaultSpecs() []TickerSpec {
	return []TickerSpec{
		{Symbol: "AAPL", Label: "Apple", Section: SectionEquities},
		{Symbol: "MSFT", Label: "Microsoft", Section: SectionEquities},
		{Symbol: "NVDA", Label: "NVIDIA", Section: SectionEquities},
		{Symbol: "^N225", Label: "Nikkei 225", Section: SectionEquities, Unit: UnitIndex},
		{Symbol: "^FTSE", Label: "FTSE 100", Section: SectionEquities, Unit: UnitIndex},
		{Symbol: "^GDAXI", Label: "DAX", Section: SectionEquities, Unit: UnitIndex},
		{Symbol: "^VIX", Label: "CBOE Volatility Index", Section: SectionEquities, Unit: UnitIndex},
		{Symbol: "^TNX", Label: "US 10Y Treasury Yield", Section: SectionEquities, Unit: UnitPercent},

		{Symbol: "SPY", Label: "SPDR S&P 500", Section: SectionETFs},
		{Symbol: "QQQ", Label: "Invesco QQQ (Nasdaq 100)", Section: SectionETFs},
		{Symbol: "DIA", Label: "SPDR Dow Jones Industrial", Section: SectionETFs},
		{Symbol: "IWM", Label: "iShares Russell 2000", Section: SectionETFs},
		{Symbol: "XLK", Label: "Technology Select Sector", Section: SectionETFs},
		{Symbol: "XLE", Label: "Energy Select Sector", Section: SectionETFs},
		{Symbol: "XLF", Label: "Financial Select Sector", Section: SectionETFs},

		{Symbol: "ES=F", Label: "E-mini S&P 500", Section: SectionFutures},
		{Symbol: "NQ=F", Label: "E-mini Nasdaq 100", Section: SectionFutures},
		{Symbol: "YM=F", Label: "E-mini Dow", Section: SectionFutures},
		{Symbol: "RTY=F", Label: "E-mini Russell 2000", Section: SectionFutures},

		{Symbol: "GC=F", Label: "Gold", Section: SectionCommodities},
		{Symbol: "SI=F", Label: "Silver", Section: SectionCommodities},
		{Symbol: "HG=F", Label: "Copper", Section: SectionCommodities},
		{Symbol: "CL=F", Label: "WTI Crude Oil", Section: SectionCommodities},
		{Symbol: "NG=F", Label: "Natural Gas", Section: SectionCommodities},

		{Symbol: "BTC-USD", Label: "Bitcoin", Section: SectionCrypto},
		{Symbol: "ETH-USD", Label: "Ethereum", Section: SectionCrypto},
		{Symbol: "SOL-USD", Label: "Solana", Section: SectionCrypto},
		{Symbol: "XRP-USD", Label: "XRP", Section: SectionCrypto},
	}
}
