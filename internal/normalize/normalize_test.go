package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"market-snapshot/internal/catalog"
	"market-snapshot/internal/fetcher"
	"market-snapshot/internal/snapshot"
)

var testNow = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

func newTestNormalizer(threshold time.Duration) *Normalizer {
	n := New(Options{FreshnessThreshold: threshold}, zerolog.Nop())
	n.now = func() time.Time { return testNow }
	return n
}

func floatPtr(v float64) *float64 { return &v }

func specFor(symbol string) catalog.TickerSpec {
	return catalog.TickerSpec{Symbol: symbol, Label: symbol, Section: catalog.SectionEquities}
}

func TestNormalizeComputesChange(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	raw := fetcher.RawQuote{
		Symbol:        "AAPL",
		LastPrice:     floatPtr(150.0),
		PreviousClose: floatPtr(148.5),
		MarketTime:    testNow.Add(-3 * time.Hour).Unix(),
	}

	quote := n.Normalize(specFor("AAPL"), raw, nil)

	if quote.Status != snapshot.StatusOK {
		t.Fatalf("expected status ok, got %q", quote.Status)
	}
	if quote.LastPrice == nil || *quote.LastPrice != 150.0 {
		t.Fatalf("unexpected last price: %v", quote.LastPrice)
	}
	if quote.Change == nil || *quote.Change != 1.5 {
		t.Fatalf("unexpected change: %v", quote.Change)
	}
	if quote.ChangePercent == nil || *quote.ChangePercent != 1.01 {
		t.Fatalf("expected change percent 1.01, got %v", quote.ChangePercent)
	}
	if quote.AsOf == nil || !quote.AsOf.Equal(testNow.Add(-3*time.Hour)) {
		t.Fatalf("unexpected asOf: %v", quote.AsOf)
	}
}

func TestNormalizeFetchErrorYieldsMissing(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)

	quote := n.Normalize(specFor("XYZ123"), fetcher.RawQuote{}, errors.New("timeout"))

	if quote.Status != snapshot.StatusMissing {
		t.Fatalf("expected status missing, got %q", quote.Status)
	}
	if quote.LastPrice != nil || quote.Change != nil || quote.ChangePercent != nil || quote.AsOf != nil {
		t.Fatal("expected every price-derived field to be null")
	}
	if quote.Symbol != "XYZ123" || quote.Label != "XYZ123" {
		t.Fatalf("identity fields must survive a failed fetch, got %+v", quote)
	}
}

func TestNormalizeNoUsablePriceYieldsMissing(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	raw := fetcher.RawQuote{
		Symbol: "NG=F",
		Closes: []*float64{nil, nil},
	}

	quote := n.Normalize(specFor("NG=F"), raw, nil)
	if quote.Status != snapshot.StatusMissing {
		t.Fatalf("expected status missing, got %q", quote.Status)
	}
	if quote.LastPrice != nil {
		t.Fatalf("expected null last price, got %v", quote.LastPrice)
	}
}

func TestNormalizeFallsBackToBars(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	barTime := testNow.Add(-6 * time.Hour).Unix()
	raw := fetcher.RawQuote{
		Symbol:     "^FTSE",
		Timestamps: []int64{barTime - 86400, barTime},
		Closes:     []*float64{floatPtr(8000.0), floatPtr(8080.0)},
	}

	quote := n.Normalize(specFor("^FTSE"), raw, nil)

	if quote.LastPrice == nil || *quote.LastPrice != 8080.0 {
		t.Fatalf("expected price from latest bar, got %v", quote.LastPrice)
	}
	if quote.Change == nil || *quote.Change != 80.0 {
		t.Fatalf("expected change from prior bar, got %v", quote.Change)
	}
	if quote.ChangePercent == nil || *quote.ChangePercent != 1.0 {
		t.Fatalf("unexpected change percent: %v", quote.ChangePercent)
	}
	if quote.AsOf == nil || quote.AsOf.Unix() != barTime {
		t.Fatalf("expected asOf from latest bar, got %v", quote.AsOf)
	}
	if quote.Status != snapshot.StatusOK {
		t.Fatalf("expected status ok, got %q", quote.Status)
	}
}

func TestNormalizeSingleBarUsesWindowClose(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	barTime := testNow.Add(-2 * time.Hour).Unix()
	raw := fetcher.RawQuote{
		Symbol:             "BTC-USD",
		ChartPreviousClose: floatPtr(60000.0),
		Timestamps:         []int64{barTime},
		Closes:             []*float64{floatPtr(61500.0)},
	}

	quote := n.Normalize(specFor("BTC-USD"), raw, nil)

	if quote.Change == nil || *quote.Change != 1500.0 {
		t.Fatalf("expected change against pre-window close, got %v", quote.Change)
	}
	if quote.ChangePercent == nil || *quote.ChangePercent != 2.5 {
		t.Fatalf("unexpected change percent: %v", quote.ChangePercent)
	}
}

func TestNormalizeZeroPreviousCloseLeavesPercentNull(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	raw := fetcher.RawQuote{
		Symbol:        "^TNX",
		LastPrice:     floatPtr(4.3),
		PreviousClose: floatPtr(0.0),
		MarketTime:    testNow.Add(-1 * time.Hour).Unix(),
	}

	quote := n.Normalize(specFor("^TNX"), raw, nil)

	if quote.Change == nil || *quote.Change != 4.3 {
		t.Fatalf("unexpected change: %v", quote.Change)
	}
	if quote.ChangePercent != nil {
		t.Fatalf("expected null change percent for zero previous close, got %v", *quote.ChangePercent)
	}
	if quote.Status != snapshot.StatusOK {
		t.Fatalf("expected status ok, got %q", quote.Status)
	}
}

func TestNormalizeNoPreviousCloseLeavesChangeNull(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	raw := fetcher.RawQuote{
		Symbol:     "SOL-USD",
		LastPrice:  floatPtr(150.0),
		MarketTime: testNow.Add(-1 * time.Hour).Unix(),
	}

	quote := n.Normalize(specFor("SOL-USD"), raw, nil)

	if quote.Change != nil || quote.ChangePercent != nil {
		t.Fatal("expected null change fields without any previous close")
	}
	if quote.Status != snapshot.StatusOK {
		t.Fatalf("a quote with price and fresh asOf stays ok, got %q", quote.Status)
	}
}

func TestNormalizeNegativePreviousClose(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	raw := fetcher.RawQuote{
		Symbol:        "CL=F",
		LastPrice:     floatPtr(-10.0),
		PreviousClose: floatPtr(-20.0),
		MarketTime:    testNow.Add(-1 * time.Hour).Unix(),
	}

	quote := n.Normalize(specFor("CL=F"), raw, nil)

	if quote.Change == nil || *quote.Change != 10.0 {
		t.Fatalf("unexpected change: %v", quote.Change)
	}
	if quote.ChangePercent == nil || *quote.ChangePercent != 50.0 {
		t.Fatalf("expected +50%% against the absolute base, got %v", quote.ChangePercent)
	}
}

func TestNormalizeMissingAsOfIsStale(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	raw := fetcher.RawQuote{
		Symbol:        "YM=F",
		LastPrice:     floatPtr(40000.0),
		PreviousClose: floatPtr(39900.0),
	}

	quote := n.Normalize(specFor("YM=F"), raw, nil)
	if quote.Status != snapshot.StatusStale {
		t.Fatalf("a price without observation time must be stale, got %q", quote.Status)
	}
	if quote.LastPrice == nil || quote.Change == nil {
		t.Fatal("stale quotes keep their price fields")
	}
}

func TestNormalizeOldAsOfIsStale(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	raw := fetcher.RawQuote{
		Symbol:        "^N225",
		LastPrice:     floatPtr(39000.0),
		PreviousClose: floatPtr(38800.0),
		MarketTime:    testNow.Add(-75 * time.Hour).Unix(),
	}

	quote := n.Normalize(specFor("^N225"), raw, nil)
	if quote.Status != snapshot.StatusStale {
		t.Fatalf("expected stale for a %v old observation, got %q", 75*time.Hour, quote.Status)
	}
}

func TestNormalizeRoundsPrices(t *testing.T) {
	n := newTestNormalizer(72 * time.Hour)
	raw := fetcher.RawQuote{
		Symbol:        "ETH-USD",
		LastPrice:     floatPtr(3333.123456),
		PreviousClose: floatPtr(3300.0),
		MarketTime:    testNow.Add(-1 * time.Hour).Unix(),
	}

	quote := n.Normalize(specFor("ETH-USD"), raw, nil)

	if quote.LastPrice == nil || *quote.LastPrice != 3333.1235 {
		t.Fatalf("expected price rounded to 4 decimals, got %v", quote.LastPrice)
	}
	if quote.Change == nil || *quote.Change != 33.1235 {
		t.Fatalf("expected change rounded to 4 decimals, got %v", quote.Change)
	}
	if quote.ChangePercent == nil || *quote.ChangePercent != 1.0 {
		t.Fatalf("expected change percent rounded to 2 decimals, got %v", quote.ChangePercent)
	}
}
