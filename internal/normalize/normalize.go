package normalize

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"market-snapshot/internal/catalog"
	"market-snapshot/internal/fetcher"
	"market-snapshot/internal/snapshot"
)

var decHundred = decimal.NewFromInt(100)

// Options parameterise quote classification.
type Options struct {
	// FreshnessThreshold is the maximum age of an observation before the
	// quote is demoted to stale.
	FreshnessThreshold time.Duration
}

// Normalizer maps raw provider responses onto canonical quote records. It
// never fails: unusable input degrades the record toward missing instead of
// producing an error.
type Normalizer struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a normalizer.
func New(opts Options, logger zerolog.Logger) *Normalizer {
	if opts.FreshnessThreshold <= 0 {
		opts.FreshnessThreshold = 72 * time.Hour
	}
	return &Normalizer{
		opts:   opts,
		logger: logger.With().Str("component", "normalizer").Logger(),
		now:    time.Now,
	}
}

// Normalize builds the canonical quote for one catalog entry from a fetch
// outcome. A non-nil fetchErr yields a missing quote with every
// price-derived field null.
func (n *Normalizer) Normalize(spec catalog.TickerSpec, raw fetcher.RawQuote, fetchErr error) snapshot.Quote {
	quote := snapshot.Quote{
		Symbol: spec.Symbol,
		Label:  spec.Label,
		Status: snapshot.StatusMissing,
	}
	if fetchErr != nil {
		return quote
	}

	lastPrice, ok := n.lastPrice(raw)
	if !ok {
		n.logger.Warn().Str("symbol", spec.Symbol).Msg("chart response carries no usable price")
		return quote
	}

	price := decimal.NewFromFloat(lastPrice).Round(4)
	priceVal := price.InexactFloat64()
	quote.LastPrice = &priceVal

	if prevClose, ok := n.previousClose(raw); ok {
		prev := decimal.NewFromFloat(prevClose)
		change := price.Sub(prev).Round(4)
		changeVal := change.InexactFloat64()
		quote.Change = &changeVal

		// A zero previous close would make the percent meaningless, so it
		// stays null rather than guessed.
		if !prev.IsZero() {
			pct := price.Sub(prev).Div(prev.Abs()).Mul(decHundred).Round(2)
			pctVal := pct.InexactFloat64()
			quote.ChangePercent = &pctVal
		}
	}

	if asOf, ok := raw.AsOf(); ok {
		quote.AsOf = &asOf
	}

	quote.Status = n.classify(quote)
	return quote
}

func (n *Normalizer) lastPrice(raw fetcher.RawQuote) (float64, bool) {
	if raw.LastPrice != nil {
		return *raw.LastPrice, true
	}
	price, _, ok := raw.LastClose()
	return price, ok
}

// previousClose resolves the prior session close. The provider metadata
// wins when present; otherwise the second most recent bar serves, and the
// pre-window close covers single-bar responses.
func (n *Normalizer) previousClose(raw fetcher.RawQuote) (float64, bool) {
	if raw.PreviousClose != nil {
		return *raw.PreviousClose, true
	}
	if prior, ok := raw.PriorClose(); ok {
		return prior, true
	}
	if raw.ChartPreviousClose != nil {
		return *raw.ChartPreviousClose, true
	}
	return 0, false
}

func (n *Normalizer) classify(quote snapshot.Quote) snapshot.Status {
	if quote.LastPrice == nil {
		return snapshot.StatusMissing
	}
	if quote.AsOf == nil {
		// A price with no observation time cannot be proven fresh.
		return snapshot.StatusStale
	}
	if n.now().Sub(*quote.AsOf) > n.opts.FreshnessThreshold {
		return snapshot.StatusStale
	}
	return snapshot.StatusOK
}
