package fetcher

import (
	"context"
	"fmt"
	"time"
)

// ErrorKind classifies a per-symbol fetch failure.
type ErrorKind string

const (
	// KindTimeout covers exceeded deadlines and other slow-network failures.
	KindTimeout ErrorKind = "timeout"
	// KindNotFound covers symbols the provider does not know. Retrying a
	// not-found symbol is pointless, so the client never does.
	KindNotFound ErrorKind = "not_found"
	// KindUpstream covers provider-side errors and malformed responses.
	KindUpstream ErrorKind = "upstream"
)

// FetchError tags a per-symbol failure with its class. The class string is
// what ends up in the snapshot's fetchErrors list.
type FetchError struct {
	Symbol string
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Symbol, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt against the provider could
// plausibly succeed.
func (e *FetchError) Retryable() bool { return e.Kind != KindNotFound }

// RawQuote carries the provider's chart response for one symbol before
// normalization. Field presence varies by instrument class: indices often
// lack a previous close, thin futures sometimes report no market time, and
// the close series may contain gaps.
type RawQuote struct {
	Symbol   string
	Currency string
	// LastPrice is the provider's regular market price, when reported.
	LastPrice *float64
	// PreviousClose is the provider's prior session close, when reported.
	PreviousClose *float64
	// ChartPreviousClose is the close immediately before the chart window.
	// With a multi-day window it is several sessions old, so it only serves
	// as a previous-close fallback when the window holds a single bar.
	ChartPreviousClose *float64
	// MarketTime is the epoch second of the last observation; zero when the
	// provider omitted it.
	MarketTime int64
	// Timestamps and Closes are the trailing daily bars, oldest first.
	// Closes entries are nil where the provider reported a gap.
	Timestamps []int64
	Closes     []*float64
}

// LastClose returns the most recent non-nil close and its bar timestamp.
func (r RawQuote) LastClose() (float64, int64, bool) {
	for i := len(r.Closes) - 1; i >= 0; i-- {
		if r.Closes[i] == nil {
			continue
		}
		var ts int64
		if i < len(r.Timestamps) {
			ts = r.Timestamps[i]
		}
		return *r.Closes[i], ts, true
	}
	return 0, 0, false
}

// PriorClose returns the second most recent non-nil close. It backs the
// previous-close fallback when the provider omits one in the metadata.
func (r RawQuote) PriorClose() (float64, bool) {
	skipped := false
	for i := len(r.Closes) - 1; i >= 0; i-- {
		if r.Closes[i] == nil {
			continue
		}
		if !skipped {
			skipped = true
			continue
		}
		return *r.Closes[i], true
	}
	return 0, false
}

// AsOf converts the most specific observation time available into UTC.
func (r RawQuote) AsOf() (time.Time, bool) {
	if r.MarketTime > 0 {
		return time.Unix(r.MarketTime, 0).UTC(), true
	}
	if _, ts, ok := r.LastClose(); ok && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// QuoteFetcher retrieves the raw end-of-day quote for one symbol.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string) (RawQuote, error)
}
