package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-snapshot/internal/fetcher"
	"market-snapshot/internal/normalize"
	"market-snapshot/internal/service"
)

// SimulateAlert runs one pipeline pass against a canned quote provider that
// fails the given symbols, exercising the alerting path end to end without
// touching the real provider or the snapshot on disk.
func (a *App) SimulateAlert(ctx context.Context, failSymbols []string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	cat, err := a.newCatalog()
	if err != nil {
		return err
	}

	if len(failSymbols) == 0 {
		failSymbols = []string{cat.List()[0].Symbol}
	}
	failing := make(map[string]struct{}, len(failSymbols))
	for _, symbol := range failSymbols {
		if _, ok := cat.Lookup(symbol); !ok {
			return fmt.Errorf("symbol %q is not in the catalog", symbol)
		}
		failing[symbol] = struct{}{}
	}

	a.Logger.Info().
		Strs("fail_symbols", failSymbols).
		Msg("simulating degraded run")

	quotes := &staticQuoteFetcher{failing: failing}
	norm := normalize.New(normalize.Options{FreshnessThreshold: a.Config.Pipeline.FreshnessThreshold}, a.Logger)

	svc := service.New(a.Config, nil, cat, quotes, norm, nil, notifier, a.Logger)
	return svc.RunOnce(ctx)
}

// staticQuoteFetcher serves a fixed healthy quote for every symbol except
// the configured failures, which get an upstream error.
type staticQuoteFetcher struct {
	failing map[string]struct{}
}

func (s *staticQuoteFetcher) Fetch(ctx context.Context, symbol string) (fetcher.RawQuote, error) {
	if _, ok := s.failing[symbol]; ok {
		return fetcher.RawQuote{}, &fetcher.FetchError{
			Symbol: symbol,
			Kind:   fetcher.KindUpstream,
			Err:    errors.New("simulated provider outage"),
		}
	}

	last := 101.25
	prev := 100.0
	return fetcher.RawQuote{
		Symbol:        symbol,
		Currency:      "USD",
		LastPrice:     &last,
		PreviousClose: &prev,
		MarketTime:    time.Now().UTC().Unix(),
	}, nil
}

var _ fetcher.QuoteFetcher = (*staticQuoteFetcher)(nil)
