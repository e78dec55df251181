package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	chartPath     = "/v8/finance/chart/"
	chartInterval = "1d"
	chartRange    = "5d"
)

// Options parameterise the Yahoo chart client.
type Options struct {
	BaseURL string
	// RequestTimeout bounds a single HTTP attempt, not the whole fetch.
	RequestTimeout time.Duration
	// Retries is the total number of attempts per symbol, including the
	// first one.
	Retries        int
	BackoffInitial time.Duration
	RatePerSec     float64
	Burst          int
	UserAgent      string
}

// Yahoo fetches end-of-day quotes from the Yahoo Finance chart endpoint.
// One shared token bucket paces requests across all concurrent workers.
type Yahoo struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewYahoo constructs a chart client.
func NewYahoo(opts Options, logger zerolog.Logger) *Yahoo {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}

	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "yahoo_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		baseURL: baseURL,
	}
}

// Fetch retrieves the raw chart quote for one symbol. Timeouts and upstream
// errors are retried with exponential backoff; unknown symbols are not.
// Failures come back as *FetchError unless the parent context is done.
func (y *Yahoo) Fetch(ctx context.Context, symbol string) (RawQuote, error) {
	var raw RawQuote

	attempt := 0
	operation := func() error {
		if err := y.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		attempt++

		quote, err := y.fetchOnce(ctx, symbol)
		if err != nil {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) && !fetchErr.Retryable() {
				return backoff.Permanent(err)
			}
			y.logger.Debug().
				Err(err).
				Str("symbol", symbol).
				Int("attempt", attempt).
				Msg("chart request failed")
			return err
		}

		raw = quote
		return nil
	}

	retries := y.opts.Retries
	if retries <= 0 {
		retries = 1
	}
	expo := backoff.NewExponentialBackOff()
	if y.opts.BackoffInitial > 0 {
		expo.InitialInterval = y.opts.BackoffInitial
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(retries-1)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return RawQuote{}, err
	}
	return raw, nil
}

func (y *Yahoo) fetchOnce(ctx context.Context, symbol string) (RawQuote, error) {
	endpoint := y.baseURL + chartPath + url.PathEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RawQuote{}, &FetchError{Symbol: symbol, Kind: KindUpstream, Err: err}
	}

	query := req.URL.Query()
	query.Set("interval", chartInterval)
	query.Set("range", chartRange)
	query.Set("includePrePost", "false")
	req.URL.RawQuery = query.Encode()

	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(y.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "marketsnap/1.0")
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return RawQuote{}, &FetchError{Symbol: symbol, Kind: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawQuote{}, &FetchError{Symbol: symbol, Kind: classifyTransport(err), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return RawQuote{}, &FetchError{Symbol: symbol, Kind: KindNotFound, Err: parseHTTPError(resp.StatusCode, payload)}
	case resp.StatusCode != http.StatusOK:
		return RawQuote{}, &FetchError{Symbol: symbol, Kind: KindUpstream, Err: parseHTTPError(resp.StatusCode, payload)}
	}

	return parseChart(symbol, payload)
}

func parseChart(symbol string, payload []byte) (RawQuote, error) {
	var body chartResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return RawQuote{}, &FetchError{Symbol: symbol, Kind: KindUpstream, Err: fmt.Errorf("decode chart response: %w", err)}
	}

	if body.Chart.Error != nil {
		kind := KindUpstream
		if strings.EqualFold(body.Chart.Error.Code, "Not Found") {
			kind = KindNotFound
		}
		return RawQuote{}, &FetchError{
			Symbol: symbol,
			Kind:   kind,
			Err:    fmt.Errorf("chart api: %s: %s", body.Chart.Error.Code, body.Chart.Error.Description),
		}
	}
	if len(body.Chart.Result) == 0 {
		return RawQuote{}, &FetchError{Symbol: symbol, Kind: KindUpstream, Err: errors.New("empty chart result")}
	}

	result := body.Chart.Result[0]
	raw := RawQuote{
		Symbol:             symbol,
		Currency:           result.Meta.Currency,
		LastPrice:          result.Meta.RegularMarketPrice,
		PreviousClose:      result.Meta.PreviousClose,
		ChartPreviousClose: result.Meta.ChartPreviousClose,
		MarketTime:         result.Meta.RegularMarketTime,
		Timestamps:         result.Timestamp,
	}
	if len(result.Indicators.Quote) > 0 {
		raw.Closes = result.Indicators.Quote[0].Close
	}
	return raw, nil
}

func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUpstream
}

func parseHTTPError(status int, payload []byte) error {
	var body chartResponse
	if err := json.Unmarshal(payload, &body); err == nil && body.Chart.Error != nil {
		return fmt.Errorf("chart api error (%d): %s: %s", status, body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(payload) > 0 {
		return fmt.Errorf("chart api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("chart api error (%d)", status)
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency           string   `json:"currency"`
		Symbol             string   `json:"symbol"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		PreviousClose      *float64 `json:"previousClose"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
		RegularMarketTime  int64    `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

var _ QuoteFetcher = (*Yahoo)(nil)
