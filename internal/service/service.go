package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"market-snapshot/internal/alerting"
	"market-snapshot/internal/catalog"
	"market-snapshot/internal/config"
	"market-snapshot/internal/fetcher"
	"market-snapshot/internal/normalize"
	"market-snapshot/internal/scheduler"
	"market-snapshot/internal/snapshot"
	"market-snapshot/internal/storage"
)

// ErrTotalOutage marks a run in which not a single fetch succeeded. The run
// fails without touching the previous snapshot, which stays authoritative.
var ErrTotalOutage = errors.New("every fetch failed")

// Service orchestrates the snapshot pipeline: catalog iteration, concurrent
// fetching, normalization, document assembly, persistence, and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	catalog    *catalog.Catalog
	fetcher    fetcher.QuoteFetcher
	normalizer *normalize.Normalizer
	store      *storage.Store
	notifier   alerting.Notifier
	logger     zerolog.Logger

	concurrency int
	runTimeout  time.Duration
	alertsOn    bool
	minFailures int
	now         func() time.Time
}

// New constructs the pipeline service.
func New(cfg *config.Config, sched *scheduler.Scheduler, cat *catalog.Catalog, quotes fetcher.QuoteFetcher, norm *normalize.Normalizer, store *storage.Store, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	concurrency := cfg.Pipeline.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	minFailures := cfg.Alerting.MinFailures
	if minFailures <= 0 {
		minFailures = 1
	}

	return &Service{
		scheduler:   sched,
		catalog:     cat,
		fetcher:     quotes,
		normalizer:  norm,
		store:       store,
		notifier:    notifier,
		logger:      logger.With().Str("component", "service").Logger(),
		concurrency: concurrency,
		runTimeout:  cfg.Pipeline.RunTimeout,
		alertsOn:    cfg.Alerting.Enabled,
		minFailures: minFailures,
		now:         time.Now,
	}
}

// Run begins the scheduled snapshot loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, at time.Time) error {
		return s.RunOnce(ctx)
	})
}

// RunOnce executes a single pipeline pass: build the snapshot, replace the
// document on disk, and report degradation when configured.
func (s *Service) RunOnce(ctx context.Context) error {
	logger := s.logger.With().Str("run_id", uuid.NewString()).Logger()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	started := s.now()
	snap, err := s.BuildSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	if snap.TotalOutage() {
		s.maybeAlert(ctx, logger, snap)
		return fmt.Errorf("%w: %d symbols unreachable, previous snapshot left in place", ErrTotalOutage, snap.TotalQuotes())
	}

	// A nil store runs the pipeline without persistence (alert simulation).
	path := ""
	if s.store != nil {
		if err := s.store.Write(snap); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		path = s.store.Path()
	}

	counts := snap.CountByStatus()
	logger.Info().
		Time("generated_at", snap.GeneratedAt).
		Dur("took", s.now().Sub(started)).
		Int("total", snap.TotalQuotes()).
		Int("ok", counts[snapshot.StatusOK]).
		Int("stale", counts[snapshot.StatusStale]).
		Int("missing", counts[snapshot.StatusMissing]).
		Int("fetch_errors", len(snap.FetchErrors)).
		Str("path", path).
		Msg("snapshot written")

	s.maybeAlert(ctx, logger, snap)
	return nil
}

// BuildSnapshot fetches and normalizes every catalog entry and assembles the
// document. Quotes keep catalog order inside each section regardless of
// which fetch finishes first, and one failed symbol never drops another.
func (s *Service) BuildSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	specs := s.catalog.List()

	type outcome struct {
		quote   snapshot.Quote
		failure *snapshot.FetchFailure
	}
	results := make([]outcome, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, spec := range specs {
		g.Go(func() error {
			raw, err := s.fetcher.Fetch(gctx, spec.Symbol)
			if err != nil {
				var fetchErr *fetcher.FetchError
				if !errors.As(err, &fetchErr) {
					// Not a per-symbol failure: the run itself is dying.
					return err
				}
				s.logger.Warn().
					Err(fetchErr.Err).
					Str("symbol", spec.Symbol).
					Str("kind", string(fetchErr.Kind)).
					Msg("fetch failed")
				results[i] = outcome{
					quote:   s.normalizer.Normalize(spec, fetcher.RawQuote{}, fetchErr),
					failure: &snapshot.FetchFailure{Symbol: spec.Symbol, Reason: string(fetchErr.Kind)},
				}
				return nil
			}
			results[i] = outcome{quote: s.normalizer.Normalize(spec, raw, nil)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := snapshot.New(s.now())
	for i, spec := range specs {
		key := string(spec.Section)
		snap.Sections[key] = append(snap.Sections[key], results[i].quote)
		if results[i].failure != nil {
			snap.FetchErrors = append(snap.FetchErrors, *results[i].failure)
		}
	}
	return snap, nil
}

func (s *Service) maybeAlert(ctx context.Context, logger zerolog.Logger, snap *snapshot.Snapshot) {
	if !s.alertsOn || s.notifier == nil {
		return
	}
	if len(snap.FetchErrors) < s.minFailures {
		return
	}

	counts := snap.CountByStatus()
	note := alerting.Notification{
		GeneratedAt: snap.GeneratedAt,
		Total:       snap.TotalQuotes(),
		OK:          counts[snapshot.StatusOK],
		Stale:       counts[snapshot.StatusStale],
		Missing:     counts[snapshot.StatusMissing],
		Failures:    snap.FetchErrors,
	}
	if s.store != nil {
		note.SnapshotPath = s.store.Path()
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		logger.Error().Err(err).Msg("failed to dispatch degradation alert")
	}
}
