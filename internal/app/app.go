package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"market-snapshot/internal/alerting"
	"market-snapshot/internal/catalog"
	"market-snapshot/internal/config"
	"market-snapshot/internal/fetcher"
	"market-snapshot/internal/normalize"
	"market-snapshot/internal/scheduler"
	"market-snapshot/internal/service"
	"market-snapshot/internal/storage"
)

// App carries the configuration and logger every CLI command needs.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp wraps config and logger into a command handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newCatalog builds the instrument universe: the configured ticker list when
// present, the built-in one otherwise.
func (a *App) newCatalog() (*catalog.Catalog, error) {
	if len(a.Config.Catalog.Tickers) == 0 {
		return catalog.Default(), nil
	}

	specs := make([]catalog.TickerSpec, 0, len(a.Config.Catalog.Tickers))
	for _, t := range a.Config.Catalog.Tickers {
		section, err := catalog.ParseSection(t.Section)
		if err != nil {
			return nil, fmt.Errorf("catalog ticker %q: %w", t.Symbol, err)
		}
		specs = append(specs, catalog.TickerSpec{
			Symbol:  t.Symbol,
			Label:   t.Label,
			Section: section,
			Unit:    t.Unit,
		})
	}
	return catalog.New(specs)
}

func (a *App) newFetcher() fetcher.QuoteFetcher {
	return fetcher.NewYahoo(fetcher.Options{
		BaseURL:        a.Config.Provider.BaseURL,
		RequestTimeout: a.Config.Provider.RequestTimeout,
		Retries:        a.Config.Provider.Retries,
		BackoffInitial: a.Config.Provider.BackoffInitial,
		RatePerSec:     a.Config.Provider.RatePerSec,
		Burst:          a.Config.Provider.Burst,
		UserAgent:      a.Config.Provider.UserAgent,
	}, a.Logger)
}

// newNotifier returns nil when no alert channel is configured; the service
// treats a nil notifier as alerting disabled.
func (a *App) newNotifier() alerting.Notifier {
	tg := a.Config.Alerting.Telegram
	if !tg.Enabled {
		return nil
	}
	return alerting.NewTelegramNotifier(tg.BotToken, tg.ChatID, tg.APIBase, 10*time.Second, a.Logger)
}

func (a *App) newStore() *storage.Store {
	return storage.NewStore(storage.Options{
		Path:   a.Config.Snapshot.Path,
		Pretty: a.Config.Snapshot.Pretty,
	}, a.Logger)
}

func (a *App) newService(sched *scheduler.Scheduler) (*service.Service, error) {
	cat, err := a.newCatalog()
	if err != nil {
		return nil, err
	}

	norm := normalize.New(normalize.Options{
		FreshnessThreshold: a.Config.Pipeline.FreshnessThreshold,
	}, a.Logger)

	return service.New(a.Config, sched, cat, a.newFetcher(), norm, a.newStore(), a.newNotifier(), a.Logger), nil
}

// Run executes a single snapshot pass and exits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := a.newService(nil)
	if err != nil {
		return err
	}

	a.Logger.Info().Msg("starting snapshot run")
	return svc.RunOnce(ctx)
}

// Watch keeps refreshing the snapshot on the configured schedule until
// interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		SkipWeekends: a.Config.Scheduler.SkipWeekends,
	}, a.Logger)

	svc, err := a.newService(sched)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Dur("interval", a.Config.Scheduler.Interval).
		Bool("skip_weekends", a.Config.Scheduler.SkipWeekends).
		Msg("starting snapshot watcher")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("snapshot watcher stopped")
	return nil
}

// ExportOptions hold parameters for exporting the current snapshot.
type ExportOptions struct {
	CSVPath  string
	PNGPath  string
	XLSXPath string
	// Section picks the section charted in the PNG export.
	Section string
}

// ShowOptions filter the show command output.
type ShowOptions struct {
	// Section restricts output to one section when set.
	Section string
}
