package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked for every scheduled refresh.
type TickFunc func(ctx context.Context, at time.Time) error

// Options control when refreshes fire.
type Options struct {
	Interval time.Duration
	// AlignToStart snaps ticks to interval boundaries in UTC, so a daily
	// interval fires at midnight instead of "whenever the process started".
	AlignToStart bool
	StartupDelay time.Duration
	// SkipWeekends pushes Saturday and Sunday ticks to the next weekday.
	// Useful for an end-of-day universe dominated by closed markets.
	SkipWeekends bool
}

// Scheduler drives periodic snapshot refreshes.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New builds a Scheduler. A non-positive interval panics.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks, invoking the tick function at each scheduled time until ctx is
// cancelled. A failed tick is logged and the loop keeps going: the next
// refresh is the retry.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if err := s.wait(ctx, s.opts.StartupDelay); err != nil {
		return err
	}

	next := s.skipWeekend(s.nextTick(time.Now().UTC()))
	for {
		delay := time.Until(next)
		if delay < 0 {
			// Missed the slot (process suspend, clock jump); reschedule from now.
			next = s.skipWeekend(s.nextTick(time.Now().UTC()))
			delay = time.Until(next)
		}

		s.logger.Debug().Time("next_run", next).Msg("waiting for next run")
		if err := s.wait(ctx, delay); err != nil {
			return err
		}

		s.logger.Info().Time("run_at", next).Msg("starting scheduled run")
		if err := tick(ctx, next); err != nil {
			s.logger.Error().Err(err).Time("run_at", next).Msg("scheduled run failed")
		}

		next = s.skipWeekend(next.Add(s.opts.Interval))
	}
}

// wait sleeps for d or until ctx is cancelled, whichever comes first.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	tick := now.Truncate(s.opts.Interval)
	if !tick.After(now) {
		tick = tick.Add(s.opts.Interval)
	}
	return tick
}

// skipWeekend steps in whole intervals, so an aligned tick stays aligned.
func (s *Scheduler) skipWeekend(t time.Time) time.Time {
	if !s.opts.SkipWeekends {
		return t
	}
	for {
		switch t.Weekday() {
		case time.Saturday, time.Sunday:
			t = t.Add(s.opts.Interval)
		default:
			return t
		}
	}
}
