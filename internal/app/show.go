package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"market-snapshot/internal/catalog"
	"market-snapshot/internal/storage"
)

// Show prints the current snapshot as a table.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store := a.newStore()
	snap, err := store.Load()
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			return fmt.Errorf("no snapshot at %s; run the pipeline first", store.Path())
		}
		return err
	}

	cat, err := a.newCatalog()
	if err != nil {
		return err
	}

	sections := catalog.Sections()
	if opts.Section != "" {
		section, err := catalog.ParseSection(opts.Section)
		if err != nil {
			return err
		}
		sections = []catalog.Section{section}
	}

	age := snap.Age(time.Now().UTC())
	fmt.Fprintf(os.Stdout, "snapshot generated %s (%s ago)\n", snap.GeneratedAt.Format(time.RFC3339), age.Truncate(time.Second))
	if age > a.Config.Pipeline.FreshnessThreshold {
		fmt.Fprintf(os.Stdout, "warning: snapshot is older than the freshness threshold (%s)\n", a.Config.Pipeline.FreshnessThreshold)
	}
	fmt.Fprintln(os.Stdout)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Section\tSymbol\tLabel\tPrice\tChange\tChange%\tAs Of (UTC)\tStatus")

	for _, section := range sections {
		for _, quote := range snap.Sections[string(section)] {
			unit := catalog.UnitPrice
			if spec, ok := cat.Lookup(quote.Symbol); ok {
				unit = spec.Unit
			}
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				section,
				quote.Symbol,
				quote.Label,
				formatValue(quote.LastPrice, unit),
				formatSigned(quote.Change),
				formatPercent(quote.ChangePercent),
				formatAsOf(quote.AsOf),
				quote.Status,
			)
		}
	}
	writer.Flush()

	if len(snap.FetchErrors) > 0 {
		fmt.Fprintf(os.Stdout, "\nfetch errors (%d):\n", len(snap.FetchErrors))
		for _, failure := range snap.FetchErrors {
			fmt.Fprintf(os.Stdout, "  %s: %s\n", failure.Symbol, failure.Reason)
		}
	}
	return nil
}

func formatValue(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if unit == catalog.UnitPercent {
		return s + "%"
	}
	return s
}

func formatSigned(v *float64) string {
	if v == nil {
		return "-"
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if *v > 0 {
		return "+" + s
	}
	return s
}

func formatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

func formatAsOf(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
