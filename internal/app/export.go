package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"

	"market-snapshot/internal/catalog"
	"market-snapshot/internal/snapshot"
	"market-snapshot/internal/storage"
)

// Export renders the current snapshot as CSV, PNG chart, and/or XLSX
// workbook.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" && opts.XLSXPath == "" {
		return errors.New("at least one of --csv, --png or --xlsx must be provided")
	}

	store := a.newStore()
	snap, err := store.Load()
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			return fmt.Errorf("no snapshot at %s; run the pipeline first", store.Path())
		}
		return err
	}

	a.Logger.Info().
		Time("generated_at", snap.GeneratedAt).
		Int("quotes", snap.TotalQuotes()).
		Msg("exporting snapshot")

	if opts.CSVPath != "" {
		if err := writeQuotesCSV(opts.CSVPath, snap); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		section, err := catalog.ParseSection(a.Config.ResolveChartSection(opts.Section))
		if err != nil {
			return err
		}
		if err := writeChangeChart(opts.PNGPath, snap, section); err != nil {
			return err
		}
	}

	if opts.XLSXPath != "" {
		if err := writeWorkbook(opts.XLSXPath, snap); err != nil {
			return err
		}
	}

	return nil
}

func writeQuotesCSV(path string, snap *snapshot.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"section", "symbol", "label", "last_price", "change", "change_percent", "as_of", "status"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, section := range catalog.Sections() {
		for _, quote := range snap.Sections[string(section)] {
			record := []string{
				string(section),
				quote.Symbol,
				quote.Label,
				csvFloat(quote.LastPrice),
				csvFloat(quote.Change),
				csvFloat(quote.ChangePercent),
				csvTime(quote.AsOf),
				string(quote.Status),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	return writer.Error()
}

func writeChangeChart(path string, snap *snapshot.Snapshot, section catalog.Section) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0)
	for _, quote := range snap.Sections[string(section)] {
		if quote.ChangePercent == nil {
			continue
		}
		bars = append(bars, chart.Value{Label: quote.Symbol, Value: *quote.ChangePercent})
	}
	if len(bars) == 0 {
		return fmt.Errorf("section %q has no change data to chart", section)
	}

	percentFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f%%")
	}
	graph := chart.BarChart{
		Title:  fmt.Sprintf("%s change %% (%s)", section.Title(), snap.GeneratedAt.Format("2006-01-02")),
		Width:  1280,
		Height: 720,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth:     60,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Name:           "Change (%)",
			ValueFormatter: percentFormatter,
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func writeWorkbook(path string, snap *snapshot.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	header := []any{"Symbol", "Label", "Last Price", "Change", "Change %", "As Of (UTC)", "Status"}
	created := 0
	for _, section := range catalog.Sections() {
		quotes, ok := snap.Sections[string(section)]
		if !ok {
			continue
		}

		sheet := section.Title()
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		created++

		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header on %s: %w", sheet, err)
		}
		for i, quote := range quotes {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			row := []any{
				quote.Symbol,
				quote.Label,
				cellFloat(quote.LastPrice),
				cellFloat(quote.Change),
				cellFloat(quote.ChangePercent),
				csvTime(quote.AsOf),
				string(quote.Status),
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("write row on %s: %w", sheet, err)
			}
		}
	}
	if created == 0 {
		return errors.New("snapshot has no sections to export")
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	return f.SaveAs(path)
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func csvTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func cellFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
