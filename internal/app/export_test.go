package app

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"market-snapshot/internal/config"
	"market-snapshot/internal/snapshot"
	"market-snapshot/internal/storage"
)

func testApp(t *testing.T, dir string) *App {
	t.Helper()
	cfg := &config.Config{
		Pipeline: config.PipelineConfig{
			Concurrency:        4,
			FreshnessThreshold: 72 * time.Hour,
		},
		Snapshot: config.SnapshotConfig{Path: filepath.Join(dir, "data.json"), Pretty: true},
		Export:   config.ExportConfig{ChartSection: "etfs"},
	}
	return NewApp(cfg, zerolog.Nop())
}

func seedSnapshot(t *testing.T, a *App) {
	t.Helper()

	price := 150.0
	change := 1.5
	pct := 1.01
	spyPrice := 520.0
	spyChange := 5.0
	spyPct := 0.97
	asOf := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)

	snap := snapshot.New(time.Now().UTC())
	snap.Sections["equities"] = []snapshot.Quote{
		{Symbol: "AAPL", Label: "Apple", LastPrice: &price, Change: &change, ChangePercent: &pct, AsOf: &asOf, Status: snapshot.StatusOK},
		{Symbol: "XYZ123", Label: "XYZ123", Status: snapshot.StatusMissing},
	}
	snap.Sections["etfs"] = []snapshot.Quote{
		{Symbol: "SPY", Label: "SPDR S&P 500", LastPrice: &spyPrice, Change: &spyChange, ChangePercent: &spyPct, AsOf: &asOf, Status: snapshot.StatusOK},
	}
	snap.FetchErrors = append(snap.FetchErrors, snapshot.FetchFailure{Symbol: "XYZ123", Reason: "timeout"})

	store := storage.NewStore(storage.Options{Path: a.Config.Snapshot.Path, Pretty: true}, zerolog.Nop())
	if err := store.Write(snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func TestExportRequiresOutputFlag(t *testing.T) {
	a := testApp(t, t.TempDir())

	err := a.Export(context.Background(), ExportOptions{})
	if err == nil || !strings.Contains(err.Error(), "at least one") {
		t.Fatalf("expected missing-flag error, got %v", err)
	}
}

func TestExportWithoutSnapshot(t *testing.T) {
	dir := t.TempDir()
	a := testApp(t, dir)

	err := a.Export(context.Background(), ExportOptions{CSVPath: filepath.Join(dir, "out.csv")})
	if err == nil || !strings.Contains(err.Error(), "no snapshot") {
		t.Fatalf("expected no-snapshot error, got %v", err)
	}
}

func TestExportWritesCSV(t *testing.T) {
	dir := t.TempDir()
	a := testApp(t, dir)
	seedSnapshot(t, a)

	csvPath := filepath.Join(dir, "out", "quotes.csv")
	if err := a.Export(context.Background(), ExportOptions{CSVPath: csvPath}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	file, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open exported csv: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("parse exported csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d records", len(records))
	}
	if records[0][0] != "section" || records[0][7] != "status" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][1] != "AAPL" || records[2][1] != "XYZ123" || records[3][1] != "SPY" {
		t.Fatalf("rows out of section order: %v", records)
	}
	if records[1][3] != "150" {
		t.Fatalf("unexpected AAPL price cell: %q", records[1][3])
	}
	if records[2][3] != "" || records[2][6] != "" {
		t.Fatalf("missing quote must export empty cells, got %v", records[2])
	}
}

func TestExportWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	a := testApp(t, dir)
	seedSnapshot(t, a)

	xlsxPath := filepath.Join(dir, "quotes.xlsx")
	if err := a.Export(context.Background(), ExportOptions{XLSXPath: xlsxPath}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	book, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Equities" || sheets[1] != "ETFs" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}

	symbol, err := book.GetCellValue("Equities", "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if symbol != "AAPL" {
		t.Fatalf("expected AAPL in first data row, got %q", symbol)
	}
}

func TestExportWritesChart(t *testing.T) {
	dir := t.TempDir()
	a := testApp(t, dir)
	seedSnapshot(t, a)

	pngPath := filepath.Join(dir, "changes.png")
	if err := a.Export(context.Background(), ExportOptions{PNGPath: pngPath, Section: "equities"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(pngPath)
	if err != nil {
		t.Fatalf("stat exported chart: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("exported chart is empty")
	}
}

func TestExportChartFailsWithoutData(t *testing.T) {
	dir := t.TempDir()
	a := testApp(t, dir)
	seedSnapshot(t, a)

	err := a.Export(context.Background(), ExportOptions{PNGPath: filepath.Join(dir, "crypto.png"), Section: "crypto"})
	if err == nil || !strings.Contains(err.Error(), "no change data") {
		t.Fatalf("expected chartless-section error, got %v", err)
	}
}
