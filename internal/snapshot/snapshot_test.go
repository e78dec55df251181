package snapshot

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewInitializesContainers(t *testing.T) {
	snap := New(time.Date(2026, 3, 2, 21, 5, 7, 123456789, time.UTC))

	if snap.Sections == nil {
		t.Fatal("expected sections map to be initialized")
	}
	if snap.FetchErrors == nil {
		t.Fatal("expected fetch errors slice to be initialized")
	}
	if snap.GeneratedAt.Nanosecond() != 0 {
		t.Fatalf("expected generatedAt truncated to seconds, got %v", snap.GeneratedAt)
	}
	if snap.GeneratedAt.Location() != time.UTC {
		t.Fatalf("expected generatedAt in UTC, got %v", snap.GeneratedAt.Location())
	}
}

func TestMarshalKeepsNullFields(t *testing.T) {
	snap := New(time.Date(2026, 3, 2, 21, 5, 7, 0, time.UTC))
	snap.Sections["equities"] = []Quote{
		{Symbol: "XYZ123", Label: "XYZ123", Status: StatusMissing},
	}
	snap.FetchErrors = append(snap.FetchErrors, FetchFailure{Symbol: "XYZ123", Reason: "timeout"})

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := string(raw)
	for _, want := range []string{
		`"generatedAt":"2026-03-02T21:05:07Z"`,
		`"lastPrice":null`,
		`"change":null`,
		`"changePercent":null`,
		`"asOf":null`,
		`"status":"missing"`,
		`"fetchErrors":[{"symbol":"XYZ123","reason":"timeout"}]`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected document to contain %s, got %s", want, body)
		}
	}
}

func TestMarshalEmptyFetchErrorsAsArray(t *testing.T) {
	raw, err := json.Marshal(New(time.Now()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), `"fetchErrors":[]`) {
		t.Fatalf("expected empty fetchErrors array, got %s", raw)
	}
}

func TestCountByStatus(t *testing.T) {
	asOf := time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)
	snap := New(asOf)
	snap.Sections["equities"] = []Quote{
		{Symbol: "AAPL", LastPrice: floatPtr(150), AsOf: &asOf, Status: StatusOK},
		{Symbol: "MSFT", LastPrice: floatPtr(410), Status: StatusStale},
	}
	snap.Sections["crypto"] = []Quote{
		{Symbol: "BTC-USD", Status: StatusMissing},
	}

	counts := snap.CountByStatus()
	if counts[StatusOK] != 1 || counts[StatusStale] != 1 || counts[StatusMissing] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if snap.TotalQuotes() != 3 {
		t.Fatalf("expected 3 quotes, got %d", snap.TotalQuotes())
	}
}

func TestTotalOutage(t *testing.T) {
	snap := New(time.Now())
	if snap.TotalOutage() {
		t.Fatal("empty snapshot must not count as an outage")
	}

	snap.Sections["crypto"] = []Quote{
		{Symbol: "BTC-USD", Status: StatusMissing},
		{Symbol: "ETH-USD", Status: StatusMissing},
	}
	snap.FetchErrors = []FetchFailure{
		{Symbol: "BTC-USD", Reason: "timeout"},
	}
	if snap.TotalOutage() {
		t.Fatal("partial failure must not count as an outage")
	}

	snap.FetchErrors = append(snap.FetchErrors, FetchFailure{Symbol: "ETH-USD", Reason: "upstream"})
	if !snap.TotalOutage() {
		t.Fatal("expected total outage when every fetch failed")
	}
}
