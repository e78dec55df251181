package snapshot

import "time"

// Status classifies how trustworthy a quote is.
type Status string

const (
	// StatusOK marks a fresh quote with a usable price.
	StatusOK Status = "ok"
	// StatusStale marks a quote whose price is present but older than the
	// freshness threshold, or whose observation time is unknown.
	StatusStale Status = "stale"
	// StatusMissing marks a quote with no usable price at all.
	StatusMissing Status = "missing"
)

// Quote is one normalized instrument record within a snapshot section.
// Pointer fields serialize as JSON null when the value is unavailable;
// a missing quote carries null for every price-derived field.
type Quote struct {
	Symbol        string     `json:"symbol"`
	Label         string     `json:"label"`
	LastPrice     *float64   `json:"lastPrice"`
	Change        *float64   `json:"change"`
	ChangePercent *float64   `json:"changePercent"`
	AsOf          *time.Time `json:"asOf"`
	Status        Status     `json:"status"`
}

// FetchFailure records one symbol whose upstream fetch failed after retries.
type FetchFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Snapshot is the aggregated document for one pipeline run. It is built
// once, holds every catalog entry, and wholly replaces the previous run's
// document when written.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Sections    map[string][]Quote `json:"sections"`
	FetchErrors []FetchFailure     `json:"fetchErrors"`
}

// New returns an empty snapshot stamped with the given generation time.
// Maps and slices are initialized so the document serializes with empty
// containers instead of nulls.
func New(generatedAt time.Time) *Snapshot {
	return &Snapshot{
		GeneratedAt: generatedAt.UTC().Truncate(time.Second),
		Sections:    make(map[string][]Quote),
		FetchErrors: make([]FetchFailure, 0),
	}
}

// TotalQuotes counts the quotes across all sections.
func (s *Snapshot) TotalQuotes() int {
	total := 0
	for _, quotes := range s.Sections {
		total += len(quotes)
	}
	return total
}

// CountByStatus tallies quotes per status across all sections.
func (s *Snapshot) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, quotes := range s.Sections {
		for _, q := range quotes {
			counts[q.Status]++
		}
	}
	return counts
}

// TotalOutage reports whether every single fetch in the run failed. An
// all-failed snapshot carries no information and must not replace the
// previous document on disk.
func (s *Snapshot) TotalOutage() bool {
	total := s.TotalQuotes()
	return total > 0 && len(s.FetchErrors) >= total
}

// Age returns how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.GeneratedAt)
}
