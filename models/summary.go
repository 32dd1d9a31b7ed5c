package models

import "time"

// RunSummary holds the diagnostics of one category run.
type RunSummary struct {
	RunID      string
	Category   string
	StartedAt  time.Time
	FinishedAt time.Time

	PerProvider    map[Source]int
	ProviderErrors map[Source]string

	Extracted  int
	Filtered   map[string]int // classifier reasons (no_store, demo_seller, ...)
	Skipped    map[string]int // extractor skip/error reasons
	Invalid    int
	Duplicates int
	Total      int

	OutputPath string
	Upsert     UpsertResult
	UpsertErr  string

	AveragePrice    float64
	MinPrice        float64
	MaxPrice        float64
	MostExpensive   *Listing
	ListingsByState map[string]int
}

// TotalFiltered is the number of listings dropped as test/demo items.
func (s *RunSummary) TotalFiltered() int {
	n := 0
	for _, c := range s.Filtered {
		n += c
	}
	return n
}
