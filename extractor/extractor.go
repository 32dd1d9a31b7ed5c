// Package extractor turns provider-native payloads into provisional canonical
// listings. Every function here is pure: it sees one payload, the category
// being scraped and the run clock, and reports exactly one outcome.
package extractor

import (
	"time"

	"leilao-scraper/models"
)

// Func extracts one payload. It must never panic on malformed input.
type Func func(p models.RawPayload, cat models.Category, now time.Time) models.ExtractResult

var registry = map[models.Source]Func{
	models.SourceSodre:       Sodre,
	models.SourceMegaleiloes: Megaleiloes,
	models.SourceSuperbid:    Superbid,
}

// For returns the extractor registered for a source.
func For(src models.Source) (Func, bool) {
	fn, ok := registry[src]
	return fn, ok
}

// Extract dispatches p to its provider's extractor.
func Extract(p models.RawPayload, cat models.Category, now time.Time) models.ExtractResult {
	fn, ok := For(p.Source)
	if !ok {
		return models.Fail("unknown_source")
	}
	return fn(p, cat, now)
}

// base fills the fields every provider shares.
func base(src models.Source, id, title string) *models.Listing {
	l := &models.Listing{
		Source:      src,
		Title:       Truncate(title, maxTitleLen),
		AuctionType: "Leilão",
		Metadata:    map[string]any{},
		IsActive:    true,
	}
	if id != "" {
		l.ExternalID = string(src) + "_" + id
	}
	return l
}

func finish(l *models.Listing, now time.Time) models.ExtractResult {
	if Expired(l.AuctionDate, now) {
		return models.Skip(models.SkipExpired)
	}
	l.ValueText = FormatBRL(l.Value)
	l.DaysRemaining = DaysRemaining(l.AuctionDate, now)
	return models.OK(l)
}
