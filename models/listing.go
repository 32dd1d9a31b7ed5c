package models

import (
	"encoding/json"
	"time"
)

// Source identifies an upstream auction marketplace.
type Source string

const (
	SourceSodre       Source = "sodre"
	SourceMegaleiloes Source = "megaleiloes"
	SourceSuperbid    Source = "superbid"
)

// AllSources lists the providers in the fixed order a run processes them.
var AllSources = []Source{SourceSodre, SourceMegaleiloes, SourceSuperbid}

// ParseSource validates a provider name.
func ParseSource(s string) (Source, bool) {
	for _, src := range AllSources {
		if string(src) == s {
			return src, true
		}
	}
	return "", false
}

// RawPayload is one provider-native record exactly as fetched. Only the
// extractor registered for Source knows how to read Body.
type RawPayload struct {
	Source   Source
	Category string
	Body     json.RawMessage
}

// Listing is the canonical, provider-agnostic auction record written to the
// JSON snapshot and upserted into the store. Identity is (Source, ExternalID).
type Listing struct {
	Source             Source         `json:"source"`
	ExternalID         string         `json:"external_id"`
	Title              string         `json:"title"`
	NormalizedTitle    string         `json:"normalized_title"`
	Value              *float64       `json:"value"`
	ValueText          *string        `json:"value_text"`
	City               *string        `json:"city"`
	State              *string        `json:"state"`
	Address            *string        `json:"address,omitempty"`
	AuctionDate        *time.Time     `json:"auction_date"`
	DaysRemaining      *int           `json:"days_remaining,omitempty"`
	AuctionType        string         `json:"auction_type,omitempty"`
	AuctionName        *string        `json:"auction_name,omitempty"`
	StoreName          *string        `json:"store_name,omitempty"`
	LotNumber          *string        `json:"lot_number,omitempty"`
	Description        *string        `json:"description"`
	DescriptionPreview *string        `json:"description_preview"`
	TotalVisits        int            `json:"total_visits"`
	TotalBids          int            `json:"total_bids"`
	TotalBidders       int            `json:"total_bidders"`
	Link               *string        `json:"link"`
	Metadata           map[string]any `json:"metadata"`
	IsActive           bool           `json:"is_active"`
	LastScrapedAt      *time.Time     `json:"last_scraped_at,omitempty"`
}

// Key is the natural key used for deduplication and upsert conflicts.
type Key struct {
	Source     Source
	ExternalID string
}

// Key returns the listing's natural key.
func (l *Listing) Key() Key {
	return Key{Source: l.Source, ExternalID: l.ExternalID}
}

// Outcome is the result class of extracting a single payload.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeSkip  Outcome = "skip"
	OutcomeError Outcome = "error"
)

// Skip and error reasons reported by extractors.
const (
	SkipIrrelevant = "irrelevant"
	SkipExpired    = "expired"
	ErrMalformed   = "malformed"
)

// ExtractResult replaces silent exception swallowing: every payload ends up
// as exactly one observable outcome.
type ExtractResult struct {
	Listing *Listing
	Outcome Outcome
	Reason  string
}

// OK wraps a successfully extracted listing.
func OK(l *Listing) ExtractResult {
	return ExtractResult{Listing: l, Outcome: OutcomeOK}
}

// Skip reports a payload that was intentionally dropped.
func Skip(reason string) ExtractResult {
	return ExtractResult{Outcome: OutcomeSkip, Reason: reason}
}

// Fail reports a payload that could not be read at all.
func Fail(reason string) ExtractResult {
	return ExtractResult{Outcome: OutcomeError, Reason: reason}
}

// UpsertResult aggregates per-batch outcomes of a store upsert. Skipped
// counts records rejected locally before any remote call.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
	Skipped  int `json:"skipped"`
}

// Add accumulates another result into r.
func (r *UpsertResult) Add(o UpsertResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Errors += o.Errors
	r.Skipped += o.Skipped
}
