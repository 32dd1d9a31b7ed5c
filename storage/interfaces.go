package storage

import (
	"context"
	"time"

	"leilao-scraper/models"
)

// Upserter is the interface any remote store backend must satisfy.
// Listings are keyed by (source, external_id): absent keys are inserted,
// present keys are merged.
type Upserter interface {
	Upsert(ctx context.Context, table string, listings []*models.Listing) (models.UpsertResult, error)
	Count(ctx context.Context, table string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// SnapshotWriter persists the full result of a run locally, independently
// of whether the upload succeeds.
type SnapshotWriter interface {
	Write(category string, listings []*models.Listing, at time.Time) (string, error)
}

// Options are the batching settings shared by all Upserter backends.
type Options struct {
	BatchSize  int
	Timeout    time.Duration // per batch
	BatchDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	return o
}

func batches(listings []*models.Listing, size int) [][]*models.Listing {
	var out [][]*models.Listing
	for i := 0; i < len(listings); i += size {
		end := i + size
		if end > len(listings) {
			end = len(listings)
		}
		out = append(out, listings[i:end])
	}
	return out
}
