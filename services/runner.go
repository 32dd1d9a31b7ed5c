package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leilao-scraper/models"
	"leilao-scraper/scraper"
	"leilao-scraper/storage"
	"leilao-scraper/utils"
)

// Runner executes one full category run: fetch, pipeline, dedupe, snapshot
// file, upsert and summary.
type Runner struct {
	Logger    *utils.Logger
	Providers map[models.Source]scraper.Provider
	Writer    storage.SnapshotWriter
	Store     storage.Upserter // nil skips the upload

	// Concurrency > 1 fetches providers in parallel; results are still merged
	// in the order the sources were given.
	Concurrency int
	Stagger     time.Duration
	Now         func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run processes the given sources for cat. Provider failures are recorded in
// the summary; the run itself only fails when the context is cancelled.
func (r *Runner) Run(ctx context.Context, cat models.Category, sources []models.Source) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:          uuid.NewString(),
		Category:       cat.Name,
		StartedAt:      r.now(),
		PerProvider:    make(map[models.Source]int),
		ProviderErrors: make(map[models.Source]string),
	}
	r.Logger.Info("[runner] Run %s: category=%s sources=%v", summary.RunID, cat.Name, sources)

	filtered, skips := utils.NewTally(), utils.NewTally()
	pipe := NewPipeline(cat, r.Logger, filtered, skips)

	results := make([][]*models.Listing, len(sources))
	errs := make([]error, len(sources))

	pool := utils.NewWorkerPool(r.Concurrency, r.Stagger)
	for i, src := range sources {
		i, src := i, src
		f, ok := r.Providers[src]
		if !ok {
			errs[i] = fmt.Errorf("no provider registered for %s", src)
			continue
		}
		pool.Submit(func() {
			payloads, err := f.Fetch(ctx, cat)
			if err != nil {
				errs[i] = err
			}
			results[i] = pipe.Process(payloads, r.now())
			r.Logger.Info("[runner] %s: %d payloads → %d listings", src, len(payloads), len(results[i]))
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("run %s aborted: %w", summary.RunID, err)
	}

	var all []*models.Listing
	for i, src := range sources {
		if errs[i] != nil {
			r.Logger.Error("[runner] %s failed: %v", src, errs[i])
			summary.ProviderErrors[src] = errs[i].Error()
		}
		summary.PerProvider[src] = len(results[i])
		all = append(all, results[i]...)
	}

	unique, dupes := Dedupe(all)
	summary.Extracted = pipe.Extracted()
	summary.Duplicates = dupes
	summary.Total = len(unique)
	summary.Skipped = skips.Snapshot()
	summary.Filtered = make(map[string]int)
	for reason, n := range filtered.Snapshot() {
		if reason == ReasonMissingID || reason == ReasonMissingTitle {
			summary.Invalid += n
			continue
		}
		summary.Filtered[reason] = n
	}

	// the snapshot goes to disk before any remote call so nothing is lost
	path, err := r.Writer.Write(cat.Name, unique, summary.StartedAt)
	if err != nil {
		r.Logger.Error("[runner] Snapshot write failed: %v", err)
	} else {
		summary.OutputPath = path
		r.Logger.Info("[runner] Saved %d listings to %s", len(unique), path)
	}

	if r.Store != nil && len(unique) > 0 {
		res, err := r.Store.Upsert(ctx, cat.Table, unique)
		summary.Upsert = res
		if err != nil {
			summary.UpsertErr = err.Error()
			r.Logger.Error("[runner] Upsert into %s failed: %v", cat.Table, err)
		}
	}

	NewSummaryService(r.Logger).Generate(summary, unique)
	summary.FinishedAt = r.now()
	return summary, nil
}
