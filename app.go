package main

import (
	"context"
	"fmt"
	"strings"

	"leilao-scraper/config"
	"leilao-scraper/models"
	"leilao-scraper/scraper"
	"leilao-scraper/scraper/megaleiloes"
	"leilao-scraper/scraper/sodre"
	"leilao-scraper/scraper/superbid"
	"leilao-scraper/storage"
	"leilao-scraper/utils"
)

// openStore connects to the configured backend. Credentials must have been
// validated already.
func openStore(cfg *config.Config, logger *utils.Logger) (storage.Upserter, error) {
	opts := storage.Options{
		BatchSize:  cfg.UpsertBatchSize,
		Timeout:    cfg.UpsertTimeout,
		BatchDelay: cfg.UpsertBatchDelay(),
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return storage.NewPostgresUpserter(cfg.DSN(), cfg.SupabaseSchema, opts, logger)
	default:
		return storage.NewRESTUpserter(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseSchema, opts, logger), nil
	}
}

// parseSources turns "all" or a comma-separated list into sources in the
// fixed run order.
func parseSources(s string) ([]models.Source, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return models.AllSources, nil
	}

	want := make(map[models.Source]bool)
	for _, part := range strings.Split(s, ",") {
		src, ok := models.ParseSource(strings.TrimSpace(part))
		if !ok {
			return nil, fmt.Errorf("unknown source %q (want all, sodre, megaleiloes or superbid)", part)
		}
		want[src] = true
	}

	var out []models.Source
	for _, src := range models.AllSources {
		if want[src] {
			out = append(out, src)
		}
	}
	return out, nil
}

// parseCategories turns "all" or a comma-separated list into categories.
func parseCategories(s string) ([]models.Category, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return models.AllCategories, nil
	}

	var out []models.Category
	for _, part := range strings.Split(s, ",") {
		cat, err := models.LookupCategory(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}

// buildProviders creates one provider per source, each with its own session.
// Sessions are warmed up first so API calls carry the sites' cookies.
func buildProviders(ctx context.Context, cfg *config.Config, logger *utils.Logger, sources []models.Source) map[models.Source]scraper.Provider {
	newSession := func() *scraper.Session {
		return scraper.NewSession(scraper.SessionConfig{
			RateLimit:  cfg.RateLimit(),
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay(),
			Timeout:    cfg.RequestTimeout,
			Logger:     logger,
		})
	}

	out := make(map[models.Source]scraper.Provider, len(sources))
	for _, src := range sources {
		s := newSession()
		var (
			p    scraper.Provider
			home string
		)
		switch src {
		case models.SourceSodre:
			p, home = sodre.New(s, logger, cfg.MaxPages, cfg.PageSize), sodre.HomeURL
		case models.SourceMegaleiloes:
			p, home = megaleiloes.New(s, logger, cfg.MaxPages), megaleiloes.HomeURL
		case models.SourceSuperbid:
			p, home = superbid.New(s, logger, cfg.MaxPages), superbid.HomeURL
		default:
			continue
		}

		if cfg.BrowserSession {
			if err := scraper.BrowserWarmup(ctx, s, cfg.ChromeBin, logger, home); err != nil {
				logger.Warn("[%s] Browser warm-up failed, falling back to plain requests: %v", src, err)
				s.Warmup(ctx, home)
			}
		} else {
			s.Warmup(ctx, home)
		}
		out[src] = p
	}
	return out
}
