// Package sodre fetches lots from Sodré Santoro's search-lots API.
package sodre

import (
	"context"
	"encoding/json"
	"fmt"

	"leilao-scraper/models"
	"leilao-scraper/scraper"
	"leilao-scraper/utils"
)

const (
	HomeURL   = "https://www.sodresantoro.com.br"
	searchURL = HomeURL + "/api/search-lots"
)

// open, in-progress and scheduled lots
var openStatuses = []int{1, 2, 3}

type searchRequest struct {
	Indices []string `json:"indices"`
	Query   any      `json:"query"`
	From    int      `json:"from"`
	Size    int      `json:"size"`
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

// Provider paginates search-lots for the category's indices.
type Provider struct {
	session  *scraper.Session
	logger   *utils.Logger
	endpoint string
	maxPages int
	pageSize int
}

// New creates a Sodré provider. maxPages bounds pagination per category.
func New(session *scraper.Session, logger *utils.Logger, maxPages, pageSize int) *Provider {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Provider{
		session:  session,
		logger:   logger,
		endpoint: searchURL,
		maxPages: maxPages,
		pageSize: pageSize,
	}
}

// WithEndpoint points the provider at another search-lots URL.
func (p *Provider) WithEndpoint(u string) *Provider {
	p.endpoint = u
	return p
}

func (p *Provider) Source() models.Source { return models.SourceSodre }

// Fetch returns the raw lots. Relevance filtering for mixed indices happens
// in extraction, where the category keywords are applied.
func (p *Provider) Fetch(ctx context.Context, cat models.Category) ([]models.RawPayload, error) {
	if len(cat.SodreIndices) == 0 {
		p.logger.Warn("[sodre] No index configured for %s", cat.Name)
		return nil, nil
	}

	var out []models.RawPayload
	for page := 0; page < p.maxPages; page++ {
		req := searchRequest{
			Indices: cat.SodreIndices,
			Query: map[string]any{
				"bool": map[string]any{
					"filter": []any{
						map[string]any{"terms": map[string]any{"lot_status_id": openStatuses}},
					},
				},
			},
			From: page * p.pageSize,
			Size: p.pageSize,
		}

		var resp searchResponse
		if err := p.session.PostJSON(ctx, p.endpoint, req, &resp); err != nil {
			return out, fmt.Errorf("sodre page %d: %w", page+1, err)
		}
		if len(resp.Results) == 0 {
			break
		}

		for _, r := range resp.Results {
			out = append(out, models.RawPayload{Source: models.SourceSodre, Category: cat.Name, Body: r})
		}
		p.logger.Info("[sodre] Page %d: +%d | total %d", page+1, len(resp.Results), len(out))

		if len(resp.Results) < p.pageSize {
			break
		}
	}
	return out, nil
}
