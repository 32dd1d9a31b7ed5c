// Package megaleiloes fetches products from the Megaleilões search API.
package megaleiloes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"leilao-scraper/models"
	"leilao-scraper/scraper"
	"leilao-scraper/utils"
)

const (
	HomeURL   = "https://www.megaleiloes.com.br"
	searchURL = HomeURL + "/api/products/search"
	pageSize  = 60
)

type searchResponse struct {
	Result []json.RawMessage `json:"result"`
}

type Provider struct {
	session  *scraper.Session
	logger   *utils.Logger
	endpoint string
	maxPages int
}

func New(session *scraper.Session, logger *utils.Logger, maxPages int) *Provider {
	return &Provider{session: session, logger: logger, endpoint: searchURL, maxPages: maxPages}
}

// WithEndpoint points the provider at another search URL.
func (p *Provider) WithEndpoint(u string) *Provider {
	p.endpoint = u
	return p
}

func (p *Provider) Source() models.Source { return models.SourceMegaleiloes }

// Fetch pages through the newest products of the category's type. A
// category without a type has no Megaleilões feed and yields nothing.
func (p *Provider) Fetch(ctx context.Context, cat models.Category) ([]models.RawPayload, error) {
	if cat.MegaleiloesType == "" {
		p.logger.Warn("[megaleiloes] No feed for %s, skipping", cat.Name)
		return nil, nil
	}

	var out []models.RawPayload
	for page := 1; page <= p.maxPages; page++ {
		q := url.Values{}
		q.Set("includeImages", "1")
		q.Set("size", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))
		q.Set("onlyWithImage", "true")
		q.Set("sortKey", "DATE_DESC")
		q.Set("type", cat.MegaleiloesType)

		var resp searchResponse
		if err := p.session.GetJSON(ctx, p.endpoint, q, &resp); err != nil {
			return out, fmt.Errorf("megaleiloes page %d: %w", page, err)
		}
		if len(resp.Result) == 0 {
			break
		}

		for _, r := range resp.Result {
			out = append(out, models.RawPayload{Source: models.SourceMegaleiloes, Category: cat.Name, Body: r})
		}
		p.logger.Info("[megaleiloes] Page %d: +%d | total %d", page, len(resp.Result), len(out))

		if len(resp.Result) < pageSize {
			break
		}
	}
	return out, nil
}
