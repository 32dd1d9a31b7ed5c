// Package superbid fetches open offers from Superbid's offer-query API.
package superbid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"leilao-scraper/models"
	"leilao-scraper/scraper"
	"leilao-scraper/utils"
)

const (
	HomeURL     = "https://www.superbid.net"
	exchangeURL = "https://exchange.superbid.net"
	offersURL   = "https://offer-query.superbid.net/seo/offers/"
	pageSize    = 100

	// a page shorter than this is the last one
	minFullPage = 10
)

type offersResponse struct {
	Offers []json.RawMessage `json:"offers"`
}

type Provider struct {
	session       *scraper.Session
	logger        *utils.Logger
	endpoint      string
	maxPages      int
	categoryDelay time.Duration
}

func New(session *scraper.Session, logger *utils.Logger, maxPages int) *Provider {
	return &Provider{
		session:       session,
		logger:        logger,
		endpoint:      offersURL,
		maxPages:      maxPages,
		categoryDelay: 10 * time.Second,
	}
}

// WithEndpoint points the provider at another offer-query URL.
func (p *Provider) WithEndpoint(u string) *Provider {
	p.endpoint = u
	return p
}

// WithCategoryDelay sets the pause between category slugs.
func (p *Provider) WithCategoryDelay(d time.Duration) *Provider {
	p.categoryDelay = d
	return p
}

func (p *Provider) Source() models.Source { return models.SourceSuperbid }

// Fetch paginates every slug of the category independently. A slug that
// exhausts its retry budget is abandoned and the next slug is still fetched.
func (p *Provider) Fetch(ctx context.Context, cat models.Category) ([]models.RawPayload, error) {
	var (
		out  []models.RawPayload
		errs []error
	)

	for i, slug := range cat.SuperbidSlugs {
		if i > 0 {
			if err := utils.Pause(ctx, p.categoryDelay); err != nil {
				return out, errors.Join(append(errs, err)...)
			}
		}

		got, err := p.fetchSlug(ctx, slug)
		out = append(out, got...)
		if err != nil {
			p.logger.Error("[superbid] %s: %v", slug, err)
			errs = append(errs, err)
		}
		p.logger.Info("[superbid] %s: %d offers", slug, len(got))
	}
	return out, errors.Join(errs...)
}

func (p *Provider) fetchSlug(ctx context.Context, slug string) ([]models.RawPayload, error) {
	var out []models.RawPayload

	for page := 1; page <= p.maxPages; page++ {
		var resp offersResponse
		err := p.session.GetJSON(ctx, p.endpoint, query(slug, page), &resp)
		if errors.Is(err, scraper.ErrNotFound) {
			p.logger.Debug("[superbid] %s: page %d returned 404, done", slug, page)
			break
		}
		if err != nil {
			return out, fmt.Errorf("superbid %s page %d: %w", slug, page, err)
		}
		if len(resp.Offers) == 0 {
			break
		}

		for _, o := range resp.Offers {
			out = append(out, models.RawPayload{Source: models.SourceSuperbid, Category: slug, Body: o})
		}

		if len(resp.Offers) < minFullPage {
			break
		}
	}
	return out, nil
}

func query(slug string, page int) url.Values {
	q := url.Values{}
	q.Set("urlSeo", exchangeURL+"/categorias/"+slug)
	q.Set("locale", "pt_BR")
	q.Set("orderBy", "offerDetail.percentDiffReservedPriceOverFipePrice:asc")
	q.Set("pageNumber", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("portalId", "[2,15]")
	q.Set("preOrderBy", "orderByFirstOpenedOffersAndSecondHasPhoto")
	q.Set("requestOrigin", "marketplace")
	q.Set("searchType", "openedAll")
	q.Set("timeZoneId", "America/Sao_Paulo")
	return q
}
