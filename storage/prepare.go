package storage

import (
	"strings"
	"time"

	"leilao-scraper/extractor"
	"leilao-scraper/models"
)

const (
	defaultTitle = "Sem título"
	maxTitle     = 255
	maxPreview   = 255
)

// prepare copies listings into their upload form. Records without a source or
// external_id cannot be keyed and are counted as skipped.
func prepare(listings []*models.Listing, now time.Time) ([]*models.Listing, int) {
	ready := make([]*models.Listing, 0, len(listings))
	skipped := 0
	stamp := now.UTC()

	for _, l := range listings {
		if l == nil || l.Source == "" || strings.TrimSpace(l.ExternalID) == "" {
			skipped++
			continue
		}
		c := *l

		c.Title = strings.TrimSpace(c.Title)
		if c.Title == "" {
			c.Title = defaultTitle
		}
		c.Title = extractor.Truncate(c.Title, maxTitle)
		if c.DescriptionPreview != nil {
			p := extractor.Truncate(*c.DescriptionPreview, maxPreview)
			c.DescriptionPreview = &p
		}
		// city and state are kept or dropped together
		if c.State != nil {
			if c.State = extractor.ValidState(*c.State); c.State == nil {
				c.City = nil
			}
		}
		if c.Value != nil && *c.Value <= 0 {
			c.Value = nil
			c.ValueText = nil
		}
		if c.Metadata == nil {
			c.Metadata = map[string]any{}
		}
		c.IsActive = true
		c.LastScrapedAt = &stamp

		ready = append(ready, &c)
	}
	return ready, skipped
}
