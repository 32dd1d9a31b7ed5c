package extractor

import (
	"encoding/json"
	"strings"
	"time"

	"leilao-scraper/models"
)

const megaleiloesBase = "https://www.megaleiloes.com.br"

type megaProduct struct {
	ID          flexString `json:"id"`
	Name        flexString `json:"name"`
	Description flexString `json:"description"`
	Value       flexFloat  `json:"value"`
	URL         flexString `json:"url"`
	Lot         flexString `json:"lot"`
	TotalVisits flexFloat  `json:"totalVisits"`
	Category    any        `json:"category"`
	Images      flexList   `json:"images"`

	Location struct {
		City    flexString `json:"city"`
		State   flexString `json:"state"`
		Address flexString `json:"address"`
	} `json:"location"`

	Auction struct {
		Date flexString `json:"date"`
		Type flexString `json:"type"`
		Name flexString `json:"name"`
	} `json:"auction"`

	Store *struct {
		Name flexString `json:"name"`
	} `json:"store"`

	Vehicle *struct {
		Brand flexString `json:"brand"`
		Model flexString `json:"model"`
		Year  flexString `json:"year"`
		Plate flexString `json:"plate"`
	} `json:"vehicle"`
}

// Megaleiloes extracts a product from the Megaleilões search API. Values are
// already in reais.
func Megaleiloes(p models.RawPayload, _ models.Category, now time.Time) models.ExtractResult {
	var prod megaProduct
	if err := json.Unmarshal(p.Body, &prod); err != nil {
		return models.Fail(models.ErrMalformed)
	}

	l := base(models.SourceMegaleiloes, prod.ID.String(), prod.Name.String())

	l.Value = PositiveValue(prod.Value.Value, prod.Value.Valid)
	l.City, l.State = CityState(prod.Location.City.String(), prod.Location.State.String())
	l.Address = StringPtr(prod.Location.Address.String())
	l.AuctionDate = ParseDate(prod.Auction.Date.String())
	if t := prod.Auction.Type.String(); t != "" {
		l.AuctionType = t
	}
	l.AuctionName = StringPtr(prod.Auction.Name.String())
	if prod.Store != nil {
		s := prod.Store.Name.String()
		l.StoreName = &s
	}
	l.LotNumber = StringPtr(prod.Lot.String())
	l.TotalVisits = prod.TotalVisits.Int()
	l.Description = StringPtr(prod.Description.String())
	if l.Description != nil {
		l.DescriptionPreview = StringPtr(Truncate(*l.Description, maxPreviewLen))
	}
	l.Link = megaLink(prod.URL.String(), prod.ID.String())

	if v := prod.Vehicle; v != nil {
		setIfPresent(l.Metadata, "brand", v.Brand)
		setIfPresent(l.Metadata, "model", v.Model)
		setIfPresent(l.Metadata, "year", v.Year)
		setIfPresent(l.Metadata, "plate", v.Plate)
	}
	setIfPresent(l.Metadata, "category", prod.Category)
	if len(prod.Images) > 0 {
		l.Metadata["images"] = []any(prod.Images)
	}

	return finish(l, now)
}

func megaLink(raw, id string) *string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return &raw
	case strings.HasPrefix(raw, "/"):
		return StringPtr(megaleiloesBase + raw)
	case id != "":
		return StringPtr(megaleiloesBase + "/" + id)
	}
	return nil
}
