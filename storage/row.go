package storage

import (
	"time"

	"leilao-scraper/models"
)

// row is the column layout of a listings table. Every key is always present
// so a bulk upsert sends objects with identical shapes.
type row struct {
	Source             string         `json:"source"`
	ExternalID         string         `json:"external_id"`
	Title              string         `json:"title"`
	NormalizedTitle    string         `json:"normalized_title"`
	Value              *float64       `json:"value"`
	ValueText          *string        `json:"value_text"`
	City               *string        `json:"city"`
	State              *string        `json:"state"`
	Address            *string        `json:"address"`
	AuctionDate        *time.Time     `json:"auction_date"`
	DaysRemaining      *int           `json:"days_remaining"`
	AuctionType        string         `json:"auction_type"`
	AuctionName        *string        `json:"auction_name"`
	StoreName          *string        `json:"store_name"`
	LotNumber          *string        `json:"lot_number"`
	Description        *string        `json:"description"`
	DescriptionPreview *string        `json:"description_preview"`
	TotalVisits        int            `json:"total_visits"`
	TotalBids          int            `json:"total_bids"`
	TotalBidders       int            `json:"total_bidders"`
	Link               *string        `json:"link"`
	Metadata           map[string]any `json:"metadata"`
	IsActive           bool           `json:"is_active"`
	LastScrapedAt      *time.Time     `json:"last_scraped_at"`
}

// columns lists row's fields in the order values() returns them.
var columns = []string{
	"source", "external_id", "title", "normalized_title", "value", "value_text",
	"city", "state", "address", "auction_date", "days_remaining", "auction_type",
	"auction_name", "store_name", "lot_number", "description", "description_preview",
	"total_visits", "total_bids", "total_bidders", "link", "metadata", "is_active",
	"last_scraped_at",
}

func toRow(l *models.Listing) row {
	return row{
		Source:             string(l.Source),
		ExternalID:         l.ExternalID,
		Title:              l.Title,
		NormalizedTitle:    l.NormalizedTitle,
		Value:              l.Value,
		ValueText:          l.ValueText,
		City:               l.City,
		State:              l.State,
		Address:            l.Address,
		AuctionDate:        l.AuctionDate,
		DaysRemaining:      l.DaysRemaining,
		AuctionType:        l.AuctionType,
		AuctionName:        l.AuctionName,
		StoreName:          l.StoreName,
		LotNumber:          l.LotNumber,
		Description:        l.Description,
		DescriptionPreview: l.DescriptionPreview,
		TotalVisits:        l.TotalVisits,
		TotalBids:          l.TotalBids,
		TotalBidders:       l.TotalBidders,
		Link:               l.Link,
		Metadata:           l.Metadata,
		IsActive:           l.IsActive,
		LastScrapedAt:      l.LastScrapedAt,
	}
}

func toRows(listings []*models.Listing) []row {
	out := make([]row, len(listings))
	for i, l := range listings {
		out[i] = toRow(l)
	}
	return out
}
