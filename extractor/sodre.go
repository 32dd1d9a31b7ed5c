package extractor

import (
	"encoding/json"
	"fmt"
	"time"

	"leilao-scraper/models"
)

const sodreLotURL = "https://leilao.sodresantoro.com.br/leilao/%s/lote/%s/"

// sodreLot mirrors one entry of the search-lots "results" array.
// Monetary fields are integer cents.
type sodreLot struct {
	LotID          flexString `json:"lot_id"`
	LotTitle       flexString `json:"lot_title"`
	LotCategory    flexString `json:"lot_category"`
	LotDescription flexString `json:"lot_description"`
	LotStatus      flexString `json:"lot_status"`
	LotNumber      flexString `json:"lot_number"`
	LotVisits      flexFloat  `json:"lot_visits"`
	LotLocation    flexString `json:"lot_location"`
	LotDateEnd     flexString `json:"lot_date_end"`
	LotPictures    flexList   `json:"lot_pictures"`

	BidActual  flexFloat `json:"bid_actual"`
	BidInitial flexFloat `json:"bid_initial"`

	AuctionID   flexString `json:"auction_id"`
	AuctionName flexString `json:"auction_name"`
	AuctionType flexString `json:"auction_type"`
	StoreName   optString  `json:"store_name"`

	LotBrand flexString `json:"lot_brand"`
	LotModel flexString `json:"lot_model"`
	LotYear  flexString `json:"lot_year"`
	LotPlate flexString `json:"lot_plate"`
}

// Sodre extracts a Sodré Santoro search-lots entry.
func Sodre(p models.RawPayload, cat models.Category, now time.Time) models.ExtractResult {
	var lot sodreLot
	if err := json.Unmarshal(p.Body, &lot); err != nil {
		return models.Fail(models.ErrMalformed)
	}

	// "materiais" mixes every kind of goods
	if !IsRelevant(cat.Keywords, lot.LotTitle.String(), lot.LotCategory.String()) {
		return models.Skip(models.SkipIrrelevant)
	}

	l := base(models.SourceSodre, lot.LotID.String(), lot.LotTitle.String())

	cents, ok := lot.BidActual.Value, lot.BidActual.Valid && lot.BidActual.Value > 0
	if !ok {
		cents, ok = lot.BidInitial.Value, lot.BidInitial.Valid
	}
	if ok {
		l.Value = PositiveValue(CentsToReais(cents), true)
	}

	l.City, l.State = ParseLocation(lot.LotLocation.String())
	l.Address = StringPtr(lot.LotLocation.String())
	l.AuctionDate = ParseDate(lot.LotDateEnd.String())
	if t := lot.AuctionType.String(); t != "" {
		l.AuctionType = t
	}
	l.AuctionName = StringPtr(lot.AuctionName.String())
	// a null seller is reported as blank so the no-store rule still applies
	if lot.StoreName.Set {
		s := lot.StoreName.Value
		l.StoreName = &s
	}
	l.LotNumber = StringPtr(lot.LotNumber.String())
	l.TotalVisits = lot.LotVisits.Int()
	l.Description = StringPtr(lot.LotDescription.String())
	if l.Description != nil {
		l.DescriptionPreview = StringPtr(Truncate(*l.Description, maxPreviewLen))
	}
	if lot.AuctionID != "" && lot.LotID != "" {
		l.Link = StringPtr(fmt.Sprintf(sodreLotURL, lot.AuctionID, lot.LotID))
	}

	setIfPresent(l.Metadata, "brand", lot.LotBrand)
	setIfPresent(l.Metadata, "model", lot.LotModel)
	setIfPresent(l.Metadata, "year", lot.LotYear)
	setIfPresent(l.Metadata, "plate", lot.LotPlate)
	setIfPresent(l.Metadata, "status", lot.LotStatus)
	setIfPresent(l.Metadata, "category", lot.LotCategory)
	if len(lot.LotPictures) > 0 {
		l.Metadata["images"] = []any(lot.LotPictures)
	}

	return finish(l, now)
}
