package extractor

import (
	"encoding/json"
	"time"

	"leilao-scraper/models"
)

const superbidOfferURL = "https://exchange.superbid.net/oferta/"

type superbidOffer struct {
	ID            flexString `json:"id"`
	EndDate       flexString `json:"endDate"`
	LotNumber     flexString `json:"lotNumber"`
	Visits        flexFloat  `json:"visits"`
	TotalBids     flexFloat  `json:"totalBids"`
	TotalBidders  flexFloat  `json:"totalBidders"`
	QuantityInLot flexFloat  `json:"quantityInLot"`

	Product struct {
		ShortDesc     flexString `json:"shortDesc"`
		VideoURLCount flexFloat  `json:"videoUrlCount"`
		GalleryJSON   flexList   `json:"galleryJson"`
	} `json:"product"`

	OfferDescription struct {
		OfferDescription flexString `json:"offerDescription"`
	} `json:"offerDescription"`

	OfferDetail struct {
		CurrentMinBid   flexFloat `json:"currentMinBid"`
		InitialBidValue flexFloat `json:"initialBidValue"`
		CurrentMaxBid   flexFloat `json:"currentMaxBid"`
	} `json:"offerDetail"`

	Auction struct {
		ModalityDesc flexString `json:"modalityDesc"`
		Desc         flexString `json:"desc"`
		Auctioneer   flexString `json:"auctioneer"`
	} `json:"auction"`

	Seller struct {
		Name    flexString `json:"name"`
		Company flexString `json:"company"`
		City    flexString `json:"city"`
	} `json:"seller"`

	Store struct {
		Name flexString `json:"name"`
	} `json:"store"`
}

// Superbid extracts an offer from the offer-query API. Superbid always
// carries a store, so a missing store name is reported as blank.
func Superbid(p models.RawPayload, _ models.Category, now time.Time) models.ExtractResult {
	var o superbidOffer
	if err := json.Unmarshal(p.Body, &o); err != nil {
		return models.Fail(models.ErrMalformed)
	}

	title := o.Product.ShortDesc.String()
	l := base(models.SourceSuperbid, o.ID.String(), title)

	bid := o.OfferDetail.CurrentMinBid
	if !bid.Valid || bid.Value <= 0 {
		bid = o.OfferDetail.InitialBidValue
	}
	l.Value = PositiveValue(bid.Value, bid.Valid)

	l.City, l.State = ParseLocation(o.Seller.City.String())
	l.Address = StringPtr(o.Seller.City.String())
	l.AuctionDate = ParseDate(o.EndDate.String())
	if t := o.Auction.ModalityDesc.String(); t != "" {
		l.AuctionType = t
	}
	l.AuctionName = StringPtr(o.Auction.Desc.String())
	store := o.Store.Name.String()
	l.StoreName = &store
	l.LotNumber = StringPtr(o.LotNumber.String())
	l.TotalVisits = o.Visits.Int()
	l.TotalBids = o.TotalBids.Int()
	l.TotalBidders = o.TotalBidders.Int()

	l.Description = StringPtr(o.OfferDescription.OfferDescription.String())
	if l.Description != nil {
		l.DescriptionPreview = StringPtr(Truncate(*l.Description, maxPreviewLen))
	} else {
		l.DescriptionPreview = StringPtr(Truncate(title, 150))
	}
	if o.ID != "" {
		l.Link = StringPtr(superbidOfferURL + o.ID.String())
	}

	photos := 0
	for _, g := range o.Product.GalleryJSON {
		if entry, ok := g.(map[string]any); ok {
			if link, _ := entry["link"].(string); link != "" {
				photos++
			}
		}
	}
	setIfPresent(l.Metadata, "leiloeiro", o.Auction.Auctioneer)
	if o.QuantityInLot.Valid {
		l.Metadata["quantidade_lote"] = o.QuantityInLot.Int()
	}
	l.Metadata["vendedor"] = map[string]any{
		"nome":    o.Seller.Name.String(),
		"empresa": o.Seller.Company.String(),
	}
	l.Metadata["preco_detalhado"] = map[string]any{
		"inicial":      nullable(o.OfferDetail.InitialBidValue),
		"lance_minimo": nullable(o.OfferDetail.CurrentMinBid),
		"lance_maximo": nullable(o.OfferDetail.CurrentMaxBid),
	}
	l.Metadata["midia"] = map[string]any{
		"total_fotos":  photos,
		"total_videos": o.Product.VideoURLCount.Int(),
	}
	setIfPresent(l.Metadata, "category", p.Category)

	return finish(l, now)
}

func nullable(f flexFloat) any {
	if !f.Valid {
		return nil
	}
	return f.Value
}
