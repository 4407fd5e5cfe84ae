package meli

import "github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"

type searchResponse struct {
	Results []itemPayload `json:"results"`
	Paging  struct {
		Total  int `json:"total"`
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
	} `json:"paging"`
}

type itemPayload struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price"`
	CategoryID    string  `json:"category_id"`
	CatalogProductID string `json:"catalog_product_id"`
	Permalink     string  `json:"permalink"`
	Thumbnail     string  `json:"thumbnail"`
	Condition     string  `json:"condition"`
	SoldQuantity  int     `json:"sold_quantity"`
	SellerID      int64   `json:"seller_id"`
	Seller        struct {
		ID int64 `json:"id"`
	} `json:"seller"`
	Shipping struct {
		FreeShipping bool `json:"free_shipping"`
	} `json:"shipping"`
	Attributes []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		ValueName string `json:"value_name"`
	} `json:"attributes"`
	SaleTerms []struct {
		ID        string `json:"id"`
		ValueName string `json:"value_name"`
	} `json:"sale_terms"`
}

type sellerPayload struct {
	ID               int64 `json:"id"`
	SellerReputation struct {
		LevelID     string `json:"level_id"`
		PowerSellerStatus string `json:"power_seller_status"`
	} `json:"seller_reputation"`
}

// SellerReputation is the slice of seller data the curation pipeline cares
// about.
type SellerReputation struct {
	LevelID     string
	PowerStatus string
}

func (p itemPayload) toCandidate() types.Candidate {
	sellerID := p.SellerID
	if sellerID == 0 {
		sellerID = p.Seller.ID
	}
	brand := ""
	attrs := make([]types.CandidateAttribute, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		attrs = append(attrs, types.CandidateAttribute{ID: a.ID, Name: a.Name, ValueName: a.ValueName})
		if a.ID == "BRAND" {
			brand = a.ValueName
		}
	}
	return types.Candidate{
		ExternalID:            p.ID,
		Title:                 p.Title,
		Brand:                 brand,
		Price:                 p.Price,
		OriginalPrice:         p.OriginalPrice,
		SellerID:              sellerID,
		FreeShipping:          p.Shipping.FreeShipping,
		Condition:             p.Condition,
		SoldQuantity:          p.SoldQuantity,
		MarketplaceCategoryID: p.CategoryID,
		CatalogProductID:      p.CatalogProductID,
		Permalink:             p.Permalink,
		ImageURL:              p.Thumbnail,
		Attributes:            attrs,
	}
}
