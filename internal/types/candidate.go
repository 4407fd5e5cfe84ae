package types

// Candidate is an ephemeral marketplace listing produced by candidate
// acquisition. It is never persisted directly; the ingestion pipeline turns
// surviving candidates into Products.
type Candidate struct {
	ExternalID            string
	Title                 string
	Brand                 string
	Price                 float64
	OriginalPrice         float64
	PixPrice              float64
	PixPriceSource        string
	SellerID              int64
	SellerLevelID         string
	SellerPowerStatus     string
	FreeShipping          bool
	Condition             string
	SoldQuantity          int
	MarketplaceCategoryID string
	CatalogProductID      string
	Permalink             string
	ImageURL              string
	Description           string
	Attributes            []CandidateAttribute
}

type CandidateAttribute struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ValueName string `json:"value_name"`
}

// SearchText joins the fields the relevance gate scores over.
func (c Candidate) SearchText() string {
	text := c.Title
	if c.Brand != "" {
		text += " " + c.Brand
	}
	for _, attr := range c.Attributes {
		if attr.ValueName != "" {
			text += " " + attr.ValueName
		}
	}
	return text
}
