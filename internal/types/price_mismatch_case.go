package types

import "time"

const (
	MismatchOpen     = "OPEN"
	MismatchResolved = "RESOLVED"

	MismatchSeverityWarn     = "warn"
	MismatchSeverityCritical = "critical"

	MismatchSourceItem    = "item"
	MismatchSourceCatalog = "catalog"
)

// PriceMismatchCase tracks a divergence between the site price and an observed
// marketplace price. Only item-level observations open cases; catalog-level
// drift is recorded but never cascades into cases.
type PriceMismatchCase struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	ProductID uint     `gorm:"index;not null" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	SitePrice   float64 `json:"site_price"`
	MarketPrice float64 `json:"market_price"`
	DeltaAbs    float64 `json:"delta_abs"`
	DeltaPct    float64 `json:"delta_pct"`

	Severity       string     `gorm:"index" json:"severity"`
	Status         string     `gorm:"index;default:'OPEN'" json:"status"`
	Source         string     `gorm:"default:'item'" json:"source"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PriceMismatchCase) TableName() string { return "price_mismatch_cases" }
