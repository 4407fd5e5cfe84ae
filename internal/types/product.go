package types

import (
	"time"

	"gorm.io/datatypes"
)

// Product lifecycle status.
const (
	StatusActive    = "active"
	StatusStandby   = "standby"
	StatusPaused    = "paused"
	StatusDuplicate = "duplicate"
)

// Data health states. A product keeps exactly one; HEALTHY is the steady state.
const (
	HealthHealthy      = "HEALTHY"
	HealthSuspectPrice = "SUSPECT_PRICE"
	HealthInvalidSource = "INVALID_SOURCE"
	HealthDuplicate    = "DUPLICATE"
	HealthAPIMissing   = "API_MISSING"
	HealthScrapeFailed = "SCRAPE_FAILED"
	HealthNeedsReview  = "NEEDS_REVIEW"
	HealthBrokenOffer  = "BROKEN_OFFER_URL"
)

// Price observation sources, from most to least authoritative.
const (
	SourceManual  = "manual"
	SourceAuth    = "auth"
	SourcePublic  = "public"
	SourceAPIBase = "api_base"
	SourceAPIPix  = "api_pix"
	SourceAPI     = "api"
	SourceAPIAuth = "api_auth"
	SourceCatalog = "catalog"
	SourceScraper = "scraper"
	SourceHistory = "history"
)

type Product struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ExternalID   string `gorm:"uniqueIndex;not null" json:"external_id"`
	CanonicalKey string `gorm:"index" json:"canonical_key"`
	Permalink    string `json:"permalink"`

	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url"`
	Images      datatypes.JSON `gorm:"type:jsonb" json:"images,omitempty"`
	Brand       string         `gorm:"index" json:"brand"`

	Price                   float64    `json:"price"`
	OriginalPrice           float64    `json:"original_price"`
	PixPrice                float64    `json:"pix_price"`
	PixPriceSource          string     `json:"pix_price_source"`
	PixPriceCheckedAt       *time.Time `json:"pix_price_checked_at,omitempty"`
	PreviousPrice           float64    `json:"previous_price"`
	PreviousPriceSource     string     `json:"previous_price_source"`
	PreviousPriceDetectedAt *time.Time `json:"previous_price_detected_at,omitempty"`
	PreviousPriceExpiresAt  *time.Time `json:"previous_price_expires_at,omitempty"`
	LastPriceSource         string     `json:"last_price_source"`
	ScraperPromoFlag        bool       `json:"scraper_promo_flag"`

	Status             string `gorm:"index;default:'standby'" json:"status"`
	IsActive           bool   `gorm:"index;default:false" json:"is_active"`
	DataHealthStatus   string `gorm:"index;default:'HEALTHY'" json:"data_health_status"`
	DeactivationReason string `json:"deactivation_reason,omitempty"`

	AffiliateLink     string `json:"affiliate_link"`
	AffiliateVerified bool   `gorm:"default:false" json:"affiliate_verified"`

	CategorySlug          string `gorm:"index;not null" json:"category_slug"`
	MarketplaceCategoryID string `json:"marketplace_category_id"`
	MarketplaceItemID     string `gorm:"index" json:"marketplace_item_id"`

	Featured       bool           `gorm:"default:false" json:"featured"`
	ManualOverride bool           `gorm:"default:false" json:"manual_override"`
	Badges         datatypes.JSON `gorm:"type:jsonb" json:"badges,omitempty"`
	QualityIssues  datatypes.JSON `gorm:"type:jsonb" json:"quality_issues,omitempty"`

	PopularityScore  float64 `json:"popularity_score"`
	CostBenefitScore float64 `json:"cost_benefit_score"`
	RelevanceScore   float64 `json:"relevance_score"`
	Elite            bool    `gorm:"default:false" json:"elite"`

	MonitorCount       int `gorm:"default:0" json:"monitor_count"`
	ClickCount         int `gorm:"default:0" json:"click_count"`
	FailCount          int `gorm:"default:0" json:"fail_count"`
	SuspectPriceCycles int `gorm:"default:0" json:"suspect_price_cycles"`

	FreeShipping        bool       `gorm:"default:false" json:"free_shipping"`
	SoldQuantity        int        `json:"sold_quantity"`
	LastSyncedAt        *time.Time `json:"last_synced_at,omitempty"`
	LastPriceVerifiedAt *time.Time `json:"last_price_verified_at,omitempty"`
	LastAuditedAt       *time.Time `json:"last_audited_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// TrustedPriceSources are observation origins authoritative enough that a
// disagreeing scrape is dismissed instead of trusted.
var TrustedPriceSources = map[string]bool{
	SourceManual:  true,
	SourceAuth:    true,
	SourcePublic:  true,
	SourceAPIBase: true,
	SourceAPIPix:  true,
	SourceAPI:     true,
	SourceAPIAuth: true,
}

func IsTrustedPriceSource(source string) bool {
	return TrustedPriceSources[source]
}

// APIPriceSources are marketplace-fed origins; a fresh item read supersedes
// them. Manually curated and site-sourced prices are never overwritten by a
// marketplace sync, only audited against it.
var APIPriceSources = map[string]bool{
	SourceAPIBase: true,
	SourceAPIPix:  true,
	SourceAPI:     true,
	SourceAPIAuth: true,
}

func IsAPIPriceSource(source string) bool {
	return APIPriceSources[source]
}

// Curated reports whether the product is protected from automatic demotion:
// human curation is never silently overwritten.
func (p *Product) Curated() bool {
	return p.Featured || p.ManualOverride || (p.AffiliateVerified && p.AffiliateLink != "")
}
