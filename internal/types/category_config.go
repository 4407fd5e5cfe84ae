package types

import (
	"time"

	"gorm.io/datatypes"
)

// CategoryConfig holds the per-category capacity and replacement knobs read by
// the allocator at the start of each curation run.
type CategoryConfig struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Search query sent to the marketplace for this category; defaults to the
	// slug when empty.
	SearchQuery string `json:"search_query"`

	MaxActive    int `gorm:"default:30" json:"max_active"`
	MaxStandby   int `gorm:"default:60" json:"max_standby"`
	MaxNewPerDay int `gorm:"default:10" json:"max_new_per_day"`

	// Basis points of score: 500 means a challenger needs +5.0 points over the
	// weakest incumbent before a replacement is considered.
	MinScoreDeltaToReplace int `gorm:"default:500" json:"min_score_delta_to_replace"`

	KnownBrands  datatypes.JSON `gorm:"type:jsonb" json:"known_brands,omitempty"`
	EliteMinSold int            `gorm:"default:200" json:"elite_min_sold"`
	EliteMaxPrice float64       `gorm:"default:500" json:"elite_max_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CategoryConfig) TableName() string { return "category_configs" }
