package types

import "time"

// OfferHistory records every price observation for an (marketplace, external
// id) pair. Ingestion and sync upsert the latest row and append here.
type OfferHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Marketplace string    `gorm:"index:idx_offer_ext,priority:1;not null" json:"marketplace"`
	ExternalID  string    `gorm:"index:idx_offer_ext,priority:2;not null" json:"external_id"`
	ProductID   uint      `gorm:"index" json:"product_id"`
	Price       float64   `json:"price"`
	PixPrice    float64   `json:"pix_price"`
	Source      string    `json:"source"`
	ObservedAt  time.Time `gorm:"index" json:"observed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (OfferHistory) TableName() string { return "offer_history" }
