package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ApplyPending = "PENDING"
	ApplyApplied = "APPLIED"
	ApplyInvalid = "INVALID"
	ApplySkipped = "SKIPPED"
)

// ValidationBatch groups listings submitted for human affiliate-link
// validation. The reconciler only consumes the outcome (verified flag /
// broken-offer health); producing batches is link-tooling territory.
type ValidationBatch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Status    string    `gorm:"default:'open'" json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []ValidationItem `gorm:"foreignKey:BatchID" json:"items,omitempty"`
}

func (ValidationBatch) TableName() string { return "validation_batches" }

type ValidationItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BatchID      uuid.UUID `gorm:"type:uuid;index;not null" json:"batch_id"`
	ProductID    uint      `gorm:"index;not null" json:"product_id"`
	ProposedLink string    `json:"proposed_link"`
	ApplyStatus  string    `gorm:"index;default:'PENDING'" json:"apply_status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (ValidationItem) TableName() string { return "validation_items" }
