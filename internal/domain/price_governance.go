package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingUpdateRequest statuses. pending is the only non-terminal state.
const (
	UpdateStatusPending  = "pending"
	UpdateStatusApproved = "approved"
	UpdateStatusRejected = "rejected"
)

// ListingUpdateRequest captures a proposed valuation/token-price change as an
// immutable snapshot of old and new values. Only a regulator may move it out
// of pending, and decided requests are never re-opened.
type ListingUpdateRequest struct {
	RequestID     uuid.UUID  `gorm:"column:request_id;type:uuid;primaryKey" json:"request_id"`
	PropertyID    uuid.UUID  `gorm:"column:property_id;type:uuid;not null;index" json:"property_id"`
	SukukID       uuid.UUID  `gorm:"column:sukuk_id;type:uuid;not null;index" json:"sukuk_id"`
	RequestedBy   uuid.UUID  `gorm:"column:requested_by;type:uuid;not null" json:"requested_by"`
	OldValuation  float64    `gorm:"column:old_valuation;type:decimal(18,2);not null" json:"old_valuation"`
	NewValuation  float64    `gorm:"column:new_valuation;type:decimal(18,2);not null" json:"new_valuation"`
	OldTokenPrice float64    `gorm:"column:old_token_price;type:decimal(18,2);not null" json:"old_token_price"`
	NewTokenPrice float64    `gorm:"column:new_token_price;type:decimal(18,2);not null" json:"new_token_price"`
	Status        string     `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	ReviewedBy    *uuid.UUID `gorm:"column:reviewed_by;type:uuid" json:"reviewed_by"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at" json:"reviewed_at"`
	Reason        *string    `gorm:"column:reason;type:varchar(500)" json:"reason"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (ListingUpdateRequest) TableName() string {
	return "listing_update_requests"
}

func (r *ListingUpdateRequest) BeforeCreate(tx *gorm.DB) error {
	if r.RequestID == uuid.Nil {
		r.RequestID = uuid.New()
	}
	return nil
}

// PriceHistory is an append-only snapshot written when a price update is
// approved.
type PriceHistory struct {
	HistoryID  uuid.UUID `gorm:"column:history_id;type:uuid;primaryKey" json:"history_id"`
	SukukID    uuid.UUID `gorm:"column:sukuk_id;type:uuid;not null;index" json:"sukuk_id"`
	Valuation  float64   `gorm:"column:valuation;type:decimal(18,2);not null" json:"valuation"`
	TokenPrice float64   `gorm:"column:token_price;type:decimal(18,2);not null" json:"token_price"`
	RequestID  uuid.UUID `gorm:"column:request_id;type:uuid;not null" json:"request_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (PriceHistory) TableName() string {
	return "price_histories"
}

func (p *PriceHistory) BeforeCreate(tx *gorm.DB) error {
	if p.HistoryID == uuid.Nil {
		p.HistoryID = uuid.New()
	}
	return nil
}
