package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sukuk statuses. A sukuk moves draft -> active exactly once, when the
// initial supply is minted on-chain.
const (
	SukukStatusDraft  = "draft"
	SukukStatusActive = "active"
)

// Sukuk is the tokenized offering record for one property. The unique index
// on property_id enforces the one-active-sukuk-per-property relation.
// available_tokens tracks the owner's unsold inventory and always satisfies
// 0 <= available_tokens <= total_tokens.
type Sukuk struct {
	SukukID         uuid.UUID `gorm:"column:sukuk_id;type:uuid;primaryKey" json:"sukuk_id"`
	PropertyID      uuid.UUID `gorm:"column:property_id;type:uuid;uniqueIndex;not null" json:"property_id"`
	TotalTokens     int64     `gorm:"column:total_tokens;not null;default:0" json:"total_tokens"`
	AvailableTokens int64     `gorm:"column:available_tokens;not null;default:0" json:"available_tokens"`
	TokenPrice      float64   `gorm:"column:token_price;type:decimal(18,2);not null;default:0" json:"token_price"`
	Status          string    `gorm:"column:status;type:varchar(20);not null;default:'draft'" json:"status"`
	BlockchainHash  *string   `gorm:"column:blockchain_hash;type:varchar(128)" json:"blockchain_hash"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Sukuk) TableName() string {
	return "sukuks"
}

func (s *Sukuk) BeforeCreate(tx *gorm.DB) error {
	if s.SukukID == uuid.Nil {
		s.SukukID = uuid.New()
	}
	return nil
}
