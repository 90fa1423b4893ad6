package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Investment is an ownership position: one row per (investor, sukuk).
// Rows are created on first acquisition and incremented/decremented after
// that; a zero balance is valid and the row is never deleted.
// purchase_value accumulates at acquisition price and is never recomputed.
type Investment struct {
	InvestmentID  uuid.UUID `gorm:"column:investment_id;type:uuid;primaryKey" json:"investment_id"`
	InvestorID    uuid.UUID `gorm:"column:investor_id;type:uuid;not null;uniqueIndex:idx_investor_sukuk" json:"investor_id"`
	SukukID       uuid.UUID `gorm:"column:sukuk_id;type:uuid;not null;uniqueIndex:idx_investor_sukuk" json:"sukuk_id"`
	TokensOwned   int64     `gorm:"column:tokens_owned;not null;default:0" json:"tokens_owned"`
	PurchaseValue float64   `gorm:"column:purchase_value;type:decimal(18,2);not null;default:0" json:"purchase_value"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Investment) TableName() string {
	return "investments"
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.InvestmentID == uuid.Nil {
		i.InvestmentID = uuid.New()
	}
	return nil
}
