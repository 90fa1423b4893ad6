package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionLog types.
const (
	TxTypeBuy          = "buy"
	TxTypeSell         = "sell"
	TxTypeTransfer     = "transfer"
	TxTypeProfitPayout = "profit_payout"
)

// TransactionLog is the append-only record of every balance-affecting event.
// TxHash carries the confirmed chain reference, or a synthetic
// "offchain:<uuid>" reference for fiat-only events. Rows are never updated.
type TransactionLog struct {
	LogID      uuid.UUID `gorm:"column:log_id;type:uuid;primaryKey" json:"log_id"`
	Type       string    `gorm:"column:type;type:varchar(20);not null" json:"type"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	SukukID    uuid.UUID `gorm:"column:sukuk_id;type:uuid;not null;index" json:"sukuk_id"`
	Tokens     int64     `gorm:"column:tokens;not null" json:"tokens"`
	Amount     float64   `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	TxHash     string    `gorm:"column:tx_hash;type:varchar(128);not null" json:"tx_hash"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TransactionLog) TableName() string {
	return "transaction_logs"
}

func (t *TransactionLog) BeforeCreate(tx *gorm.DB) error {
	if t.LogID == uuid.Nil {
		t.LogID = uuid.New()
	}
	return nil
}
