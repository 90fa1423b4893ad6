package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChainReceipt pins a confirmed on-chain write to a deterministic idempotency
// key. It is inserted in its own transaction immediately after the chain call
// confirms and marked reconciled by the off-chain transaction that applies
// the matching ledger mutations. A retry that finds an unreconciled receipt
// replays only the off-chain leg instead of re-minting.
type ChainReceipt struct {
	ReceiptID      uuid.UUID `gorm:"column:receipt_id;type:uuid;primaryKey" json:"receipt_id"`
	IdempotencyKey string    `gorm:"column:idempotency_key;type:varchar(64);uniqueIndex;not null" json:"idempotency_key"`
	Operation      string    `gorm:"column:operation;type:varchar(20);not null" json:"operation"`
	SukukID        uuid.UUID `gorm:"column:sukuk_id;type:uuid;not null;index" json:"sukuk_id"`
	TxHash         string    `gorm:"column:tx_hash;type:varchar(128);not null" json:"tx_hash"`
	// Amount is the fiat value the trade was priced at when the chain call
	// confirmed. Replays book this value, not the current token price.
	Amount     float64 `gorm:"column:amount;type:decimal(18,2);not null;default:0" json:"amount"`
	Reconciled bool    `gorm:"column:reconciled;not null;default:false" json:"reconciled"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ChainReceipt) TableName() string {
	return "chain_receipts"
}

func (r *ChainReceipt) BeforeCreate(tx *gorm.DB) error {
	if r.ReceiptID == uuid.Nil {
		r.ReceiptID = uuid.New()
	}
	return nil
}
