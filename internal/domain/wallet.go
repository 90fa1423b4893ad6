package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallet maps a user to an on-chain address. The unique index on address
// makes an address belong to at most one user; is_primary selects the wallet
// the platform sends to and from.
type Wallet struct {
	WalletID  uuid.UUID `gorm:"column:wallet_id;type:uuid;primaryKey" json:"wallet_id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Address   string    `gorm:"column:address;type:varchar(42);uniqueIndex;not null" json:"address"`
	IsPrimary bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.WalletID == uuid.Nil {
		w.WalletID = uuid.New()
	}
	return nil
}
