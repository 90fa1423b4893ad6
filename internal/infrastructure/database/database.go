package database

import (
	"sukuk-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN. PreferSimpleProtocol disables prepared
// statement caching to avoid 42P05 ("prepared statement already exists")
// when running behind a connection pooler.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all ledger-store models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Property{},
		&domain.Sukuk{},
		&domain.Investment{},
		&domain.TransactionLog{},
		&domain.ProfitDistribution{},
		&domain.Wallet{},
		&domain.ListingUpdateRequest{},
		&domain.PriceHistory{},
		&domain.Notification{},
		&domain.ChainReceipt{},
		&domain.AuditLog{},
	)
}
