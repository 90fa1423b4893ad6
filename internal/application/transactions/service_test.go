package transactions

import (
	"context"
	"testing"

	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Service, *gorm.DB, domain.User, domain.Sukuk) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	user := domain.User{Fullname: "Investor", Email: "investor@example.com", Role: domain.RoleInvestor}
	require.NoError(t, db.Create(&user).Error)

	prop := domain.Property{OwnerID: user.UserID, Title: "Bayview Suites", Valuation: 20000}
	require.NoError(t, db.Create(&prop).Error)
	sukuk := domain.Sukuk{PropertyID: prop.PropertyID, TotalTokens: 500, TokenPrice: 40, Status: domain.SukukStatusActive}
	require.NoError(t, db.Create(&sukuk).Error)

	return &Service{DB: db}, db, user, sukuk
}

func TestListForUser_JoinsPropertyTitle(t *testing.T) {
	svc, db, user, sukuk := setup(t)

	require.NoError(t, db.Create(&domain.TransactionLog{
		Type: domain.TxTypeBuy, UserID: user.UserID, SukukID: sukuk.SukukID,
		Tokens: 10, Amount: 400, TxHash: "0xabc",
	}).Error)
	require.NoError(t, db.Create(&domain.TransactionLog{
		Type: domain.TxTypeProfitPayout, UserID: user.UserID, SukukID: sukuk.SukukID,
		Tokens: 10, Amount: 25, TxHash: "offchain:ref",
	}).Error)

	out, err := svc.ListForUser(context.Background(), user.UserID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, tx := range out {
		assert.Equal(t, "Bayview Suites", tx.PropertyTitle)
	}
}

func TestListForUser_Empty(t *testing.T) {
	svc, _, user, _ := setup(t)
	out, err := svc.ListForUser(context.Background(), user.UserID)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
}

func TestListForSukuk(t *testing.T) {
	svc, db, user, sukuk := setup(t)

	other := domain.User{Fullname: "Other", Email: "other@example.com", Role: domain.RoleInvestor}
	require.NoError(t, db.Create(&other).Error)

	require.NoError(t, db.Create(&domain.TransactionLog{
		Type: domain.TxTypeSell, UserID: user.UserID, SukukID: sukuk.SukukID,
		Tokens: 5, Amount: 200, TxHash: "0xdef",
	}).Error)
	require.NoError(t, db.Create(&domain.TransactionLog{
		Type: domain.TxTypeBuy, UserID: other.UserID, SukukID: sukuk.SukukID,
		Tokens: 5, Amount: 200, TxHash: "0xdef",
	}).Error)

	out, err := svc.ListForSukuk(context.Background(), sukuk.SukukID)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
