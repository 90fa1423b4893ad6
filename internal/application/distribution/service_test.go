package distribution

import (
	"context"
	"testing"

	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/infrastructure/database"
	"sukuk-backend/internal/notifications"
	"sukuk-backend/internal/pkg/apperrors"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc       *Service
	db        *gorm.DB
	owner     domain.User
	investorA domain.User
	investorB domain.User
	prop      domain.Property
	sukuk     domain.Sukuk
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	f := &fixture{db: db}
	f.svc = &Service{DB: db, Notifier: &notifications.Notifier{}}

	f.owner = domain.User{Fullname: "Owner", Email: "owner@example.com", Role: domain.RoleOwner}
	f.investorA = domain.User{Fullname: "Investor A", Email: "a@example.com", Role: domain.RoleInvestor}
	f.investorB = domain.User{Fullname: "Investor B", Email: "b@example.com", Role: domain.RoleInvestor}
	require.NoError(t, db.Create(&f.owner).Error)
	require.NoError(t, db.Create(&f.investorA).Error)
	require.NoError(t, db.Create(&f.investorB).Error)

	f.prop = domain.Property{OwnerID: f.owner.UserID, Title: "Palm Residences", Valuation: 100000}
	require.NoError(t, db.Create(&f.prop).Error)
	f.sukuk = domain.Sukuk{
		PropertyID:      f.prop.PropertyID,
		TotalTokens:     1000,
		AvailableTokens: 600,
		TokenPrice:      100,
		Status:          domain.SukukStatusActive,
	}
	require.NoError(t, db.Create(&f.sukuk).Error)
	return f
}

func (f *fixture) hold(t *testing.T, userID uuid.UUID, tokens int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&domain.Investment{
		InvestorID:  userID,
		SukukID:     f.sukuk.SukukID,
		TokensOwned: tokens,
	}).Error)
}

func TestDistribute_ProRata(t *testing.T) {
	f := setup(t)
	f.hold(t, f.investorA.UserID, 100)
	f.hold(t, f.investorB.UserID, 300)

	result, err := f.svc.Distribute(context.Background(), f.prop.PropertyID, 1000, nil, nil, f.owner.UserID)
	require.NoError(t, err)
	require.Len(t, result.Payouts, 2)
	assert.Equal(t, int64(400), result.TotalTokens)

	byInvestor := map[uuid.UUID]float64{}
	for _, p := range result.Payouts {
		byInvestor[p.InvestorID] = p.Amount
	}
	assert.Equal(t, float64(250), byInvestor[f.investorA.UserID])
	assert.Equal(t, float64(750), byInvestor[f.investorB.UserID])

	var dists []domain.ProfitDistribution
	require.NoError(t, f.db.Where("event_id = ?", result.EventID).Find(&dists).Error)
	require.Len(t, dists, 2)
	for _, d := range dists {
		assert.Contains(t, d.TxReference, "offchain:")
	}

	var logs []domain.TransactionLog
	require.NoError(t, f.db.Where("type = ?", domain.TxTypeProfitPayout).Find(&logs).Error)
	require.Len(t, logs, 2)

	var notes []domain.Notification
	require.NoError(t, f.db.Find(&notes).Error)
	assert.Len(t, notes, 2)
}

func TestDistribute_RoundingStaysWithinACent(t *testing.T) {
	f := setup(t)
	f.hold(t, f.investorA.UserID, 333)
	f.hold(t, f.investorB.UserID, 667)

	result, err := f.svc.Distribute(context.Background(), f.prop.PropertyID, 100, nil, nil, f.owner.UserID)
	require.NoError(t, err)

	var total float64
	for _, p := range result.Payouts {
		total += p.Amount
	}
	assert.InDelta(t, 100, total, 0.01)
}

func TestDistribute_SkipsZeroPayouts(t *testing.T) {
	f := setup(t)
	f.hold(t, f.investorA.UserID, 1)
	f.hold(t, f.investorB.UserID, 10000)

	// A's share is 10/10001 of a dirham, which rounds to zero.
	result, err := f.svc.Distribute(context.Background(), f.prop.PropertyID, 10, nil, nil, f.owner.UserID)
	require.NoError(t, err)
	require.Len(t, result.Payouts, 1)
	assert.Equal(t, f.investorB.UserID, result.Payouts[0].InvestorID)

	var count int64
	require.NoError(t, f.db.Model(&domain.ProfitDistribution{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDistribute_NoHolders(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Distribute(context.Background(), f.prop.PropertyID, 1000, nil, nil, f.owner.UserID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestDistribute_NonPositiveAmount(t *testing.T) {
	f := setup(t)
	f.hold(t, f.investorA.UserID, 100)
	_, err := f.svc.Distribute(context.Background(), f.prop.PropertyID, 0, nil, nil, f.owner.UserID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestDistribute_RequiresOwner(t *testing.T) {
	f := setup(t)
	f.hold(t, f.investorA.UserID, 100)
	_, err := f.svc.Distribute(context.Background(), f.prop.PropertyID, 1000, nil, nil, f.investorA.UserID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
}

func TestDistribute_ExcludeOwnerInventory(t *testing.T) {
	f := setup(t)
	f.svc.ExcludeOwnerInventory = true
	f.hold(t, f.owner.UserID, 600)
	f.hold(t, f.investorA.UserID, 400)

	result, err := f.svc.Distribute(context.Background(), f.prop.PropertyID, 1000, nil, nil, f.owner.UserID)
	require.NoError(t, err)
	require.Len(t, result.Payouts, 1)
	assert.Equal(t, f.investorA.UserID, result.Payouts[0].InvestorID)
	assert.Equal(t, float64(1000), result.Payouts[0].Amount)
}

func TestDistribute_OwnerInventoryIncludedByDefault(t *testing.T) {
	f := setup(t)
	f.hold(t, f.owner.UserID, 600)
	f.hold(t, f.investorA.UserID, 400)

	result, err := f.svc.Distribute(context.Background(), f.prop.PropertyID, 1000, nil, nil, f.owner.UserID)
	require.NoError(t, err)
	require.Len(t, result.Payouts, 2)

	byInvestor := map[uuid.UUID]float64{}
	for _, p := range result.Payouts {
		byInvestor[p.InvestorID] = p.Amount
	}
	assert.Equal(t, float64(600), byInvestor[f.owner.UserID])
	assert.Equal(t, float64(400), byInvestor[f.investorA.UserID])
}
