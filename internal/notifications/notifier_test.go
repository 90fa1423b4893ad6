package notifications

import (
	"context"
	"testing"

	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *Notifier, *miniredis.Miniredis) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return db, &Notifier{Rdb: rdb}, mr
}

func TestRecordAndPublish(t *testing.T) {
	db, notifier, mr := setup(t)

	user := domain.User{Fullname: "Investor", Email: "investor@example.com", Role: domain.RoleInvestor}
	require.NoError(t, db.Create(&user).Error)

	var note *domain.Notification
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		note, err = notifier.Record(tx, user.UserID, "profit_payout", "You received a payout of 250.00")
		return err
	})
	require.NoError(t, err)
	notifier.Publish(context.Background(), note)

	stored, err := ListForUser(context.Background(), db, user.UserID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "profit_payout", stored[0].Type)

	feed, err := mr.List("notifications:" + user.UserID.String())
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Contains(t, feed[0], "250.00")
}

func TestRecord_RollsBackWithTransaction(t *testing.T) {
	db, notifier, _ := setup(t)

	user := domain.User{Fullname: "Investor", Email: "investor@example.com", Role: domain.RoleInvestor}
	require.NoError(t, db.Create(&user).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := notifier.Record(tx, user.UserID, "profit_payout", "never lands"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	stored, err := ListForUser(context.Background(), db, user.UserID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPublish_WithoutRedisIsNoop(t *testing.T) {
	n := &Notifier{}
	n.Publish(context.Background(), &domain.Notification{Message: "no feed configured"})
}

func TestPublish_FeedIsCapped(t *testing.T) {
	db, notifier, mr := setup(t)

	user := domain.User{Fullname: "Investor", Email: "investor@example.com", Role: domain.RoleInvestor}
	require.NoError(t, db.Create(&user).Error)

	for i := 0; i < feedMaxLen+20; i++ {
		var note *domain.Notification
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			note, err = notifier.Record(tx, user.UserID, "system", "ping")
			return err
		})
		require.NoError(t, err)
		notifier.Publish(context.Background(), note)
	}

	feed, err := mr.List("notifications:" + user.UserID.String())
	require.NoError(t, err)
	assert.Len(t, feed, feedMaxLen)
}
