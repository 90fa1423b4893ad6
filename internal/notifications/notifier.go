package notifications

import (
	"context"
	"encoding/json"
	"time"

	"sukuk-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const feedPrefix = "notifications:"
const feedMaxLen = 100

// Notifier records notifications inside the caller's database transaction
// and mirrors them to a per-user redis feed after commit. The redis mirror
// is best effort: a push failure is logged and never fails the operation
// that produced the notification.
type Notifier struct {
	Rdb *redis.Client
}

// Record inserts the notification row using tx so it commits or rolls back
// with the rest of the operation.
func (n *Notifier) Record(tx *gorm.DB, userID uuid.UUID, typ, message string) (*domain.Notification, error) {
	note := &domain.Notification{
		UserID:  userID,
		Type:    typ,
		Message: message,
	}
	if err := tx.Create(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}

// Publish mirrors a committed notification onto the user's redis feed.
func (n *Notifier) Publish(ctx context.Context, notes ...*domain.Notification) {
	if n.Rdb == nil {
		return
	}
	for _, note := range notes {
		if note == nil {
			continue
		}
		b, _ := json.Marshal(map[string]interface{}{
			"notification_id": note.NotificationID.String(),
			"type":            note.Type,
			"message":         note.Message,
			"created_at":      note.CreatedAt.Format(time.RFC3339),
		})
		key := feedPrefix + note.UserID.String()
		if err := n.Rdb.LPush(ctx, key, b).Err(); err != nil {
			log.Warn().Err(err).Str("user_id", note.UserID.String()).Msg("notification feed push failed")
			continue
		}
		n.Rdb.LTrim(ctx, key, 0, feedMaxLen-1)
	}
}

// ListForUser returns the stored notifications for a user, newest first.
func ListForUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]domain.Notification, error) {
	var notes []domain.Notification
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}
