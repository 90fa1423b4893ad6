package transactions

import (
	"context"
	"time"

	"sukuk-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the read side of the transaction log.
type Service struct {
	DB *gorm.DB
}

// FormattedTx joins a log row with its property context for rendering.
type FormattedTx struct {
	LogID         uuid.UUID `json:"log_id"`
	Type          string    `json:"type"`
	Tokens        int64     `json:"tokens"`
	Amount        float64   `json:"amount"`
	TxHash        string    `json:"tx_hash"`
	SukukID       uuid.UUID `json:"sukuk_id"`
	PropertyTitle string    `json:"property_title"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListForUser returns the user's balance-affecting events, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]FormattedTx, error) {
	var logs []domain.TransactionLog
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return s.format(ctx, logs)
}

// ListForSukuk returns every event recorded against one sukuk.
func (s *Service) ListForSukuk(ctx context.Context, sukukID uuid.UUID) ([]FormattedTx, error) {
	var logs []domain.TransactionLog
	if err := s.DB.WithContext(ctx).
		Where("sukuk_id = ?", sukukID).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return s.format(ctx, logs)
}

func (s *Service) format(ctx context.Context, logs []domain.TransactionLog) ([]FormattedTx, error) {
	if len(logs) == 0 {
		return []FormattedTx{}, nil
	}

	sukukIDs := map[uuid.UUID]bool{}
	for _, l := range logs {
		sukukIDs[l.SukukID] = true
	}
	ids := make([]uuid.UUID, 0, len(sukukIDs))
	for id := range sukukIDs {
		ids = append(ids, id)
	}

	titleMap := map[uuid.UUID]string{}
	var sukuks []domain.Sukuk
	if err := s.DB.WithContext(ctx).Where("sukuk_id IN ?", ids).Find(&sukuks).Error; err != nil {
		return nil, err
	}
	propIDs := make([]uuid.UUID, 0, len(sukuks))
	sukukProp := map[uuid.UUID]uuid.UUID{}
	for _, sk := range sukuks {
		propIDs = append(propIDs, sk.PropertyID)
		sukukProp[sk.SukukID] = sk.PropertyID
	}
	var props []domain.Property
	if len(propIDs) > 0 {
		if err := s.DB.WithContext(ctx).Where("property_id IN ?", propIDs).Find(&props).Error; err != nil {
			return nil, err
		}
	}
	propTitle := map[uuid.UUID]string{}
	for _, p := range props {
		propTitle[p.PropertyID] = p.Title
	}
	for sid, pid := range sukukProp {
		titleMap[sid] = propTitle[pid]
	}

	out := make([]FormattedTx, len(logs))
	for i, l := range logs {
		out[i] = FormattedTx{
			LogID:         l.LogID,
			Type:          l.Type,
			Tokens:        l.Tokens,
			Amount:        l.Amount,
			TxHash:        l.TxHash,
			SukukID:       l.SukukID,
			PropertyTitle: titleMap[l.SukukID],
			CreatedAt:     l.CreatedAt,
		}
	}
	return out, nil
}
