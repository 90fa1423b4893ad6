package distribution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/notifications"
	"sukuk-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service fans profit and rent out to current token holders. Distribution is
// purely off-chain accounting: every payout carries a synthetic transaction
// reference and shares the reconciliation engine's one-transaction
// discipline, without a chain leg.
type Service struct {
	DB       *gorm.DB
	Notifier *notifications.Notifier

	// ExcludeOwnerInventory drops the owner's unsold inventory from the
	// payout base. Off by default: distribution is strictly proportional to
	// current holdings, self-held inventory included.
	ExcludeOwnerInventory bool
}

// Payout is one holder's share of a distribution event.
type Payout struct {
	InvestorID uuid.UUID `json:"investor_id"`
	Tokens     int64     `json:"tokens"`
	Amount     float64   `json:"amount"`
}

// Result summarizes a distribution event.
type Result struct {
	EventID     uuid.UUID `json:"event_id"`
	TotalAmount float64   `json:"total_amount"`
	TotalTokens int64     `json:"total_tokens"`
	Payouts     []Payout  `json:"payouts"`
}

// Distribute splits amount across the sukuk's holders pro rata to
// tokens_owned. The divisor is the sum of live holdings, not the sukuk's
// total supply: tokens lost off-ledger shrink the base so the full amount
// still reaches remaining holders. Holders whose share rounds to exactly
// zero are skipped. period bounds are optional (rent distributions).
func (s *Service) Distribute(ctx context.Context, propertyID uuid.UUID, amount float64, periodStart, periodEnd *time.Time, callerID uuid.UUID) (*Result, error) {
	if amount <= 0 {
		return nil, apperrors.New(apperrors.KindValidation, "Distribution amount must be positive")
	}

	var prop domain.Property
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).First(&prop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "Property not found")
		}
		return nil, err
	}
	if prop.OwnerID != callerID {
		return nil, apperrors.New(apperrors.KindAuthorization, "Only the property owner may distribute profit")
	}
	var sukuk domain.Sukuk
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).First(&sukuk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "No Sukuk exists for this property")
		}
		return nil, err
	}

	query := s.DB.WithContext(ctx).
		Where("sukuk_id = ? AND tokens_owned > 0", sukuk.SukukID)
	if s.ExcludeOwnerInventory {
		query = query.Where("investor_id <> ?", prop.OwnerID)
	}
	var holders []domain.Investment
	if err := query.Find(&holders).Error; err != nil {
		return nil, err
	}
	if len(holders) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "No token holders to distribute to")
	}

	var totalHeld int64
	for _, h := range holders {
		totalHeld += h.TokensOwned
	}
	if totalHeld == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "Total held tokens is zero")
	}
	rate := amount / float64(totalHeld)

	eventID := uuid.New()
	result := &Result{EventID: eventID, TotalAmount: amount, TotalTokens: totalHeld}
	var notes []*domain.Notification

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, h := range holders {
			payout := round2(float64(h.TokensOwned) * rate)
			if payout == 0 {
				continue
			}
			ref := "offchain:" + uuid.New().String()
			if err := tx.Create(&domain.ProfitDistribution{
				EventID:     eventID,
				SukukID:     sukuk.SukukID,
				InvestorID:  h.InvestorID,
				Amount:      payout,
				TxReference: ref,
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
			}).Error; err != nil {
				return err
			}
			if err := tx.Create(&domain.TransactionLog{
				Type:    domain.TxTypeProfitPayout,
				UserID:  h.InvestorID,
				SukukID: sukuk.SukukID,
				Tokens:  h.TokensOwned,
				Amount:  payout,
				TxHash:  ref,
			}).Error; err != nil {
				return err
			}
			note, err := s.Notifier.Record(tx, h.InvestorID, "profit_payout",
				fmt.Sprintf("You received a payout of %.2f for %s", payout, prop.Title))
			if err != nil {
				return err
			}
			notes = append(notes, note)
			result.Payouts = append(result.Payouts, Payout{
				InvestorID: h.InvestorID,
				Tokens:     h.TokensOwned,
				Amount:     payout,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, notes...)

	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
