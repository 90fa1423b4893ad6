package pricing

import (
	"context"
	"errors"
	"fmt"

	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/notifications"
	"sukuk-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service runs the two-phase price-update approval machine. Owners propose a
// valuation/token-price change as an immutable snapshot; only a regulator
// decides it, and decided requests stay decided.
type Service struct {
	DB       *gorm.DB
	Notifier *notifications.Notifier
}

// Request creates a pending update request for the property's sukuk.
func (s *Service) Request(ctx context.Context, propertyID uuid.UUID, newValuation, newTokenPrice float64, callerID uuid.UUID) (*domain.ListingUpdateRequest, error) {
	if newValuation <= 0 || newTokenPrice <= 0 {
		return nil, apperrors.New(apperrors.KindValidation, "Valuation and token price must be positive")
	}

	var prop domain.Property
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).First(&prop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "Property not found")
		}
		return nil, err
	}
	if prop.OwnerID != callerID {
		return nil, apperrors.New(apperrors.KindAuthorization, "Only the property owner may request a price update")
	}
	var sukuk domain.Sukuk
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).First(&sukuk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "No Sukuk exists for this property")
		}
		return nil, err
	}

	req := &domain.ListingUpdateRequest{
		PropertyID:    prop.PropertyID,
		SukukID:       sukuk.SukukID,
		RequestedBy:   callerID,
		OldValuation:  prop.Valuation,
		NewValuation:  newValuation,
		OldTokenPrice: sukuk.TokenPrice,
		NewTokenPrice: newTokenPrice,
		Status:        domain.UpdateStatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// Review decides a pending request. Approval applies the snapshot to the
// property and sukuk and records a PriceHistory row; rejection records the
// reason. Either way the owner is notified and the request becomes terminal.
func (s *Service) Review(ctx context.Context, requestID uuid.UUID, approve bool, reason string, reviewerID uuid.UUID) (*domain.ListingUpdateRequest, error) {
	var reviewer domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", reviewerID).First(&reviewer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "Reviewer not found")
		}
		return nil, err
	}
	if reviewer.Role != domain.RoleRegulator {
		return nil, apperrors.New(apperrors.KindAuthorization, "Only a regulator may review price updates")
	}

	var req domain.ListingUpdateRequest
	if err := s.DB.WithContext(ctx).Where("request_id = ?", requestID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "Price update request not found")
		}
		return nil, err
	}
	if req.Status != domain.UpdateStatusPending {
		return nil, apperrors.Newf(apperrors.KindValidation,
			"Request has already been %s", req.Status)
	}

	var prop domain.Property
	if err := s.DB.WithContext(ctx).Where("property_id = ?", req.PropertyID).First(&prop).Error; err != nil {
		return nil, err
	}

	var note *domain.Notification
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := tx.NowFunc()
		updates := map[string]interface{}{
			"reviewed_by": reviewerID,
			"reviewed_at": now,
		}
		if approve {
			updates["status"] = domain.UpdateStatusApproved
		} else {
			updates["status"] = domain.UpdateStatusRejected
			updates["reason"] = reason
		}
		// Guard on pending so two concurrent reviews cannot both land.
		res := tx.Model(&domain.ListingUpdateRequest{}).
			Where("request_id = ? AND status = ?", req.RequestID, domain.UpdateStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.New(apperrors.KindValidation, "Request has already been decided")
		}

		if approve {
			if err := tx.Model(&domain.Property{}).
				Where("property_id = ?", req.PropertyID).
				Update("valuation", req.NewValuation).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.Sukuk{}).
				Where("sukuk_id = ?", req.SukukID).
				Update("token_price", req.NewTokenPrice).Error; err != nil {
				return err
			}
			if err := tx.Create(&domain.PriceHistory{
				SukukID:    req.SukukID,
				Valuation:  req.NewValuation,
				TokenPrice: req.NewTokenPrice,
				RequestID:  req.RequestID,
			}).Error; err != nil {
				return err
			}
		}

		msg := fmt.Sprintf("Your price update for %s was approved", prop.Title)
		if !approve {
			msg = fmt.Sprintf("Your price update for %s was rejected: %s", prop.Title, reason)
		}
		var err error
		note, err = s.Notifier.Record(tx, req.RequestedBy, "price_update_reviewed", msg)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, note)

	if err := s.DB.WithContext(ctx).Where("request_id = ?", requestID).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}
