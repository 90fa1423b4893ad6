package wallets

import (
	"context"
	"errors"
	"strings"

	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/pkg/apperrors"
	"sukuk-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages the user/address mapping. An address belongs to at most
// one user; the first wallet a user connects becomes their primary.
type Service struct {
	DB *gorm.DB
}

// Connect registers an address for the user.
func (s *Service) Connect(ctx context.Context, userID uuid.UUID, address string) (*domain.Wallet, error) {
	if !validation.IsValidAddress(address) {
		return nil, apperrors.New(apperrors.KindValidation, "Invalid wallet address")
	}
	address = strings.ToLower(address)

	var wallet *domain.Wallet
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Wallet
		err := tx.Where("address = ?", address).First(&existing).Error
		if err == nil {
			if existing.UserID == userID {
				wallet = &existing
				return nil
			}
			return apperrors.New(apperrors.KindValidation, "Wallet address is already connected to another account")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&domain.Wallet{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		wallet = &domain.Wallet{
			UserID:    userID,
			Address:   address,
			IsPrimary: count == 0,
		}
		return tx.Create(wallet).Error
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// Disconnect removes the address. If the primary wallet is removed the
// oldest remaining wallet is promoted.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID, address string) error {
	address = strings.ToLower(address)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet domain.Wallet
		if err := tx.Where("user_id = ? AND address = ?", userID, address).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.KindNotFound, "Wallet is not connected")
			}
			return err
		}
		if err := tx.Delete(&wallet).Error; err != nil {
			return err
		}
		if !wallet.IsPrimary {
			return nil
		}
		var next domain.Wallet
		err := tx.Where("user_id = ?", userID).Order("created_at ASC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_primary", true).Error
	})
}

// SetPrimary switches which wallet receives and sends for the user.
func (s *Service) SetPrimary(ctx context.Context, userID uuid.UUID, address string) error {
	address = strings.ToLower(address)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet domain.Wallet
		if err := tx.Where("user_id = ? AND address = ?", userID, address).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.KindNotFound, "Wallet is not connected")
			}
			return err
		}
		if err := tx.Model(&domain.Wallet{}).
			Where("user_id = ?", userID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		return tx.Model(&wallet).Update("is_primary", true).Error
	})
}

// List returns the user's wallets, primary first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	var wallets []domain.Wallet
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_primary DESC, created_at ASC").
		Find(&wallets).Error
	return wallets, err
}
