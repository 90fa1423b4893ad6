package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/ledger"
	"sukuk-backend/internal/notifications"
	"sukuk-backend/internal/pkg/apperrors"
	"sukuk-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service orchestrates the two-legged operations that keep the on-chain
// token ledger and the relational store reconciled. The chain leg is
// confirmed before the off-chain leg runs; all DB-visible effects of one
// operation commit in a single transaction. Chain writes are pinned to
// idempotency keys through chain_receipts so a crash between the two legs is
// recovered by replaying only the off-chain leg.
type Service struct {
	DB       *gorm.DB
	Gateway  ledger.Gateway
	Notifier *notifications.Notifier

	locks sukukLocker
}

// TokenizeResult is returned by TokenizeAsset.
type TokenizeResult struct {
	SukukID   uuid.UUID `json:"sukuk_id"`
	Partition string    `json:"partition"`
	TxRef     string    `json:"tx_ref"`
	Tokens    int64     `json:"tokens"`
	Replayed  bool      `json:"replayed"`
}

// TradeResult is returned by IssueTokens and TransferTokens.
type TradeResult struct {
	TxRef    string  `json:"tx_ref"`
	Tokens   int64   `json:"tokens"`
	Amount   float64 `json:"amount"`
	Replayed bool    `json:"replayed"`
}

// TokenizeAsset mints the sukuk's full supply into the owner's primary
// wallet and activates the offering. Partition creation tolerates
// AlreadyExists so a crashed prior attempt can be re-run; the mint itself is
// deduped by a deterministic idempotency key.
func (s *Service) TokenizeAsset(ctx context.Context, propertyID, callerID uuid.UUID) (*TokenizeResult, error) {
	prop, err := s.ownedProperty(ctx, propertyID, callerID)
	if err != nil {
		return nil, err
	}
	sukuk, err := s.sukukFor(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if sukuk.TotalTokens <= 0 {
		return nil, apperrors.New(apperrors.KindValidation, "Sukuk has no token supply configured")
	}
	if sukuk.Status == domain.SukukStatusActive {
		return nil, apperrors.New(apperrors.KindValidation, "Asset is already tokenized")
	}
	ownerWallet, err := s.primaryWallet(ctx, callerID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(sukuk.SukukID)
	defer unlock()

	key := idempotencyKey("tokenize", sukuk.SukukID.String(), strconv.FormatInt(sukuk.TotalTokens, 10))
	receipt, err := s.findReceipt(ctx, key)
	if err != nil {
		return nil, err
	}
	if receipt != nil && receipt.Reconciled {
		return nil, apperrors.New(apperrors.KindValidation, "Asset is already tokenized")
	}

	partition := ledger.PartitionName(prop.PropertyID.String())
	outcome, _, err := s.Gateway.CreatePartition(ctx, partition)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLedger, "partition creation failed", err)
	}
	if outcome == ledger.OutcomeAlreadyExists {
		log.Info().Str("partition", partition).Msg("partition already exists, continuing")
	}

	var txRef string
	replayed := false
	if receipt != nil {
		// Prior run minted but crashed before the off-chain commit; replay
		// only the off-chain leg.
		txRef = receipt.TxHash
		replayed = true
	} else {
		txRef, err = s.Gateway.Issue(ctx, partition, ownerWallet.Address, sukuk.TotalTokens)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindLedger, "token issuance failed", err)
		}
		if err := s.storeReceipt(ctx, key, "tokenize", sukuk.SukukID, txRef, 0); err != nil {
			return nil, s.consistency(txRef, err)
		}
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Sukuk{}).
			Where("sukuk_id = ? AND status = ?", sukuk.SukukID, domain.SukukStatusDraft).
			Updates(map[string]interface{}{
				"status":           domain.SukukStatusActive,
				"blockchain_hash":  txRef,
				"available_tokens": sukuk.TotalTokens,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("sukuk is no longer in draft")
		}
		if err := upsertInvestmentTo(tx, callerID, sukuk.SukukID, sukuk.TotalTokens); err != nil {
			return err
		}
		if err := s.audit(tx, callerID, "tokenize_asset", map[string]interface{}{
			"property_id": prop.PropertyID.String(),
			"partition":   partition,
			"tokens":      sukuk.TotalTokens,
			"tx_ref":      txRef,
		}); err != nil {
			return err
		}
		return s.reconcileReceipt(tx, key)
	})
	if err != nil {
		return nil, s.consistency(txRef, err)
	}

	return &TokenizeResult{
		SukukID:   sukuk.SukukID,
		Partition: partition,
		TxRef:     txRef,
		Tokens:    sukuk.TotalTokens,
		Replayed:  replayed,
	}, nil
}

// Whitelist permits a connected wallet to hold and trade tokens. Pure
// pass-through to the ledger; no off-chain mutation.
func (s *Service) Whitelist(ctx context.Context, address string) (string, error) {
	if !validation.IsValidAddress(address) {
		return "", apperrors.New(apperrors.KindValidation, "Invalid wallet address")
	}
	if _, err := s.walletByAddress(ctx, address); err != nil {
		return "", err
	}
	txRef, err := s.Gateway.AddToWhitelist(ctx, address)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindLedger, "whitelisting failed", err)
	}
	return txRef, nil
}

// IssueTokens sells amount tokens from the owner's inventory to an investor
// (primary sale). Supply is checked against available_tokens before the
// chain call and decremented conditionally inside the off-chain transaction.
// idemKey dedupes retries of the same logical request; pass the caller's
// idempotency key, or a freshly generated one when the caller sent none.
func (s *Service) IssueTokens(ctx context.Context, propertyID uuid.UUID, investorWallet string, amount int64, callerID uuid.UUID, idemKey string) (*TradeResult, error) {
	if !validation.IsValidTokenAmount(amount) {
		return nil, apperrors.New(apperrors.KindValidation, "Token amount must be a positive integer")
	}
	if !validation.IsValidAddress(investorWallet) {
		return nil, apperrors.New(apperrors.KindValidation, "Invalid investor wallet address")
	}
	prop, err := s.ownedProperty(ctx, propertyID, callerID)
	if err != nil {
		return nil, err
	}
	sukuk, err := s.sukukFor(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if sukuk.Status != domain.SukukStatusActive || sukuk.BlockchainHash == nil {
		return nil, apperrors.New(apperrors.KindValidation, "Asset is not tokenized yet")
	}

	unlock := s.locks.lock(sukuk.SukukID)
	defer unlock()

	// Re-read supply under the lock so concurrent sales see each other.
	sukuk, err = s.sukukFor(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if amount > sukuk.AvailableTokens {
		return nil, apperrors.Newf(apperrors.KindInsufficientSupply,
			"Only %d tokens available", sukuk.AvailableTokens)
	}

	ownerWallet, err := s.primaryWallet(ctx, callerID)
	if err != nil {
		return nil, err
	}
	invWallet, err := s.walletByAddress(ctx, investorWallet)
	if err != nil {
		return nil, err
	}

	key := receiptKey(idemKey, "issue", sukuk.SukukID)
	receipt, err := s.findReceipt(ctx, key)
	if err != nil {
		return nil, err
	}
	saleValue := float64(amount) * sukuk.TokenPrice
	if receipt != nil && receipt.Reconciled {
		return &TradeResult{TxRef: receipt.TxHash, Tokens: amount, Amount: receipt.Amount, Replayed: true}, nil
	}

	partition := ledger.PartitionName(prop.PropertyID.String())
	var txRef string
	replayed := false
	if receipt != nil {
		// Book the value the trade was priced at when the chain call
		// confirmed, not the current token price.
		txRef = receipt.TxHash
		saleValue = receipt.Amount
		replayed = true
	} else {
		txRef, err = s.Gateway.OperatorTransfer(ctx, partition, ownerWallet.Address, invWallet.Address, amount)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindLedger, "token transfer failed", err)
		}
		if err := s.storeReceipt(ctx, key, "issue", sukuk.SukukID, txRef, saleValue); err != nil {
			return nil, s.consistency(txRef, err)
		}
	}

	var ownerNote *domain.Notification
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decrementSupply(tx, sukuk.SukukID, amount); err != nil {
			return err
		}
		if err := decrementInvestment(tx, callerID, sukuk.SukukID, amount); err != nil {
			return err
		}
		if err := creditInvestment(tx, invWallet.UserID, sukuk.SukukID, amount, saleValue); err != nil {
			return err
		}
		if err := tx.Create(&domain.TransactionLog{
			Type:    domain.TxTypeBuy,
			UserID:  invWallet.UserID,
			SukukID: sukuk.SukukID,
			Tokens:  amount,
			Amount:  saleValue,
			TxHash:  txRef,
		}).Error; err != nil {
			return err
		}
		ownerNote, err = s.Notifier.Record(tx, prop.OwnerID, "tokens_issued",
			fmt.Sprintf("%d tokens of %s sold to investor", amount, prop.Title))
		if err != nil {
			return err
		}
		return s.reconcileReceipt(tx, key)
	})
	if err != nil {
		return nil, s.consistency(txRef, err)
	}
	s.Notifier.Publish(ctx, ownerNote)

	return &TradeResult{TxRef: txRef, Tokens: amount, Amount: saleValue, Replayed: replayed}, nil
}

// TransferTokens moves tokens between two investors on the secondary market.
// Unlike a primary sale it pre-flights the sender's confirmed on-chain
// balance before attempting the transfer.
func (s *Service) TransferTokens(ctx context.Context, propertyID uuid.UUID, toWallet string, amount int64, callerID uuid.UUID, idemKey string) (*TradeResult, error) {
	if !validation.IsValidTokenAmount(amount) {
		return nil, apperrors.New(apperrors.KindValidation, "Token amount must be a positive integer")
	}
	if !validation.IsValidAddress(toWallet) {
		return nil, apperrors.New(apperrors.KindValidation, "Invalid receiver wallet address")
	}
	prop, err := s.property(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	sukuk, err := s.sukukFor(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if sukuk.Status != domain.SukukStatusActive {
		return nil, apperrors.New(apperrors.KindValidation, "Asset is not tokenized yet")
	}

	senderWallet, err := s.primaryWallet(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(senderWallet.Address, toWallet) {
		return nil, apperrors.New(apperrors.KindValidation, "Cannot transfer to the same wallet")
	}
	recvWallet, err := s.walletByAddress(ctx, toWallet)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(sukuk.SukukID)
	defer unlock()

	// The receipt lookup must precede the balance pre-flight: after a crash
	// between the confirmed chain transfer and the off-chain commit, the
	// sender's chain balance has already moved, and failing the pre-flight
	// here would leave the unreconciled receipt stranded forever.
	key := receiptKey(idemKey, "transfer", sukuk.SukukID)
	receipt, err := s.findReceipt(ctx, key)
	if err != nil {
		return nil, err
	}
	tradeValue := float64(amount) * sukuk.TokenPrice
	if receipt != nil && receipt.Reconciled {
		return &TradeResult{TxRef: receipt.TxHash, Tokens: amount, Amount: receipt.Amount, Replayed: true}, nil
	}

	partition := ledger.PartitionName(prop.PropertyID.String())
	var txRef string
	replayed := false
	if receipt != nil {
		txRef = receipt.TxHash
		tradeValue = receipt.Amount
		replayed = true
	} else {
		chainBalance, err := s.Gateway.BalanceOf(ctx, partition, senderWallet.Address)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindLedger, "balance check failed", err)
		}
		if chainBalance < amount {
			return nil, apperrors.Newf(apperrors.KindInsufficientBalance,
				"On-chain balance is %d tokens, cannot transfer %d", chainBalance, amount)
		}
		txRef, err = s.Gateway.OperatorTransfer(ctx, partition, senderWallet.Address, recvWallet.Address, amount)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindLedger, "token transfer failed", err)
		}
		if err := s.storeReceipt(ctx, key, "transfer", sukuk.SukukID, txRef, tradeValue); err != nil {
			return nil, s.consistency(txRef, err)
		}
	}

	var senderNote, recvNote *domain.Notification
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decrementInvestment(tx, callerID, sukuk.SukukID, amount); err != nil {
			return err
		}
		if err := creditInvestment(tx, recvWallet.UserID, sukuk.SukukID, amount, tradeValue); err != nil {
			return err
		}
		logs := []domain.TransactionLog{
			{Type: domain.TxTypeSell, UserID: callerID, SukukID: sukuk.SukukID, Tokens: amount, Amount: tradeValue, TxHash: txRef},
			{Type: domain.TxTypeBuy, UserID: recvWallet.UserID, SukukID: sukuk.SukukID, Tokens: amount, Amount: tradeValue, TxHash: txRef},
		}
		for i := range logs {
			if err := tx.Create(&logs[i]).Error; err != nil {
				return err
			}
		}
		if err := s.audit(tx, callerID, "secondary_transfer", map[string]interface{}{
			"sukuk_id": sukuk.SukukID.String(),
			"from":     senderWallet.Address,
			"to":       recvWallet.Address,
			"tokens":   amount,
			"tx_ref":   txRef,
		}); err != nil {
			return err
		}
		if senderNote, err = s.Notifier.Record(tx, callerID, "tokens_sent",
			fmt.Sprintf("You transferred %d tokens of %s", amount, prop.Title)); err != nil {
			return err
		}
		if recvNote, err = s.Notifier.Record(tx, recvWallet.UserID, "tokens_received",
			fmt.Sprintf("You received %d tokens of %s", amount, prop.Title)); err != nil {
			return err
		}
		return s.reconcileReceipt(tx, key)
	})
	if err != nil {
		return nil, s.consistency(txRef, err)
	}
	s.Notifier.Publish(ctx, senderNote, recvNote)

	return &TradeResult{TxRef: txRef, Tokens: amount, Amount: tradeValue, Replayed: replayed}, nil
}

// GetBalance reads a wallet's confirmed partition balance for a property.
func (s *Service) GetBalance(ctx context.Context, propertyID uuid.UUID, wallet string) (int64, error) {
	if !validation.IsValidAddress(wallet) {
		return 0, apperrors.New(apperrors.KindValidation, "Invalid wallet address")
	}
	prop, err := s.property(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	balance, err := s.Gateway.BalanceOf(ctx, ledger.PartitionName(prop.PropertyID.String()), wallet)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindLedger, "balance query failed", err)
	}
	return balance, nil
}

// GetPartitions lists all partitions on the token contract.
func (s *Service) GetPartitions(ctx context.Context) ([]string, error) {
	names, err := s.Gateway.ListPartitions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLedger, "partition listing failed", err)
	}
	return names, nil
}

// --- lookups ---

func (s *Service) property(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error) {
	var prop domain.Property
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).First(&prop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "Property not found")
		}
		return nil, err
	}
	return &prop, nil
}

func (s *Service) ownedProperty(ctx context.Context, propertyID, callerID uuid.UUID) (*domain.Property, error) {
	prop, err := s.property(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if prop.OwnerID != callerID {
		return nil, apperrors.New(apperrors.KindAuthorization, "Only the property owner may perform this operation")
	}
	return prop, nil
}

func (s *Service) sukukFor(ctx context.Context, propertyID uuid.UUID) (*domain.Sukuk, error) {
	var sukuk domain.Sukuk
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).First(&sukuk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "No Sukuk exists for this property")
		}
		return nil, err
	}
	return &sukuk, nil
}

func (s *Service) primaryWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.DB.WithContext(ctx).Where("user_id = ? AND is_primary = ?", userID, true).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindValidation, "No primary wallet connected")
		}
		return nil, err
	}
	return &wallet, nil
}

func (s *Service) walletByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.DB.WithContext(ctx).Where("LOWER(address) = LOWER(?)", address).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "Wallet is not connected")
		}
		return nil, err
	}
	return &wallet, nil
}

// --- chain receipts ---

func (s *Service) findReceipt(ctx context.Context, key string) (*domain.ChainReceipt, error) {
	var receipt domain.ChainReceipt
	err := s.DB.WithContext(ctx).Where("idempotency_key = ?", key).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// storeReceipt runs in its own transaction, immediately after chain
// confirmation, so the chain write stays discoverable even when the
// off-chain leg fails. amount freezes the trade value at confirmation time.
func (s *Service) storeReceipt(ctx context.Context, key, operation string, sukukID uuid.UUID, txRef string, amount float64) error {
	return s.DB.WithContext(ctx).Create(&domain.ChainReceipt{
		IdempotencyKey: key,
		Operation:      operation,
		SukukID:        sukukID,
		TxHash:         txRef,
		Amount:         amount,
	}).Error
}

func (s *Service) reconcileReceipt(tx *gorm.DB, key string) error {
	return tx.Model(&domain.ChainReceipt{}).
		Where("idempotency_key = ?", key).
		Update("reconciled", true).Error
}

// consistency logs and wraps a post-chain off-chain failure with the tx
// reference an operator needs to reconcile manually; a confirmed mint or
// transfer cannot be rolled back.
func (s *Service) consistency(txRef string, err error) error {
	log.Error().Err(err).Str("tx_ref", txRef).Msg("off-chain leg failed after confirmed chain transaction")
	return apperrors.Consistency(txRef, err)
}

func (s *Service) audit(tx *gorm.DB, actorID uuid.UUID, action string, payload map[string]interface{}) error {
	b, _ := json.Marshal(payload)
	return tx.Create(&domain.AuditLog{
		ActorID: actorID,
		Action:  action,
		Payload: datatypes.JSON(b),
	}).Error
}

// --- atomic mutations ---

// decrementSupply applies the conditional decrement that guards the supply
// counter against a concurrent sale that slipped past the pre-check.
func decrementSupply(tx *gorm.DB, sukukID uuid.UUID, amount int64) error {
	res := tx.Model(&domain.Sukuk{}).
		Where("sukuk_id = ? AND available_tokens >= ?", sukukID, amount).
		UpdateColumn("available_tokens", gorm.Expr("available_tokens - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("available supply exhausted")
	}
	return nil
}

func decrementInvestment(tx *gorm.DB, investorID, sukukID uuid.UUID, amount int64) error {
	res := tx.Model(&domain.Investment{}).
		Where("investor_id = ? AND sukuk_id = ? AND tokens_owned >= ?", investorID, sukukID, amount).
		UpdateColumn("tokens_owned", gorm.Expr("tokens_owned - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("holder position too small")
	}
	return nil
}

// creditInvestment upserts the receiving position: create on first
// acquisition, increment thereafter. purchase_value only ever accumulates.
func creditInvestment(tx *gorm.DB, investorID, sukukID uuid.UUID, amount int64, value float64) error {
	var inv domain.Investment
	err := tx.Where("investor_id = ? AND sukuk_id = ?", investorID, sukukID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.Investment{
			InvestorID:    investorID,
			SukukID:       sukukID,
			TokensOwned:   amount,
			PurchaseValue: value,
		}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&domain.Investment{}).
		Where("investment_id = ?", inv.InvestmentID).
		Updates(map[string]interface{}{
			"tokens_owned":   gorm.Expr("tokens_owned + ?", amount),
			"purchase_value": gorm.Expr("purchase_value + ?", value),
		}).Error
}

// upsertInvestmentTo pins a position to an absolute token count; used by
// tokenization, where a replayed off-chain leg must stay idempotent.
func upsertInvestmentTo(tx *gorm.DB, investorID, sukukID uuid.UUID, tokens int64) error {
	var inv domain.Investment
	err := tx.Where("investor_id = ? AND sukuk_id = ?", investorID, sukukID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.Investment{
			InvestorID:  investorID,
			SukukID:     sukukID,
			TokensOwned: tokens,
		}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&domain.Investment{}).
		Where("investment_id = ?", inv.InvestmentID).
		Update("tokens_owned", tokens).Error
}

// --- keys ---

func idempotencyKey(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

// receiptKey scopes a caller-supplied idempotency key to an operation and
// sukuk. An empty caller key gets a random one: the request is then safe
// against internal replay but not against caller retries.
func receiptKey(callerKey, operation string, sukukID uuid.UUID) string {
	if callerKey == "" {
		callerKey = uuid.New().String()
	}
	return idempotencyKey(operation, sukukID.String(), callerKey)
}
