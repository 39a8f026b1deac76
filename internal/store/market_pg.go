package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/store/schema"
)

type marketPGStore struct {
	db *gorm.DB
}

// NewMarketStore creates a GORM backed marketplace store
func NewMarketStore(db *gorm.DB) MarketStore {
	return &marketPGStore{db: db}
}

func (s *marketPGStore) UpsertTokenForSale(ctx context.Context, listing *schema.TokenForSale) error {
	// A token re-approved with new terms replaces its previous listing
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "nft_contract_id"}, {Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "approval_id", "min_price", "gate_id", "creator_id", "listed_at",
		}),
	}).Create(listing).Error
	if err != nil {
		return fmt.Errorf("failed to upsert listing: %w", err)
	}
	return nil
}

func (s *marketPGStore) RemoveTokenForSale(ctx context.Context, nftContractID string, tokenID domain.TokenID) (*schema.TokenForSale, error) {
	var listing schema.TokenForSale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("nft_contract_id = ? AND token_id = ?", nftContractID, tokenID).
			First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenKeyNotFound(nftContractID, tokenID)
			}
			return fmt.Errorf("failed to get listing: %w", err)
		}
		if err := tx.Delete(&listing).Error; err != nil {
			return fmt.Errorf("failed to delete listing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *marketPGStore) GetTokenForSale(ctx context.Context, nftContractID string, tokenID domain.TokenID) (*schema.TokenForSale, error) {
	var listing schema.TokenForSale
	err := s.db.WithContext(ctx).
		Where("nft_contract_id = ? AND token_id = ?", nftContractID, tokenID).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (s *marketPGStore) GetTokensForSale(ctx context.Context) ([]schema.TokenForSale, error) {
	return s.listListings(ctx, s.db.WithContext(ctx))
}

func (s *marketPGStore) GetTokensForSaleByOwner(ctx context.Context, owner string) ([]schema.TokenForSale, error) {
	return s.listListings(ctx, s.db.WithContext(ctx).Where("owner_id = ?", owner))
}

func (s *marketPGStore) GetTokensForSaleByGate(ctx context.Context, gateID string) ([]schema.TokenForSale, error) {
	return s.listListings(ctx, s.db.WithContext(ctx).Where("gate_id = ?", gateID))
}

func (s *marketPGStore) GetTokensForSaleByCreator(ctx context.Context, creator string) ([]schema.TokenForSale, error) {
	return s.listListings(ctx, s.db.WithContext(ctx).Where("creator_id = ?", creator))
}

func (s *marketPGStore) listListings(_ context.Context, query *gorm.DB) ([]schema.TokenForSale, error) {
	var listings []schema.TokenForSale
	if err := query.Order("listed_at ASC, id ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

func (s *marketPGStore) SettleSale(ctx context.Context, input SettleSaleInput) (*schema.SaleReceipt, error) {
	var receipt schema.SaleReceipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Delist the token. A missing row means a concurrent settlement won.
		result := tx.Where("nft_contract_id = ? AND token_id = ?", input.NftContractID, input.TokenID).
			Delete(&schema.TokenForSale{})
		if result.Error != nil {
			return fmt.Errorf("failed to delist token: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrTokenKeyNotFound(input.NftContractID, input.TokenID)
		}

		// 2. Credit every payout receiver
		for account, amount := range input.Payout {
			if err := s.creditAccount(tx, account, amount, input.Now); err != nil {
				return err
			}
		}

		// 3. Record the receipt
		payoutJSON, err := json.Marshal(input.Payout)
		if err != nil {
			return fmt.Errorf("failed to marshal payout: %w", err)
		}
		receipt = schema.SaleReceipt{
			ID:            input.ReceiptID,
			NftContractID: input.NftContractID,
			TokenID:       input.TokenID,
			Buyer:         input.Buyer,
			Seller:        input.Seller,
			Price:         input.Price,
			Payout:        payoutJSON,
			SettledAt:     input.Now,
		}
		if err := tx.Create(&receipt).Error; err != nil {
			return fmt.Errorf("failed to create sale receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *marketPGStore) creditAccount(tx *gorm.DB, account string, amount domain.Balance, now int64) error {
	delta, err := amount.Parse()
	if err != nil {
		return fmt.Errorf("failed to parse payout amount: %w", err)
	}

	var balance schema.AccountBalance
	err = tx.Where("account_id = ?", account).First(&balance).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		balance = schema.AccountBalance{
			Account:   account,
			Amount:    amount,
			UpdatedAt: now,
		}
		if err := tx.Create(&balance).Error; err != nil {
			return fmt.Errorf("failed to create account balance: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to get account balance: %w", err)
	}

	current, err := balance.Amount.Parse()
	if err != nil {
		return fmt.Errorf("failed to parse stored balance: %w", err)
	}

	updated := new(uint256.Int).Add(current, delta)
	if err := tx.Model(&schema.AccountBalance{}).
		Where("account_id = ?", account).
		Updates(map[string]any{
			"amount":     string(domain.BalanceFromInt(updated)),
			"updated_at": now,
		}).Error; err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	return nil
}

func (s *marketPGStore) GetAccountBalance(ctx context.Context, account string) (domain.Balance, error) {
	var balance schema.AccountBalance
	err := s.db.WithContext(ctx).Where("account_id = ?", account).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Balance("0"), nil
		}
		return "", fmt.Errorf("failed to get account balance: %w", err)
	}
	return balance.Amount, nil
}

func (s *marketPGStore) GetSaleReceipt(ctx context.Context, id string) (*schema.SaleReceipt, error) {
	var receipt schema.SaleReceipt
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sale receipt: %w", err)
	}
	return &receipt, nil
}
