package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/store/schema"
)

type ledgerPGStore struct {
	db *gorm.DB
}

// NewLedgerStore creates a GORM backed ledger store
func NewLedgerStore(db *gorm.DB) LedgerStore {
	return &ledgerPGStore{db: db}
}

func (s *ledgerPGStore) CreateCollectible(ctx context.Context, collectible *schema.Collectible) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Checking for the duplicate explicitly keeps the returned error
		// the same across PostgreSQL and the SQLite used in tests.
		var count int64
		if err := tx.Model(&schema.Collectible{}).
			Where("gate_id = ?", collectible.GateID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check gate ID: %w", err)
		}
		if count > 0 {
			return domain.ErrGateIDAlreadyExists(collectible.GateID)
		}

		if err := tx.Create(collectible).Error; err != nil {
			return fmt.Errorf("failed to create collectible: %w", err)
		}
		return nil
	})
}

func (s *ledgerPGStore) GetCollectible(ctx context.Context, gateID string) (*schema.Collectible, error) {
	var collectible schema.Collectible
	err := s.db.WithContext(ctx).
		Preload("MintedTokens").
		Where("gate_id = ?", gateID).
		First(&collectible).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get collectible: %w", err)
	}
	return &collectible, nil
}

func (s *ledgerPGStore) DeleteCollectible(ctx context.Context, gateID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var collectible schema.Collectible
		if err := tx.Where("gate_id = ?", gateID).First(&collectible).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrGateIDNotFound(gateID)
			}
			return fmt.Errorf("failed to get collectible: %w", err)
		}

		var claimed int64
		if err := tx.Model(&schema.Token{}).
			Where("gate_id = ?", gateID).
			Count(&claimed).Error; err != nil {
			return fmt.Errorf("failed to count claimed tokens: %w", err)
		}
		if claimed > 0 {
			return domain.ErrGateIDHasTokens(gateID)
		}

		if err := tx.Delete(&collectible).Error; err != nil {
			return fmt.Errorf("failed to delete collectible: %w", err)
		}
		return nil
	})
}

func (s *ledgerPGStore) GetCollectiblesByCreator(ctx context.Context, creator string) ([]schema.Collectible, error) {
	var collectibles []schema.Collectible
	err := s.db.WithContext(ctx).
		Where("creator_id = ?", creator).
		Order("created_at ASC").
		Find(&collectibles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list collectibles: %w", err)
	}
	return collectibles, nil
}

func (s *ledgerPGStore) ClaimToken(ctx context.Context, gateID string, owner string, now int64) (*schema.Token, error) {
	var token *schema.Token
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var collectible schema.Collectible
		if err := tx.Where("gate_id = ?", gateID).First(&collectible).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrGateIDNotFound(gateID)
			}
			return fmt.Errorf("failed to get collectible: %w", err)
		}

		// The decrement is guarded by the current value so two racing
		// claims of the last copy cannot both succeed.
		result := tx.Model(&schema.Collectible{}).
			Where("gate_id = ? AND current_supply > 0", gateID).
			Update("current_supply", gorm.Expr("current_supply - 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to decrement supply: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrGateIDExhausted(gateID)
		}

		token = &schema.Token{
			GateID:     gateID,
			Owner:      owner,
			CreatedAt:  now,
			ModifiedAt: now,
		}
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("failed to create token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (s *ledgerPGStore) GetToken(ctx context.Context, tokenID domain.TokenID) (*schema.Token, error) {
	var token schema.Token
	err := s.db.WithContext(ctx).
		Preload("Approvals").
		Where("token_id = ?", tokenID).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &token, nil
}

func (s *ledgerPGStore) GetTokensByOwner(ctx context.Context, owner string) ([]schema.Token, error) {
	var tokens []schema.Token
	err := s.db.WithContext(ctx).
		Preload("Approvals").
		Where("owner_id = ?", owner).
		Order("token_id ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens by owner: %w", err)
	}
	return tokens, nil
}

func (s *ledgerPGStore) GetTokensByOwnerAndGate(ctx context.Context, owner string, gateID string) ([]schema.Token, error) {
	var tokens []schema.Token
	err := s.db.WithContext(ctx).
		Preload("Approvals").
		Where("owner_id = ? AND gate_id = ?", owner, gateID).
		Order("token_id ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens by owner and gate: %w", err)
	}
	return tokens, nil
}

func (s *ledgerPGStore) CountTokens(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&schema.Token{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return uint64(count), nil
}

func (s *ledgerPGStore) TransferToken(ctx context.Context, input TransferTokenInput) (*schema.Token, []schema.TokenApproval, error) {
	var (
		token   schema.Token
		cleared []schema.TokenApproval
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Load the token with its approvals
		if err := tx.Preload("Approvals").
			Where("token_id = ?", input.TokenID).
			First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenIDNotFound(input.TokenID)
			}
			return fmt.Errorf("failed to get token: %w", err)
		}

		// 2. Authorize the sender: the owner may always transfer, anyone
		// else needs an approval on this token
		if input.Sender != token.Owner {
			approval := token.ApprovalFor(input.Sender)
			if approval == nil {
				return domain.ErrSenderNotAuthToTransfer(input.Sender)
			}
			if input.ApprovalID != nil && approval.ApprovalID != *input.ApprovalID {
				return domain.ErrSenderNotAuthToTransfer(input.Sender)
			}
		}

		if input.Receiver == token.Owner {
			return domain.ErrReceiverIsOwner(input.TokenID)
		}

		// 3. Any ownership change invalidates outstanding approvals
		cleared = token.Approvals
		if len(cleared) > 0 {
			if err := tx.Where("token_id = ?", input.TokenID).
				Delete(&schema.TokenApproval{}).Error; err != nil {
				return fmt.Errorf("failed to clear approvals: %w", err)
			}
		}

		// 4. Move the token
		updates := map[string]any{
			"owner_id":    input.Receiver,
			"sender_id":   input.Sender,
			"modified_at": input.Now,
		}
		if err := tx.Model(&schema.Token{}).
			Where("token_id = ?", input.TokenID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update token owner: %w", err)
		}

		token.Owner = input.Receiver
		token.Sender = input.Sender
		token.ModifiedAt = input.Now
		token.Approvals = nil
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &token, cleared, nil
}

func (s *ledgerPGStore) BurnToken(ctx context.Context, tokenID domain.TokenID, caller string) (*schema.Token, error) {
	var token schema.Token
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Approvals").
			Where("token_id = ?", tokenID).
			First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenIDNotFound(tokenID)
			}
			return fmt.Errorf("failed to get token: %w", err)
		}

		if token.Owner != caller {
			return domain.ErrTokenIDNotOwnedBy(tokenID, caller)
		}

		if err := tx.Where("token_id = ?", tokenID).
			Delete(&schema.TokenApproval{}).Error; err != nil {
			return fmt.Errorf("failed to delete approvals: %w", err)
		}
		if err := tx.Where("token_id = ?", tokenID).
			Delete(&schema.Token{}).Error; err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}

		// A burned copy no longer counts towards the collectible's
		// reported copies. The claimable supply is not restored.
		if err := tx.Model(&schema.Collectible{}).
			Where("gate_id = ? AND copies > 0", token.GateID).
			Update("copies", gorm.Expr("copies - 1")).Error; err != nil {
			return fmt.Errorf("failed to decrement copies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *ledgerPGStore) AddApproval(ctx context.Context, input AddApprovalInput) (*schema.Token, *schema.TokenApproval, error) {
	var (
		token    schema.Token
		approval schema.TokenApproval
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Approvals").
			Where("token_id = ?", input.TokenID).
			First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenIDNotFound(input.TokenID)
			}
			return fmt.Errorf("failed to get token: %w", err)
		}

		if token.Owner != input.Caller {
			return domain.ErrTokenIDNotOwnedBy(input.TokenID, input.Caller)
		}
		if len(token.Approvals) > 0 {
			return domain.ErrOneApprovalAllowed()
		}

		token.ApprovalCounter++
		if err := tx.Model(&schema.Token{}).
			Where("token_id = ?", input.TokenID).
			Update("approval_counter", token.ApprovalCounter).Error; err != nil {
			return fmt.Errorf("failed to bump approval counter: %w", err)
		}

		approval = schema.TokenApproval{
			TokenID:    input.TokenID,
			Account:    input.Account,
			ApprovalID: token.ApprovalCounter,
			MinPrice:   input.MinPrice,
		}
		if err := tx.Create(&approval).Error; err != nil {
			return fmt.Errorf("failed to create approval: %w", err)
		}

		token.Approvals = []schema.TokenApproval{approval}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &token, &approval, nil
}

func (s *ledgerPGStore) RemoveApproval(ctx context.Context, tokenID domain.TokenID, caller string, account string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token schema.Token
		if err := tx.Where("token_id = ?", tokenID).First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenIDNotFound(tokenID)
			}
			return fmt.Errorf("failed to get token: %w", err)
		}

		if token.Owner != caller {
			return domain.ErrTokenIDNotOwnedBy(tokenID, caller)
		}

		result := tx.Where("token_id = ? AND account_id = ?", tokenID, account).
			Delete(&schema.TokenApproval{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete approval: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrRevokeApprovalFailed(account)
		}
		return nil
	})
}

func (s *ledgerPGStore) RemoveAllApprovals(ctx context.Context, tokenID domain.TokenID, caller string) ([]schema.TokenApproval, error) {
	var removed []schema.TokenApproval
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token schema.Token
		if err := tx.Preload("Approvals").
			Where("token_id = ?", tokenID).
			First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenIDNotFound(tokenID)
			}
			return fmt.Errorf("failed to get token: %w", err)
		}

		if token.Owner != caller {
			return domain.ErrTokenIDNotOwnedBy(tokenID, caller)
		}

		removed = token.Approvals
		if len(removed) > 0 {
			if err := tx.Where("token_id = ?", tokenID).
				Delete(&schema.TokenApproval{}).Error; err != nil {
				return fmt.Errorf("failed to delete approvals: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
