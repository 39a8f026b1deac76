// Package ledger implements the NFT side of the system: collectibles
// registered under gate IDs, token claims, transfers, approvals and the
// payout computation that settles marketplace sales.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mintgate/mg-ledger/internal/adapter"
	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/logger"
	"github.com/mintgate/mg-ledger/internal/messaging"
	"github.com/mintgate/mg-ledger/internal/store"
	"github.com/mintgate/mg-ledger/internal/store/schema"
)

// Config holds the deployment parameters of one NFT ledger
type Config struct {
	// ContractID is the account name this ledger runs under, used as the
	// source of its approval events
	ContractID string
	// Admin may delete any collectible regardless of creator
	Admin string
	// MinRoyalty and MaxRoyalty bound the royalty of new collectibles
	MinRoyalty domain.Fraction
	MaxRoyalty domain.Fraction
	// Fee is the platform's cut of every sale, paid to FeeAccount
	Fee        domain.Fraction
	FeeAccount string
	// Metadata describes the deployment to clients
	Metadata domain.ContractMetadata
}

// Service is the NFT ledger
type Service struct {
	cfg       Config
	store     store.LedgerStore
	publisher messaging.Publisher
	clock     adapter.Clock
}

// New creates an NFT ledger after validating its deployment parameters
func New(cfg Config, st store.LedgerStore, publisher messaging.Publisher, clock adapter.Clock) (*Service, error) {
	if err := cfg.MinRoyalty.Check(); err != nil {
		return nil, err
	}
	if err := cfg.MaxRoyalty.Check(); err != nil {
		return nil, err
	}
	if err := cfg.Fee.Check(); err != nil {
		return nil, err
	}
	if cfg.MinRoyalty.Cmp(cfg.MaxRoyalty) > 0 {
		return nil, domain.ErrMinGreaterThanMax(cfg.MinRoyalty, cfg.MaxRoyalty)
	}

	return &Service{
		cfg:       cfg,
		store:     st,
		publisher: publisher,
		clock:     clock,
	}, nil
}

// ContractID returns the account name of this ledger
func (s *Service) ContractID() string {
	return s.cfg.ContractID
}

// Metadata returns the deployment metadata
func (s *Service) Metadata() domain.ContractMetadata {
	return s.cfg.Metadata
}

// CreateCollectibleInput carries the arguments of a collectible registration
type CreateCollectibleInput struct {
	Creator       string
	GateID        string
	Title         *string
	Description   *string
	Supply        uint64
	Royalty       domain.Fraction
	Media         *string
	MediaHash     *string
	Reference     *string
	ReferenceHash *string
}

// CreateCollectible registers a new collectible under its gate ID
func (s *Service) CreateCollectible(ctx context.Context, input CreateCollectibleInput) (*schema.Collectible, error) {
	if err := domain.CheckGateID(input.GateID); err != nil {
		return nil, err
	}
	if input.Supply == 0 {
		return nil, domain.ErrZeroSupplyNotAllowed(input.GateID)
	}
	if err := input.Royalty.Check(); err != nil {
		return nil, err
	}
	if input.Royalty.Cmp(s.cfg.MinRoyalty) < 0 {
		return nil, domain.ErrRoyaltyMinThanAllowed(input.Royalty, input.GateID)
	}
	if input.Royalty.Cmp(s.cfg.MaxRoyalty) > 0 {
		return nil, domain.ErrRoyaltyMaxThanAllowed(input.Royalty, input.GateID)
	}
	// The royalty and the platform fee together must leave something
	// for the selling owner
	if input.Royalty.SumExceedsOne(s.cfg.Fee) {
		return nil, domain.ErrRoyaltyTooLarge(input.Royalty, s.cfg.Fee)
	}

	collectible := &schema.Collectible{
		GateID:        input.GateID,
		Creator:       input.Creator,
		CurrentSupply: input.Supply,
		Royalty:       input.Royalty,
		CreatedAt:     s.clock.NowNano(),
		Metadata: schema.CollectibleMetadata{
			Title:         input.Title,
			Description:   input.Description,
			Media:         input.Media,
			MediaHash:     input.MediaHash,
			Copies:        input.Supply,
			Reference:     input.Reference,
			ReferenceHash: input.ReferenceHash,
		},
	}
	if err := s.store.CreateCollectible(ctx, collectible); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Collectible created",
		zap.String("gateID", input.GateID),
		zap.String("creator", input.Creator),
		zap.Uint64("supply", input.Supply))
	return collectible, nil
}

// GetCollectible retrieves a collectible by gate ID
func (s *Service) GetCollectible(ctx context.Context, gateID string) (*schema.Collectible, error) {
	collectible, err := s.store.GetCollectible(ctx, gateID)
	if err != nil {
		return nil, err
	}
	if collectible == nil {
		return nil, domain.ErrGateIDNotFound(gateID)
	}
	return collectible, nil
}

// GetCollectiblesByCreator lists the collectibles registered by a creator
func (s *Service) GetCollectiblesByCreator(ctx context.Context, creator string) ([]schema.Collectible, error) {
	return s.store.GetCollectiblesByCreator(ctx, creator)
}

// DeleteCollectible removes an unclaimed collectible. Only its creator or
// the ledger admin may do so.
func (s *Service) DeleteCollectible(ctx context.Context, caller string, gateID string) error {
	collectible, err := s.GetCollectible(ctx, gateID)
	if err != nil {
		return err
	}
	if caller != collectible.Creator && caller != s.cfg.Admin {
		return domain.ErrNotAuthorized(gateID)
	}
	if err := s.store.DeleteCollectible(ctx, gateID); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Collectible deleted",
		zap.String("gateID", gateID),
		zap.String("caller", caller))
	return nil
}

// ClaimToken mints the next copy of a collectible to the caller
func (s *Service) ClaimToken(ctx context.Context, caller string, gateID string) (*schema.Token, error) {
	token, err := s.store.ClaimToken(ctx, gateID, caller, s.clock.NowNano())
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Token claimed",
		zap.String("gateID", gateID),
		zap.String("owner", caller),
		zap.String("tokenID", token.ID.String()))
	return token, nil
}

// GetToken retrieves a token by ID
func (s *Service) GetToken(ctx context.Context, tokenID domain.TokenID) (*schema.Token, error) {
	token, err := s.store.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, domain.ErrTokenIDNotFound(tokenID)
	}
	return token, nil
}

// GetTokensByOwner lists the tokens held by an account
func (s *Service) GetTokensByOwner(ctx context.Context, owner string) ([]schema.Token, error) {
	return s.store.GetTokensByOwner(ctx, owner)
}

// GetTokensByOwnerAndGate lists an account's tokens from one collectible
func (s *Service) GetTokensByOwnerAndGate(ctx context.Context, owner string, gateID string) ([]schema.Token, error) {
	if err := domain.CheckGateID(gateID); err != nil {
		return nil, err
	}
	return s.store.GetTokensByOwnerAndGate(ctx, owner, gateID)
}

// TotalSupply returns the number of claimed tokens across all collectibles
func (s *Service) TotalSupply(ctx context.Context) (uint64, error) {
	return s.store.CountTokens(ctx)
}

// TransferInput carries the arguments of a direct transfer call
type TransferInput struct {
	Receiver string
	TokenID  domain.TokenID
	// EnforceApprovalID, when set, requires the caller's approval to carry
	// exactly this ID. Only meaningful for approved non-owner senders.
	EnforceApprovalID *uint64
	Memo              *string
}

// Transfer moves a token from the caller to the receiver. The caller must
// be the owner or hold an approval on the token.
func (s *Service) Transfer(ctx context.Context, caller string, input TransferInput) (*schema.Token, error) {
	token, cleared, err := s.store.TransferToken(ctx, store.TransferTokenInput{
		TokenID:    input.TokenID,
		Sender:     caller,
		Receiver:   input.Receiver,
		ApprovalID: input.EnforceApprovalID,
		Now:        s.clock.NowNano(),
	})
	if err != nil {
		return nil, err
	}

	s.publishRevokes(ctx, input.TokenID, cleared, caller)

	fields := []zap.Field{
		zap.String("tokenID", input.TokenID.String()),
		zap.String("from", caller),
		zap.String("to", input.Receiver),
	}
	if input.Memo != nil {
		fields = append(fields, zap.String("memo", *input.Memo))
	}
	logger.InfoCtx(ctx, "Token transferred", fields...)
	return token, nil
}

// BurnToken deletes a token owned by the caller and revokes its approvals
func (s *Service) BurnToken(ctx context.Context, caller string, tokenID domain.TokenID) error {
	burned, err := s.store.BurnToken(ctx, tokenID, caller)
	if err != nil {
		return err
	}

	s.publishRevokes(ctx, tokenID, burned.Approvals, "")

	logger.InfoCtx(ctx, "Token burned",
		zap.String("tokenID", tokenID.String()),
		zap.String("owner", caller))
	return nil
}

// Approve grants account the right to transfer the caller's token and
// notifies it with the owner's sale terms. msg must carry the min_price.
func (s *Service) Approve(ctx context.Context, caller string, tokenID domain.TokenID, account string, msg string) (*schema.TokenApproval, error) {
	parsed, err := domain.ParseNftApproveMsg(msg)
	if err != nil {
		return nil, err
	}

	token, approval, err := s.store.AddApproval(ctx, store.AddApprovalInput{
		TokenID:  tokenID,
		Caller:   caller,
		Account:  account,
		MinPrice: parsed.MinPrice,
	})
	if err != nil {
		return nil, err
	}

	collectible, err := s.GetCollectible(ctx, token.GateID)
	if err != nil {
		return nil, err
	}

	marketMsg, err := json.Marshal(domain.MarketApproveMsg{
		MinPrice: parsed.MinPrice,
		GateID:   token.GateID,
		Creator:  collectible.Creator,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal market msg: %w", err)
	}

	s.publish(ctx, &domain.ApprovalEvent{
		Type:          domain.ApprovalEventApprove,
		NftContractID: s.cfg.ContractID,
		TokenID:       tokenID,
		OwnerID:       token.Owner,
		ApprovalID:    approval.ApprovalID,
		Msg:           string(marketMsg),
		Timestamp:     s.clock.NowNano(),
	})
	return approval, nil
}

// BatchApproveItem pairs a token with its own minimum sale price
type BatchApproveItem struct {
	TokenID  domain.TokenID `json:"token_id"`
	MinPrice domain.Balance `json:"min_price"`
}

// BatchApproveResult reports which tokens of a batch were approved
type BatchApproveResult struct {
	Approved []domain.TokenID
	// Failed is nil when every token was approved
	Failed *domain.BatchError
}

// BatchApprove approves every given token for account, each at its own
// minimum price. Tokens that cannot be approved are skipped and reported;
// the rest go through.
func (s *Service) BatchApprove(ctx context.Context, caller string, tokens []BatchApproveItem, account string) (*BatchApproveResult, error) {
	result := &BatchApproveResult{}
	failures := make(map[domain.TokenID]*domain.Error)
	for _, item := range tokens {
		msg, err := json.Marshal(domain.NftApproveMsg{MinPrice: item.MinPrice})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal approve msg: %w", err)
		}
		if _, err := s.Approve(ctx, caller, item.TokenID, account, string(msg)); err != nil {
			var tagged *domain.Error
			if !errors.As(err, &tagged) {
				return nil, err
			}
			failures[item.TokenID] = tagged
			continue
		}
		result.Approved = append(result.Approved, item.TokenID)
	}

	if len(failures) > 0 {
		result.Failed = &domain.BatchError{Failures: failures}
	}
	return result, nil
}

// Revoke withdraws the approval granted to account and notifies it
func (s *Service) Revoke(ctx context.Context, caller string, tokenID domain.TokenID, account string) error {
	if err := s.store.RemoveApproval(ctx, tokenID, caller, account); err != nil {
		return err
	}

	s.publish(ctx, &domain.ApprovalEvent{
		Type:          domain.ApprovalEventRevoke,
		NftContractID: s.cfg.ContractID,
		TokenID:       tokenID,
		OwnerID:       caller,
		Timestamp:     s.clock.NowNano(),
	})
	return nil
}

// RevokeAll withdraws every approval on the caller's token
func (s *Service) RevokeAll(ctx context.Context, caller string, tokenID domain.TokenID) error {
	removed, err := s.store.RemoveAllApprovals(ctx, tokenID, caller)
	if err != nil {
		return err
	}

	s.publishRevokes(ctx, tokenID, removed, "")
	return nil
}

// Payout reports how a sale of the token at the given balance would be
// split between the platform, the creator and the current owner. Nothing
// is mutated.
func (s *Service) Payout(ctx context.Context, tokenID domain.TokenID, balance domain.Balance) (domain.Payout, error) {
	token, err := s.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return s.payoutFor(ctx, token, balance)
}

func (s *Service) payoutFor(ctx context.Context, token *schema.Token, balance domain.Balance) (domain.Payout, error) {
	collectible, err := s.GetCollectible(ctx, token.GateID)
	if err != nil {
		return nil, err
	}
	value, err := balance.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	return domain.ComputePayout(value, domain.SaleTerms{
		Fee:        s.cfg.Fee,
		FeeAccount: s.cfg.FeeAccount,
		Royalty:    collectible.Royalty,
		Creator:    collectible.Creator,
		Owner:      token.Owner,
	}), nil
}

// TransferPayout is the settlement call of a marketplace sale: the caller
// must hold an approval on the token, which then moves to the receiver.
// When a balance is given, the payout split for that balance is returned.
func (s *Service) TransferPayout(ctx context.Context, caller string, input domain.TransferPayoutRequest) (domain.Payout, error) {
	token, err := s.GetToken(ctx, input.TokenID)
	if err != nil {
		return nil, err
	}
	seller := token.Owner

	var payout domain.Payout
	if input.Balance != nil {
		payout, err = s.payoutFor(ctx, token, *input.Balance)
		if err != nil {
			return nil, err
		}
	}

	// The payout above is only advisory until the transfer commits
	_, cleared, err := s.store.TransferToken(ctx, store.TransferTokenInput{
		TokenID:    input.TokenID,
		Sender:     caller,
		Receiver:   input.Receiver,
		ApprovalID: input.ApprovalID,
		Now:        s.clock.NowNano(),
	})
	if err != nil {
		return nil, err
	}

	s.publishRevokes(ctx, input.TokenID, cleared, caller)

	logger.InfoCtx(ctx, "Token sold and transferred",
		zap.String("tokenID", input.TokenID.String()),
		zap.String("seller", seller),
		zap.String("receiver", input.Receiver),
		zap.String("marketplace", caller))
	return payout, nil
}

// publishRevokes notifies every cleared approval holder except skip, which
// is the account that caused the clearing and already knows.
func (s *Service) publishRevokes(ctx context.Context, tokenID domain.TokenID, approvals []schema.TokenApproval, skip string) {
	for _, approval := range approvals {
		if approval.Account == skip {
			continue
		}
		s.publish(ctx, &domain.ApprovalEvent{
			Type:          domain.ApprovalEventRevoke,
			NftContractID: s.cfg.ContractID,
			TokenID:       tokenID,
			Timestamp:     s.clock.NowNano(),
		})
	}
}

// publish sends an approval event. Delivery is best effort: the state
// change already committed, so a broker outage is logged and the
// marketplace reconciles from redeliveries or later events.
func (s *Service) publish(ctx context.Context, event *domain.ApprovalEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishApproval(ctx, event); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Failed to publish approval event"),
			zap.String("type", string(event.Type)),
			zap.String("tokenID", event.TokenID.String()))
	}
}
