// Package market implements the marketplace escrow: it tracks tokens it
// has been approved to sell, settles purchases against the NFT ledger and
// credits sale proceeds to the payout receivers.
package market

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mintgate/mg-ledger/internal/adapter"
	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/logger"
	"github.com/mintgate/mg-ledger/internal/store"
	"github.com/mintgate/mg-ledger/internal/store/schema"
)

// LedgerCaller is the marketplace's synchronous line to an NFT ledger.
// Implementations talk HTTP in production and call the ledger service
// directly in tests.
type LedgerCaller interface {
	// TransferPayout asks the ledger to move the token to the buyer and
	// return how the deposit should be split
	TransferPayout(ctx context.Context, nftContractID string, input domain.TransferPayoutRequest) (domain.Payout, error)
}

// Config holds the deployment parameters of one marketplace
type Config struct {
	// ContractID is the account name this marketplace runs under. Approvals
	// must be granted to it for a listing to exist.
	ContractID string
}

// Service is the marketplace
type Service struct {
	cfg    Config
	store  store.MarketStore
	ledger LedgerCaller
	clock  adapter.Clock
}

// New creates a marketplace
func New(cfg Config, st store.MarketStore, ledger LedgerCaller, clock adapter.Clock) *Service {
	return &Service{
		cfg:    cfg,
		store:  st,
		ledger: ledger,
		clock:  clock,
	}
}

// ContractID returns the account name of this marketplace
func (s *Service) ContractID() string {
	return s.cfg.ContractID
}

// HandleApprovalEvent dispatches an approval stream event. It is the
// handler the bridge delivers into.
func (s *Service) HandleApprovalEvent(ctx context.Context, event *domain.ApprovalEvent) error {
	switch event.Type {
	case domain.ApprovalEventApprove:
		return s.NftOnApprove(ctx, event)
	case domain.ApprovalEventRevoke:
		return s.NftOnRevoke(ctx, event.NftContractID, event.TokenID)
	default:
		return fmt.Errorf("unknown approval event type: %s", event.Type)
	}
}

// NftOnApprove lists a token for sale from an approval notification
func (s *Service) NftOnApprove(ctx context.Context, event *domain.ApprovalEvent) error {
	msg, err := domain.ParseMarketApproveMsg(event.Msg)
	if err != nil {
		return err
	}

	listing := &schema.TokenForSale{
		NftContractID: event.NftContractID,
		TokenID:       event.TokenID,
		Owner:         event.OwnerID,
		ApprovalID:    event.ApprovalID,
		MinPrice:      msg.MinPrice,
		GateID:        msg.GateID,
		Creator:       msg.Creator,
		ListedAt:      s.clock.NowNano(),
	}
	if err := s.store.UpsertTokenForSale(ctx, listing); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Token listed for sale",
		zap.String("nftContractID", event.NftContractID),
		zap.String("tokenID", event.TokenID.String()),
		zap.String("owner", event.OwnerID),
		zap.String("minPrice", string(msg.MinPrice)))
	return nil
}

// BatchOnApproveItem is one token of a bulk listing notification. The msg
// carries the owner's sale terms exactly as in a single notification.
type BatchOnApproveItem struct {
	TokenID    domain.TokenID `json:"token_id"`
	ApprovalID uint64         `json:"approval_id"`
	Msg        string         `json:"msg"`
}

// BatchOnApprove lists several tokens of one owner at once. Each item goes
// through the same path as a single approval notification; a bad item
// stops the fold, leaving the earlier listings committed.
func (s *Service) BatchOnApprove(ctx context.Context, nftContractID string, owner string, items []BatchOnApproveItem) error {
	for _, item := range items {
		err := s.NftOnApprove(ctx, &domain.ApprovalEvent{
			Type:          domain.ApprovalEventApprove,
			NftContractID: nftContractID,
			TokenID:       item.TokenID,
			OwnerID:       owner,
			ApprovalID:    item.ApprovalID,
			Msg:           item.Msg,
		})
		if err != nil {
			return fmt.Errorf("failed to list token %s: %w", item.TokenID, err)
		}
	}
	return nil
}

// NftOnRevoke delists a token after its approval was revoked
func (s *Service) NftOnRevoke(ctx context.Context, nftContractID string, tokenID domain.TokenID) error {
	removed, err := s.store.RemoveTokenForSale(ctx, nftContractID, tokenID)
	if err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Token delisted",
		zap.String("nftContractID", nftContractID),
		zap.String("tokenID", tokenID.String()),
		zap.String("owner", removed.Owner))
	return nil
}

// GetTokensForSale lists every active listing
func (s *Service) GetTokensForSale(ctx context.Context) ([]schema.TokenForSale, error) {
	return s.store.GetTokensForSale(ctx)
}

// GetTokensForSaleByOwner lists the active listings of one seller
func (s *Service) GetTokensForSaleByOwner(ctx context.Context, owner string) ([]schema.TokenForSale, error) {
	return s.store.GetTokensForSaleByOwner(ctx, owner)
}

// GetTokensForSaleByGate lists the active listings of one collectible
func (s *Service) GetTokensForSaleByGate(ctx context.Context, gateID string) ([]schema.TokenForSale, error) {
	if err := domain.CheckGateID(gateID); err != nil {
		return nil, err
	}
	return s.store.GetTokensForSaleByGate(ctx, gateID)
}

// GetTokensForSaleByCreator lists the active listings of one creator
func (s *Service) GetTokensForSaleByCreator(ctx context.Context, creator string) ([]schema.TokenForSale, error) {
	return s.store.GetTokensForSaleByCreator(ctx, creator)
}

// GetAccountBalance returns the accumulated sale proceeds of an account
func (s *Service) GetAccountBalance(ctx context.Context, account string) (domain.Balance, error) {
	return s.store.GetAccountBalance(ctx, account)
}

// GetSaleReceipt retrieves a settled sale by receipt ID
func (s *Service) GetSaleReceipt(ctx context.Context, id string) (*schema.SaleReceipt, error) {
	return s.store.GetSaleReceipt(ctx, id)
}

// BuyToken purchases a listed token. The buyer's full deposit becomes the
// sale price: it must cover the owner's minimum, and every unit of it is
// paid out to the fee account, the creator and the seller.
func (s *Service) BuyToken(ctx context.Context, buyer string, nftContractID string, tokenID domain.TokenID, deposit domain.Balance) (*schema.SaleReceipt, error) {
	listing, err := s.store.GetTokenForSale(ctx, nftContractID, tokenID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrTokenKeyNotFound(nftContractID, tokenID)
	}
	if listing.Owner == buyer {
		return nil, domain.ErrBuyOwnTokenNotAllowed()
	}

	depositValue, err := deposit.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse deposit: %w", err)
	}
	minPrice, err := listing.MinPrice.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing min price: %w", err)
	}
	if depositValue.Lt(minPrice) {
		return nil, domain.ErrNotEnoughDepositToBuyToken()
	}

	// The ledger transfers the token under our approval and tells us how
	// to split the deposit
	payout, err := s.ledger.TransferPayout(ctx, nftContractID, domain.TransferPayoutRequest{
		Receiver:   buyer,
		TokenID:    tokenID,
		ApprovalID: &listing.ApprovalID,
		Balance:    &deposit,
	})
	if err != nil {
		return nil, err
	}

	receipt, err := s.store.SettleSale(ctx, store.SettleSaleInput{
		ReceiptID:     uuid.NewString(),
		NftContractID: nftContractID,
		TokenID:       tokenID,
		Buyer:         buyer,
		Seller:        listing.Owner,
		Price:         deposit,
		Payout:        payout,
		Now:           s.clock.NowNano(),
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Token sold",
		zap.String("nftContractID", nftContractID),
		zap.String("tokenID", tokenID.String()),
		zap.String("buyer", buyer),
		zap.String("seller", listing.Owner),
		zap.String("price", string(deposit)))
	return receipt, nil
}
