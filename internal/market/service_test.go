package market_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mintgate/mg-ledger/internal/adapter"
	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/market"
	"github.com/mintgate/mg-ledger/internal/store"
)

// fakeLedger records settlement calls and returns a canned payout
type fakeLedger struct {
	calls  []domain.TransferPayoutRequest
	payout domain.Payout
	err    error
}

func (f *fakeLedger) TransferPayout(_ context.Context, _ string, input domain.TransferPayoutRequest) (domain.Payout, error) {
	f.calls = append(f.calls, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.payout, nil
}

func newTestService(t *testing.T, ledger market.LedgerCaller) *market.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	clock := &adapter.FixedClock{Instant: time.Unix(1700000000, 0)}
	return market.New(market.Config{ContractID: "market.mintgate.test"}, store.NewMarketStore(db), ledger, clock)
}

func approveEvent(t *testing.T, tokenID domain.TokenID, owner string, approvalID uint64, minPrice, gateID, creator string) *domain.ApprovalEvent {
	t.Helper()
	msg, err := json.Marshal(domain.MarketApproveMsg{
		MinPrice: domain.Balance(minPrice),
		GateID:   gateID,
		Creator:  creator,
	})
	require.NoError(t, err)
	return &domain.ApprovalEvent{
		Type:          domain.ApprovalEventApprove,
		NftContractID: "nft.mintgate.test",
		TokenID:       tokenID,
		OwnerID:       owner,
		ApprovalID:    approvalID,
		Msg:           string(msg),
		Timestamp:     time.Now().UnixNano(),
	}
}

func TestNftOnApprove(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &fakeLedger{})

	require.NoError(t, svc.HandleApprovalEvent(ctx, approveEvent(t, 7, "bob", 1, "1000", "drop-1", "alice")))

	listings, err := svc.GetTokensForSale(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "nft.mintgate.test", listings[0].NftContractID)
	assert.Equal(t, domain.TokenID(7), listings[0].TokenID)
	assert.Equal(t, "bob", listings[0].Owner)
	assert.Equal(t, uint64(1), listings[0].ApprovalID)
	assert.Equal(t, domain.Balance("1000"), listings[0].MinPrice)
	assert.Equal(t, "drop-1", listings[0].GateID)
	assert.Equal(t, "alice", listings[0].Creator)

	// A second approval for the same token replaces the terms
	require.NoError(t, svc.HandleApprovalEvent(ctx, approveEvent(t, 7, "bob", 2, "2500", "drop-1", "alice")))
	listings, err = svc.GetTokensForSale(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, uint64(2), listings[0].ApprovalID)
	assert.Equal(t, domain.Balance("2500"), listings[0].MinPrice)
}

func TestBatchOnApprove(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &fakeLedger{})

	msg := func(minPrice string) string {
		data, err := json.Marshal(domain.MarketApproveMsg{
			MinPrice: domain.Balance(minPrice),
			GateID:   "drop-1",
			Creator:  "alice",
		})
		require.NoError(t, err)
		return string(data)
	}

	require.NoError(t, svc.BatchOnApprove(ctx, "nft.mintgate.test", "bob", []market.BatchOnApproveItem{
		{TokenID: 7, ApprovalID: 1, Msg: msg("1000")},
		{TokenID: 8, ApprovalID: 1, Msg: msg("1500")},
	}))

	listings, err := svc.GetTokensForSaleByOwner(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, domain.Balance("1000"), listings[0].MinPrice)
	assert.Equal(t, domain.Balance("1500"), listings[1].MinPrice)

	// A bad item stops the batch, keeping the listings made before it
	err = svc.BatchOnApprove(ctx, "nft.mintgate.test", "bob", []market.BatchOnApproveItem{
		{TokenID: 9, ApprovalID: 1, Msg: msg("2000")},
		{TokenID: 10, ApprovalID: 1, Msg: `{"gate_id":"drop-1"}`},
	})
	assert.Equal(t, domain.TagMsgFormatMinPriceMissing, domain.TagOf(err))

	listings, err = svc.GetTokensForSaleByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, listings, 3)
}

func TestNftOnApproveRejectsBadMsg(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &fakeLedger{})

	event := approveEvent(t, 7, "bob", 1, "1000", "drop-1", "alice")
	event.Msg = `{"gate_id":"drop-1"}`
	err := svc.HandleApprovalEvent(ctx, event)
	assert.Equal(t, domain.TagMsgFormatMinPriceMissing, domain.TagOf(err))

	event.Msg = "not json"
	err = svc.HandleApprovalEvent(ctx, event)
	assert.Equal(t, domain.TagMsgFormatNotRecognized, domain.TagOf(err))
}

func TestNftOnRevoke(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &fakeLedger{})
	require.NoError(t, svc.HandleApprovalEvent(ctx, approveEvent(t, 7, "bob", 1, "1000", "drop-1", "alice")))

	require.NoError(t, svc.HandleApprovalEvent(ctx, &domain.ApprovalEvent{
		Type:          domain.ApprovalEventRevoke,
		NftContractID: "nft.mintgate.test",
		TokenID:       7,
	}))

	listings, err := svc.GetTokensForSale(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)

	// Revoking an unknown listing is an error the bridge treats as terminal
	err = svc.NftOnRevoke(ctx, "nft.mintgate.test", 7)
	assert.Equal(t, domain.TagTokenKeyNotFound, domain.TagOf(err))
}

func TestListingQueries(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &fakeLedger{})
	require.NoError(t, svc.NftOnApprove(ctx, approveEvent(t, 1, "bob", 1, "1000", "drop-1", "alice")))
	require.NoError(t, svc.NftOnApprove(ctx, approveEvent(t, 2, "carol", 1, "1500", "drop-1", "alice")))
	require.NoError(t, svc.NftOnApprove(ctx, approveEvent(t, 3, "bob", 1, "800", "drop-2", "dan")))

	byOwner, err := svc.GetTokensForSaleByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byGate, err := svc.GetTokensForSaleByGate(ctx, "drop-1")
	require.NoError(t, err)
	assert.Len(t, byGate, 2)

	_, err = svc.GetTokensForSaleByGate(ctx, "bad gate id!")
	assert.Equal(t, domain.TagInvalidGateIDFormat, domain.TagOf(err))

	byCreator, err := svc.GetTokensForSaleByCreator(ctx, "dan")
	require.NoError(t, err)
	assert.Len(t, byCreator, 1)
	assert.Equal(t, domain.TokenID(3), byCreator[0].TokenID)
}

func TestBuyTokenValidation(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{}
	svc := newTestService(t, ledger)
	require.NoError(t, svc.NftOnApprove(ctx, approveEvent(t, 7, "bob", 1, "1000", "drop-1", "alice")))

	_, err := svc.BuyToken(ctx, "carol", "nft.mintgate.test", 99, "2000")
	assert.Equal(t, domain.TagTokenKeyNotFound, domain.TagOf(err))

	_, err = svc.BuyToken(ctx, "bob", "nft.mintgate.test", 7, "2000")
	assert.Equal(t, domain.TagBuyOwnTokenNotAllowed, domain.TagOf(err))

	_, err = svc.BuyToken(ctx, "carol", "nft.mintgate.test", 7, "999")
	assert.Equal(t, domain.TagNotEnoughDepositToBuy, domain.TagOf(err))

	// No settlement was attempted
	assert.Empty(t, ledger.calls)
}

func TestBuyTokenRejectedByLedger(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{err: domain.ErrSenderNotAuthToTransfer("market.mintgate.test")}
	svc := newTestService(t, ledger)
	require.NoError(t, svc.NftOnApprove(ctx, approveEvent(t, 7, "bob", 1, "1000", "drop-1", "alice")))

	_, err := svc.BuyToken(ctx, "carol", "nft.mintgate.test", 7, "2000")
	assert.Equal(t, domain.TagSenderNotAuthToTransfer, domain.TagOf(err))

	// The rejected listing stays in place
	listings, err := svc.GetTokensForSale(ctx)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestBuyTokenSettles(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{payout: domain.Payout{
		"fees.mintgate.test": "50",
		"alice":              "300",
		"bob":                "1650",
	}}
	svc := newTestService(t, ledger)
	require.NoError(t, svc.NftOnApprove(ctx, approveEvent(t, 7, "bob", 1, "1000", "drop-1", "alice")))

	receipt, err := svc.BuyToken(ctx, "carol", "nft.mintgate.test", 7, "2000")
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, "carol", receipt.Buyer)
	assert.Equal(t, "bob", receipt.Seller)
	assert.Equal(t, domain.Balance("2000"), receipt.Price)

	// The ledger was called under our approval with the full deposit
	require.Len(t, ledger.calls, 1)
	call := ledger.calls[0]
	assert.Equal(t, "carol", call.Receiver)
	assert.Equal(t, domain.TokenID(7), call.TokenID)
	require.NotNil(t, call.ApprovalID)
	assert.Equal(t, uint64(1), *call.ApprovalID)
	require.NotNil(t, call.Balance)
	assert.Equal(t, domain.Balance("2000"), *call.Balance)

	// The listing is gone and the payout receivers are credited
	listings, err := svc.GetTokensForSale(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)

	for account, amount := range ledger.payout {
		balance, err := svc.GetAccountBalance(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, amount, balance, account)
	}

	// The receipt can be fetched back with its payout snapshot
	stored, err := svc.GetSaleReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, receipt.ID, stored.ID)
}
