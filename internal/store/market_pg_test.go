package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/store"
	"github.com/mintgate/mg-ledger/internal/store/schema"
)

func testListing(tokenID domain.TokenID, owner string) *schema.TokenForSale {
	return &schema.TokenForSale{
		NftContractID: "nft",
		TokenID:       tokenID,
		Owner:         owner,
		ApprovalID:    1,
		MinPrice:      "1000",
		GateID:        "drop-1",
		Creator:       "alice",
		ListedAt:      5000,
	}
}

func TestUpsertTokenForSale(t *testing.T) {
	ctx := context.Background()
	s := store.NewMarketStore(openTestDB(t))

	require.NoError(t, s.UpsertTokenForSale(ctx, testListing(1, "bob")))

	got, err := s.GetTokenForSale(ctx, "nft", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Balance("1000"), got.MinPrice)

	// Re-approval replaces the listing terms
	refreshed := testListing(1, "bob")
	refreshed.ApprovalID = 2
	refreshed.MinPrice = "2500"
	require.NoError(t, s.UpsertTokenForSale(ctx, refreshed))

	got, err = s.GetTokenForSale(ctx, "nft", 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.ApprovalID)
	assert.Equal(t, domain.Balance("2500"), got.MinPrice)

	all, err := s.GetTokensForSale(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRemoveTokenForSale(t *testing.T) {
	ctx := context.Background()
	s := store.NewMarketStore(openTestDB(t))

	_, err := s.RemoveTokenForSale(ctx, "nft", 1)
	assert.Equal(t, domain.TagTokenKeyNotFound, domain.TagOf(err))

	require.NoError(t, s.UpsertTokenForSale(ctx, testListing(1, "bob")))

	removed, err := s.RemoveTokenForSale(ctx, "nft", 1)
	require.NoError(t, err)
	assert.Equal(t, "bob", removed.Owner)

	got, err := s.GetTokenForSale(ctx, "nft", 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListingIndexes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMarketStore(openTestDB(t))

	first := testListing(1, "bob")
	second := testListing(2, "carol")
	second.GateID = "drop-2"
	second.Creator = "dan"
	third := testListing(3, "bob")

	for _, l := range []*schema.TokenForSale{first, second, third} {
		require.NoError(t, s.UpsertTokenForSale(ctx, l))
	}

	byOwner, err := s.GetTokensForSaleByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byGate, err := s.GetTokensForSaleByGate(ctx, "drop-2")
	require.NoError(t, err)
	require.Len(t, byGate, 1)
	assert.Equal(t, domain.TokenID(2), byGate[0].TokenID)

	byCreator, err := s.GetTokensForSaleByCreator(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, byCreator, 2)
}

func TestSettleSale(t *testing.T) {
	ctx := context.Background()
	s := store.NewMarketStore(openTestDB(t))

	require.NoError(t, s.UpsertTokenForSale(ctx, testListing(1, "bob")))

	payout := domain.Payout{
		"marketplace": "50",
		"alice":       "300",
		"bob":         "1650",
	}
	receiptID := uuid.NewString()
	receipt, err := s.SettleSale(ctx, store.SettleSaleInput{
		ReceiptID:     receiptID,
		NftContractID: "nft",
		TokenID:       1,
		Buyer:         "carol",
		Seller:        "bob",
		Price:         "2000",
		Payout:        payout,
		Now:           6000,
	})
	require.NoError(t, err)
	assert.Equal(t, receiptID, receipt.ID)

	// Listing is gone
	got, err := s.GetTokenForSale(ctx, "nft", 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Receivers got credited
	for account, expected := range payout {
		balance, err := s.GetAccountBalance(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, expected, balance, account)
	}

	// Unpaid accounts read as zero
	balance, err := s.GetAccountBalance(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.Balance("0"), balance)

	// The receipt snapshot carries the payout
	stored, err := s.GetSaleReceipt(ctx, receiptID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	var snapshot domain.Payout
	require.NoError(t, json.Unmarshal(stored.Payout, &snapshot))
	assert.Equal(t, payout, snapshot)

	// Settling the same token twice fails
	_, err = s.SettleSale(ctx, store.SettleSaleInput{
		ReceiptID:     uuid.NewString(),
		NftContractID: "nft",
		TokenID:       1,
		Buyer:         "carol",
		Seller:        "bob",
		Price:         "2000",
		Payout:        payout,
		Now:           6100,
	})
	assert.Equal(t, domain.TagTokenKeyNotFound, domain.TagOf(err))
}

func TestBalancesAccumulateAcrossSales(t *testing.T) {
	ctx := context.Background()
	s := store.NewMarketStore(openTestDB(t))

	for i, tokenID := range []domain.TokenID{1, 2} {
		require.NoError(t, s.UpsertTokenForSale(ctx, testListing(tokenID, "bob")))
		_, err := s.SettleSale(ctx, store.SettleSaleInput{
			ReceiptID:     uuid.NewString(),
			NftContractID: "nft",
			TokenID:       tokenID,
			Buyer:         "carol",
			Seller:        "bob",
			Price:         "2000",
			Payout:        domain.Payout{"marketplace": "50", "bob": "1950"},
			Now:           int64(6000 + i),
		})
		require.NoError(t, err)
	}

	balance, err := s.GetAccountBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.Balance("3900"), balance)
}
