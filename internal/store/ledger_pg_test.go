package store_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/store"
	"github.com/mintgate/mg-ledger/internal/store/schema"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return db
}

func strPtr(s string) *string { return &s }

func testCollectible(gateID, creator string, supply uint64) *schema.Collectible {
	return &schema.Collectible{
		GateID:        gateID,
		Creator:       creator,
		CurrentSupply: supply,
		Royalty:       domain.Fraction{Num: 15, Den: 100},
		CreatedAt:     1000,
		Metadata: schema.CollectibleMetadata{
			Title:  strPtr("Test Collectible"),
			Copies: supply,
		},
	}
}

func TestCreateAndGetCollectible(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	collectible := testCollectible("drop-1", "alice", 10)
	require.NoError(t, s.CreateCollectible(ctx, collectible))

	got, err := s.GetCollectible(ctx, "drop-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Creator)
	assert.Equal(t, uint64(10), got.CurrentSupply)
	assert.Equal(t, domain.Fraction{Num: 15, Den: 100}, got.Royalty)
	assert.Empty(t, got.MintedTokens)

	// Absent gate IDs come back nil without an error
	missing, err := s.GetCollectible(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Duplicate registration is rejected
	err = s.CreateCollectible(ctx, testCollectible("drop-1", "bob", 5))
	assert.Equal(t, domain.TagGateIDAlreadyExists, domain.TagOf(err))
}

func TestDeleteCollectible(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 2)))

	err := s.DeleteCollectible(ctx, "unknown")
	assert.Equal(t, domain.TagGateIDNotFound, domain.TagOf(err))

	// A claimed token blocks deletion
	_, err = s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)
	err = s.DeleteCollectible(ctx, "drop-1")
	assert.Equal(t, domain.TagGateIDHasTokens, domain.TagOf(err))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-2", "alice", 2)))
	require.NoError(t, s.DeleteCollectible(ctx, "drop-2"))

	got, err := s.GetCollectible(ctx, "drop-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClaimTokenDecrementsSupply(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 2)))

	first, err := s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)
	assert.Equal(t, "bob", first.Owner)
	assert.Equal(t, "drop-1", first.GateID)
	assert.Equal(t, int64(2000), first.CreatedAt)

	second, err := s.ClaimToken(ctx, "drop-1", "carol", 3000)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// Supply exhausted
	_, err = s.ClaimToken(ctx, "drop-1", "dave", 4000)
	assert.Equal(t, domain.TagGateIDExhausted, domain.TagOf(err))

	_, err = s.ClaimToken(ctx, "unknown", "dave", 4000)
	assert.Equal(t, domain.TagGateIDNotFound, domain.TagOf(err))

	collectible, err := s.GetCollectible(ctx, "drop-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), collectible.CurrentSupply)
	assert.Len(t, collectible.MintedTokens, 2)
}

func TestTransferToken(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 5)))
	token, err := s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)

	_, _, err = s.TransferToken(ctx, store.TransferTokenInput{
		TokenID: 999, Sender: "bob", Receiver: "carol", Now: 3000,
	})
	assert.Equal(t, domain.TagTokenIDNotFound, domain.TagOf(err))

	_, _, err = s.TransferToken(ctx, store.TransferTokenInput{
		TokenID: token.ID, Sender: "mallory", Receiver: "carol", Now: 3000,
	})
	assert.Equal(t, domain.TagSenderNotAuthToTransfer, domain.TagOf(err))

	_, _, err = s.TransferToken(ctx, store.TransferTokenInput{
		TokenID: token.ID, Sender: "bob", Receiver: "bob", Now: 3000,
	})
	assert.Equal(t, domain.TagReceiverIsOwner, domain.TagOf(err))

	moved, cleared, err := s.TransferToken(ctx, store.TransferTokenInput{
		TokenID: token.ID, Sender: "bob", Receiver: "carol", Now: 3000,
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", moved.Owner)
	assert.Equal(t, "bob", moved.Sender)
	assert.Equal(t, int64(3000), moved.ModifiedAt)
	assert.Empty(t, cleared)
}

func TestTransferByApprovedAccount(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 5)))
	token, err := s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)

	_, approval, err := s.AddApproval(ctx, store.AddApprovalInput{
		TokenID: token.ID, Caller: "bob", Account: "market", MinPrice: "1000",
	})
	require.NoError(t, err)

	// A stale approval ID is rejected
	stale := approval.ApprovalID + 1
	_, _, err = s.TransferToken(ctx, store.TransferTokenInput{
		TokenID: token.ID, Sender: "market", Receiver: "carol", ApprovalID: &stale, Now: 3000,
	})
	assert.Equal(t, domain.TagSenderNotAuthToTransfer, domain.TagOf(err))

	moved, cleared, err := s.TransferToken(ctx, store.TransferTokenInput{
		TokenID: token.ID, Sender: "market", Receiver: "carol", ApprovalID: &approval.ApprovalID, Now: 3000,
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", moved.Owner)

	// The transfer swept the approval away
	require.Len(t, cleared, 1)
	assert.Equal(t, "market", cleared[0].Account)

	got, err := s.GetToken(ctx, token.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Approvals)
}

func TestAddApproval(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 5)))
	token, err := s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)

	_, _, err = s.AddApproval(ctx, store.AddApprovalInput{
		TokenID: token.ID, Caller: "mallory", Account: "market", MinPrice: "1000",
	})
	assert.Equal(t, domain.TagTokenIDNotOwnedBy, domain.TagOf(err))

	_, approval, err := s.AddApproval(ctx, store.AddApprovalInput{
		TokenID: token.ID, Caller: "bob", Account: "market", MinPrice: "1000",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), approval.ApprovalID)
	assert.Equal(t, domain.Balance("1000"), approval.MinPrice)

	// Only one live approval per token
	_, _, err = s.AddApproval(ctx, store.AddApprovalInput{
		TokenID: token.ID, Caller: "bob", Account: "other-market", MinPrice: "2000",
	})
	assert.Equal(t, domain.TagOneApprovalAllowed, domain.TagOf(err))
}

func TestApprovalIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 5)))
	token, err := s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)

	_, first, err := s.AddApproval(ctx, store.AddApprovalInput{
		TokenID: token.ID, Caller: "bob", Account: "market", MinPrice: "1000",
	})
	require.NoError(t, err)

	require.NoError(t, s.RemoveApproval(ctx, token.ID, "bob", "market"))

	_, second, err := s.AddApproval(ctx, store.AddApprovalInput{
		TokenID: token.ID, Caller: "bob", Account: "market", MinPrice: "1500",
	})
	require.NoError(t, err)
	assert.Greater(t, second.ApprovalID, first.ApprovalID)
}

func TestRemoveApprovals(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 5)))
	token, err := s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)

	err = s.RemoveApproval(ctx, token.ID, "bob", "market")
	assert.Equal(t, domain.TagRevokeApprovalFailed, domain.TagOf(err))

	_, _, err = s.AddApproval(ctx, store.AddApprovalInput{
		TokenID: token.ID, Caller: "bob", Account: "market", MinPrice: "1000",
	})
	require.NoError(t, err)

	err = s.RemoveApproval(ctx, token.ID, "mallory", "market")
	assert.Equal(t, domain.TagTokenIDNotOwnedBy, domain.TagOf(err))

	removed, err := s.RemoveAllApprovals(ctx, token.ID, "bob")
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "market", removed[0].Account)

	got, err := s.GetToken(ctx, token.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Approvals)
}

func TestBurnToken(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 5)))
	token, err := s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)
	_, _, err = s.AddApproval(ctx, store.AddApprovalInput{
		TokenID: token.ID, Caller: "bob", Account: "market", MinPrice: "1000",
	})
	require.NoError(t, err)

	_, err = s.BurnToken(ctx, token.ID, "mallory")
	assert.Equal(t, domain.TagTokenIDNotOwnedBy, domain.TagOf(err))

	burned, err := s.BurnToken(ctx, token.ID, "bob")
	require.NoError(t, err)
	require.Len(t, burned.Approvals, 1)
	assert.Equal(t, "market", burned.Approvals[0].Account)

	got, err := s.GetToken(ctx, token.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenQueries(t *testing.T) {
	ctx := context.Background()
	s := store.NewLedgerStore(openTestDB(t))

	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-1", "alice", 5)))
	require.NoError(t, s.CreateCollectible(ctx, testCollectible("drop-2", "alice", 5)))

	_, err := s.ClaimToken(ctx, "drop-1", "bob", 2000)
	require.NoError(t, err)
	_, err = s.ClaimToken(ctx, "drop-2", "bob", 2100)
	require.NoError(t, err)
	_, err = s.ClaimToken(ctx, "drop-1", "carol", 2200)
	require.NoError(t, err)

	bobs, err := s.GetTokensByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bobs, 2)

	bobsDrop1, err := s.GetTokensByOwnerAndGate(ctx, "bob", "drop-1")
	require.NoError(t, err)
	require.Len(t, bobsDrop1, 1)
	assert.Equal(t, "drop-1", bobsDrop1[0].GateID)

	total, err := s.CountTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)

	byCreator, err := s.GetCollectiblesByCreator(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, byCreator, 2)
}
