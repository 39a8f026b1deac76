package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/store/schema"
)

// LedgerStore defines the database operations of the NFT ledger. Mutations
// that touch more than one row run inside a single transaction so the
// ledger's invariants hold even with concurrent API calls.
type LedgerStore interface {
	// CreateCollectible registers a new collectible under its gate ID
	CreateCollectible(ctx context.Context, collectible *schema.Collectible) error
	// GetCollectible retrieves a collectible with its minted tokens, nil if absent
	GetCollectible(ctx context.Context, gateID string) (*schema.Collectible, error)
	// DeleteCollectible removes a collectible that has no claimed tokens
	DeleteCollectible(ctx context.Context, gateID string) error
	// GetCollectiblesByCreator lists the collectibles registered by a creator
	GetCollectiblesByCreator(ctx context.Context, creator string) ([]schema.Collectible, error)
	// ClaimToken mints the next copy of a collectible to the claiming account
	ClaimToken(ctx context.Context, gateID string, owner string, now int64) (*schema.Token, error)
	// GetToken retrieves a token with its approvals, nil if absent
	GetToken(ctx context.Context, tokenID domain.TokenID) (*schema.Token, error)
	// GetTokensByOwner lists the tokens held by an account
	GetTokensByOwner(ctx context.Context, owner string) ([]schema.Token, error)
	// GetTokensByOwnerAndGate lists an account's tokens from one collectible
	GetTokensByOwnerAndGate(ctx context.Context, owner string, gateID string) ([]schema.Token, error)
	// CountTokens returns the total number of claimed tokens
	CountTokens(ctx context.Context) (uint64, error)
	// TransferToken moves a token to a new owner and clears its approvals.
	// The cleared approvals are returned so revoke notifications can follow.
	TransferToken(ctx context.Context, input TransferTokenInput) (*schema.Token, []schema.TokenApproval, error)
	// BurnToken deletes a token. The returned copy still carries the
	// approvals that were outstanding when it died.
	BurnToken(ctx context.Context, tokenID domain.TokenID, caller string) (*schema.Token, error)
	// AddApproval grants a transfer approval on a token
	AddApproval(ctx context.Context, input AddApprovalInput) (*schema.Token, *schema.TokenApproval, error)
	// RemoveApproval revokes the approval granted to one account
	RemoveApproval(ctx context.Context, tokenID domain.TokenID, caller string, account string) error
	// RemoveAllApprovals revokes every approval on a token and returns them
	RemoveAllApprovals(ctx context.Context, tokenID domain.TokenID, caller string) ([]schema.TokenApproval, error)
}

// TransferTokenInput carries the arguments of a token transfer
type TransferTokenInput struct {
	TokenID  domain.TokenID
	Sender   string
	Receiver string
	// ApprovalID, when set, must match the approval under which the
	// sender was authorized. Marketplaces set it to guard against the
	// owner re-approving between listing and sale.
	ApprovalID *uint64
	Now        int64
}

// AddApprovalInput carries the arguments of an approval grant
type AddApprovalInput struct {
	TokenID  domain.TokenID
	Caller   string
	Account  string
	MinPrice domain.Balance
}

// MarketStore defines the database operations of the marketplace
type MarketStore interface {
	// UpsertTokenForSale creates or refreshes a listing
	UpsertTokenForSale(ctx context.Context, listing *schema.TokenForSale) error
	// RemoveTokenForSale delists a token and returns the removed listing
	RemoveTokenForSale(ctx context.Context, nftContractID string, tokenID domain.TokenID) (*schema.TokenForSale, error)
	// GetTokenForSale retrieves a listing, nil if absent
	GetTokenForSale(ctx context.Context, nftContractID string, tokenID domain.TokenID) (*schema.TokenForSale, error)
	// GetTokensForSale lists every active listing
	GetTokensForSale(ctx context.Context) ([]schema.TokenForSale, error)
	// GetTokensForSaleByOwner lists the active listings of one seller
	GetTokensForSaleByOwner(ctx context.Context, owner string) ([]schema.TokenForSale, error)
	// GetTokensForSaleByGate lists the active listings of one collectible
	GetTokensForSaleByGate(ctx context.Context, gateID string) ([]schema.TokenForSale, error)
	// GetTokensForSaleByCreator lists the active listings of one creator's collectibles
	GetTokensForSaleByCreator(ctx context.Context, creator string) ([]schema.TokenForSale, error)
	// SettleSale removes the listing, credits every payout receiver and
	// records a receipt, all in one transaction
	SettleSale(ctx context.Context, input SettleSaleInput) (*schema.SaleReceipt, error)
	// GetAccountBalance returns the accumulated credit of an account,
	// zero for accounts never paid
	GetAccountBalance(ctx context.Context, account string) (domain.Balance, error)
	// GetSaleReceipt retrieves a receipt by its UUID, nil if absent
	GetSaleReceipt(ctx context.Context, id string) (*schema.SaleReceipt, error)
}

// SettleSaleInput carries everything recorded when a purchase settles
type SettleSaleInput struct {
	ReceiptID     string
	NftContractID string
	TokenID       domain.TokenID
	Buyer         string
	Seller        string
	Price         domain.Balance
	Payout        domain.Payout
	Now           int64
}

// OpenPostgres opens a GORM connection to PostgreSQL
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table used by both services
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Collectible{},
		&schema.Token{},
		&schema.TokenApproval{},
		&schema.TokenForSale{},
		&schema.AccountBalance{},
		&schema.SaleReceipt{},
	)
}

// ConfigureConnectionPool configures the pool of the underlying sql.DB.
// Zero values fall back to defaults: 20 open, 5 idle, 5 minute lifetime,
// 10 minute idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}
