package schema

import (
	"github.com/mintgate/mg-ledger/internal/domain"
)

// TokenForSale represents the tokens_for_sale table: the marketplace's view
// of a token it has been approved to sell. Rows are keyed by the pair of
// NFT ledger and token ID since one marketplace can serve several ledgers.
type TokenForSale struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	// NftContractID is the NFT ledger the token lives on
	NftContractID string `gorm:"column:nft_contract_id;not null;uniqueIndex:idx_sale_token_key,priority:1;type:text" json:"nft_contract_id"`
	// TokenID is the token's identifier on that ledger
	TokenID domain.TokenID `gorm:"column:token_id;not null;uniqueIndex:idx_sale_token_key,priority:2" json:"token_id"`
	// Owner is the account selling the token
	Owner string `gorm:"column:owner_id;not null;index;type:text" json:"owner_id"`
	// ApprovalID is the approval under which the marketplace may transfer the token
	ApprovalID uint64 `gorm:"column:approval_id;not null" json:"approval_id"`
	// MinPrice is the lowest deposit the owner accepts
	MinPrice domain.Balance `gorm:"column:min_price;not null;type:text" json:"min_price"`
	// GateID is the collectible the token was claimed from
	GateID string `gorm:"column:gate_id;not null;index;type:text" json:"gate_id"`
	// Creator is the collectible's creator, kept here so listings can be
	// browsed by creator without calling back into the NFT ledger
	Creator string `gorm:"column:creator_id;not null;index;type:text" json:"creator_id"`
	// ListedAt is when the approval notification arrived, in nanoseconds
	ListedAt int64 `gorm:"column:listed_at;not null" json:"listed_at"`
}

func (TokenForSale) TableName() string {
	return "tokens_for_sale"
}
