package schema

import (
	"encoding/json"

	"github.com/mintgate/mg-ledger/internal/domain"
)

// SaleReceipt represents the sale_receipts table: an append-only record of
// every completed purchase with the payout that settled it.
type SaleReceipt struct {
	// ID is a UUID assigned by the marketplace when the sale settles
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`
	// NftContractID and TokenID identify the sold token
	NftContractID string         `gorm:"column:nft_contract_id;not null;index:idx_receipts_token,priority:1;type:text" json:"nft_contract_id"`
	TokenID       domain.TokenID `gorm:"column:token_id;not null;index:idx_receipts_token,priority:2" json:"token_id"`
	// Buyer is the purchasing account
	Buyer string `gorm:"column:buyer_id;not null;index;type:text" json:"buyer_id"`
	// Seller is the account that owned the token when it sold
	Seller string `gorm:"column:seller_id;not null;type:text" json:"seller_id"`
	// Price is the full deposit the buyer attached
	Price domain.Balance `gorm:"column:price;not null;type:text" json:"price"`
	// Payout is the JSON snapshot of how the price was split
	Payout json.RawMessage `gorm:"column:payout;not null;type:text" json:"payout"`
	// SettledAt is the settlement time in nanoseconds
	SettledAt int64 `gorm:"column:settled_at;not null" json:"settled_at"`
}

func (SaleReceipt) TableName() string {
	return "sale_receipts"
}
