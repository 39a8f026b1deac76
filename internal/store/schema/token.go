package schema

import (
	"github.com/mintgate/mg-ledger/internal/domain"
)

// Token represents the tokens table. Each row is one claimed copy of a
// collectible with its current owner and any outstanding approval.
type Token struct {
	// ID is the ledger wide token identifier
	ID domain.TokenID `gorm:"column:token_id;primaryKey;autoIncrement" json:"token_id"`
	// GateID links the token back to its collectible
	GateID string `gorm:"column:gate_id;not null;index;type:text" json:"gate_id"`
	// Owner is the current owner account
	Owner string `gorm:"column:owner_id;not null;index;type:text" json:"owner_id"`
	// Sender is the account that performed the last transfer, empty for a fresh claim
	Sender string `gorm:"column:sender_id;not null;default:'';type:text" json:"sender_id"`
	// CreatedAt is the claim time in nanoseconds
	CreatedAt int64 `gorm:"column:created_at;not null" json:"created_at"`
	// ModifiedAt is the time of the last ownership change in nanoseconds,
	// equal to CreatedAt until the token is first transferred
	ModifiedAt int64 `gorm:"column:modified_at;not null;default:0" json:"modified_at"`
	// ApprovalCounter increases monotonically with every approval ever granted,
	// so approval IDs are never reused even after revocations
	ApprovalCounter uint64 `gorm:"column:approval_counter;not null;default:0" json:"approval_counter"`

	// Associations
	Approvals []TokenApproval `gorm:"foreignKey:TokenID;constraint:OnDelete:CASCADE" json:"approvals"`
}

func (Token) TableName() string {
	return "tokens"
}

// ApprovalFor returns the token's approval granted to account, or nil
func (t *Token) ApprovalFor(account string) *TokenApproval {
	for i := range t.Approvals {
		if t.Approvals[i].Account == account {
			return &t.Approvals[i]
		}
	}
	return nil
}

// TokenApproval represents the token_approvals table: an authorization for
// a marketplace account to transfer one token on the owner's behalf.
type TokenApproval struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	// TokenID is the approved token
	TokenID domain.TokenID `gorm:"column:token_id;not null;uniqueIndex:idx_approvals_token_account,priority:1" json:"token_id"`
	// Account is the marketplace account allowed to transfer the token
	Account string `gorm:"column:account_id;not null;uniqueIndex:idx_approvals_token_account,priority:2;type:text" json:"account_id"`
	// ApprovalID is the value of the token's approval counter when this
	// approval was granted. Transfers may require a matching approval ID.
	ApprovalID uint64 `gorm:"column:approval_id;not null" json:"approval_id"`
	// MinPrice is the owner's asking minimum, as given to the marketplace
	MinPrice domain.Balance `gorm:"column:min_price;not null;type:text" json:"min_price"`
}

func (TokenApproval) TableName() string {
	return "token_approvals"
}
