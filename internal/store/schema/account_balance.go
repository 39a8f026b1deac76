package schema

import (
	"github.com/mintgate/mg-ledger/internal/domain"
)

// AccountBalance represents the account_balances table: the marketplace's
// settlement ledger. Sale proceeds are credited here per receiver so that
// every unit of a buyer's deposit stays accounted for.
type AccountBalance struct {
	// Account is the receiver account
	Account string `gorm:"column:account_id;primaryKey;type:text" json:"account_id"`
	// Amount is the accumulated credit as a decimal string
	Amount domain.Balance `gorm:"column:amount;not null;type:text" json:"amount"`
	// UpdatedAt is the last credit time in nanoseconds
	UpdatedAt int64 `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (AccountBalance) TableName() string {
	return "account_balances"
}
