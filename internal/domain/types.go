package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// TokenID is the global identifier of a minted token. It is unique across
// every collectible managed by the same ledger.
//
// Token IDs travel over the wire as decimal strings so that clients in
// languages without 64-bit integers do not lose precision.
type TokenID uint64

func (t TokenID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

func (t TokenID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TokenID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Tolerate bare numbers from older clients
		var n uint64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid token ID: %s", string(data))
		}
		*t = TokenID(n)
		return nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid token ID %q: %w", s, err)
	}
	*t = TokenID(n)
	return nil
}

// ParseTokenID parses a decimal token ID as found in URLs and messages
func ParseTokenID(s string) (TokenID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token ID %q: %w", s, err)
	}
	return TokenID(n), nil
}

// Balance is an amount of the settlement currency in its smallest
// denomination, serialized as a decimal string. Amounts routinely exceed
// 64 bits so arithmetic goes through uint256.
type Balance string

// Parse decodes the balance into a 256-bit integer
func (b Balance) Parse() (*uint256.Int, error) {
	v, err := uint256.FromDecimal(string(b))
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", string(b), err)
	}
	return v, nil
}

// BalanceFromInt formats a 256-bit amount as a wire balance
func BalanceFromInt(v *uint256.Int) Balance {
	return Balance(v.Dec())
}

// Payout maps receiver accounts to the amounts they are owed after a sale.
// The values always add up to the sale price.
type Payout map[string]Balance

// ContractMetadata describes a ledger deployment, modeled after the NEP-177
// contract-level metadata convention.
type ContractMetadata struct {
	Spec      string  `json:"spec"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Icon      *string `json:"icon,omitempty"`
	BaseURI   *string `json:"base_uri,omitempty"`
	Reference *string `json:"reference,omitempty"`
}

// ApprovalEventType distinguishes the two notifications an NFT ledger sends
// to a marketplace when approvals change.
type ApprovalEventType string

const (
	ApprovalEventApprove ApprovalEventType = "approve"
	ApprovalEventRevoke  ApprovalEventType = "revoke"
)

// ApprovalEvent is the message published on the approvals stream whenever a
// token approval is granted to, or revoked from, a marketplace account.
type ApprovalEvent struct {
	Type          ApprovalEventType `json:"type"`
	NftContractID string            `json:"nft_contract_id"`
	TokenID       TokenID           `json:"token_id"`
	OwnerID       string            `json:"owner_id"`
	ApprovalID    uint64            `json:"approval_id,omitempty"`
	Msg           string            `json:"msg,omitempty"`
	Timestamp     int64             `json:"timestamp"`
}

// TransferPayoutRequest is the body of the transfer-payout call a
// marketplace makes against the NFT ledger to settle a purchase.
type TransferPayoutRequest struct {
	Receiver   string   `json:"receiver_id"`
	TokenID    TokenID  `json:"token_id"`
	ApprovalID *uint64  `json:"approval_id,omitempty"`
	Balance    *Balance `json:"balance,omitempty"`
}
