package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrorTag identifies the class of a contract error. Tags are stable wire
// identifiers: clients branch on the tag, humans read the message.
type ErrorTag string

const (
	TagZeroDenominatorFraction  ErrorTag = "ZeroDenominatorFraction"
	TagFractionGreaterThanOne   ErrorTag = "FractionGreaterThanOne"
	TagMinGreaterThanMax        ErrorTag = "MinGreaterThanMax"
	TagInvalidGateIDFormat      ErrorTag = "InvalidGateIdFormat"
	TagGateIDAlreadyExists      ErrorTag = "GateIdAlreadyExists"
	TagGateIDNotFound           ErrorTag = "GateIdNotFound"
	TagGateIDExhausted          ErrorTag = "GateIdExhausted"
	TagGateIDHasTokens          ErrorTag = "GateIdHasTokens"
	TagZeroSupplyNotAllowed     ErrorTag = "ZeroSupplyNotAllowed"
	TagRoyaltyMinThanAllowed    ErrorTag = "RoyaltyMinThanAllowed"
	TagRoyaltyMaxThanAllowed    ErrorTag = "RoyaltyMaxThanAllowed"
	TagRoyaltyTooLarge          ErrorTag = "RoyaltyTooLarge"
	TagTokenIDNotFound          ErrorTag = "TokenIdNotFound"
	TagTokenIDNotOwnedBy        ErrorTag = "TokenIdNotOwnedBy"
	TagReceiverIsOwner          ErrorTag = "ReceiverIsOwner"
	TagSenderNotAuthToTransfer  ErrorTag = "SenderNotAuthToTransfer"
	TagOneApprovalAllowed       ErrorTag = "OneApprovalAllowed"
	TagRevokeApprovalFailed     ErrorTag = "RevokeApprovalFailed"
	TagMsgFormatNotRecognized   ErrorTag = "MsgFormatNotRecognized"
	TagMsgFormatMinPriceMissing ErrorTag = "MsgFormatMinPriceMissing"
	TagTokenKeyNotFound         ErrorTag = "TokenKeyNotFound"
	TagBuyOwnTokenNotAllowed    ErrorTag = "BuyOwnTokenNotAllowed"
	TagNotEnoughDepositToBuy    ErrorTag = "NotEnoughDepositToBuyToken"
	TagNotAuthorized            ErrorTag = "NotAuthorized"
	TagErrors                   ErrorTag = "Errors"
)

// Error is a contract error: a stable tag, the context values that
// triggered it, and a human readable message. It serializes as a flat JSON
// object, e.g.
//
//	{"err":"GateIdNotFound","gate_id":"X","msg":"Gate ID `X` was not found"}
type Error struct {
	Tag     ErrorTag
	Msg     string
	Context map[string]any
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Context)+2)
	out["err"] = string(e.Tag)
	for k, v := range e.Context {
		out[k] = v
	}
	out["msg"] = e.Msg
	return json.Marshal(out)
}

func (e *Error) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if tag, ok := raw["err"].(string); ok {
		e.Tag = ErrorTag(tag)
	}
	if msg, ok := raw["msg"].(string); ok {
		e.Msg = msg
	}
	delete(raw, "err")
	delete(raw, "msg")
	e.Context = raw
	return nil
}

// TagOf returns the tag of a contract error, or the empty tag when err is
// not one.
func TagOf(err error) ErrorTag {
	var e *Error
	if errors.As(err, &e) {
		return e.Tag
	}
	return ""
}

func ErrZeroDenominatorFraction() *Error {
	return &Error{
		Tag: TagZeroDenominatorFraction,
		Msg: "Denominator must be a positive number, but was 0",
	}
}

func ErrFractionGreaterThanOne() *Error {
	return &Error{
		Tag: TagFractionGreaterThanOne,
		Msg: "The fraction must be less or equal to 1",
	}
}

func ErrMinGreaterThanMax(min, max Fraction) *Error {
	return &Error{
		Tag:     TagMinGreaterThanMax,
		Msg:     fmt.Sprintf("Min royalty `%s` must be less or equal to max royalty `%s`", min, max),
		Context: map[string]any{"min_royalty": min, "max_royalty": max},
	}
}

func ErrInvalidGateIDFormat(gateID string) *Error {
	return &Error{
		Tag:     TagInvalidGateIDFormat,
		Msg:     fmt.Sprintf("The gate ID `%s` is invalid", gateID),
		Context: map[string]any{"gate_id": gateID},
	}
}

func ErrGateIDAlreadyExists(gateID string) *Error {
	return &Error{
		Tag:     TagGateIDAlreadyExists,
		Msg:     fmt.Sprintf("Gate ID `%s` already exists", gateID),
		Context: map[string]any{"gate_id": gateID},
	}
}

func ErrGateIDNotFound(gateID string) *Error {
	return &Error{
		Tag:     TagGateIDNotFound,
		Msg:     fmt.Sprintf("Gate ID `%s` was not found", gateID),
		Context: map[string]any{"gate_id": gateID},
	}
}

func ErrGateIDExhausted(gateID string) *Error {
	return &Error{
		Tag:     TagGateIDExhausted,
		Msg:     fmt.Sprintf("Tokens for gate id `%s` have already been claimed", gateID),
		Context: map[string]any{"gate_id": gateID},
	}
}

func ErrGateIDHasTokens(gateID string) *Error {
	return &Error{
		Tag:     TagGateIDHasTokens,
		Msg:     fmt.Sprintf("Gate ID `%s` has already some claimed tokens", gateID),
		Context: map[string]any{"gate_id": gateID},
	}
}

func ErrZeroSupplyNotAllowed(gateID string) *Error {
	return &Error{
		Tag:     TagZeroSupplyNotAllowed,
		Msg:     fmt.Sprintf("Gate ID `%s` must have a positive supply", gateID),
		Context: map[string]any{"gate_id": gateID},
	}
}

func ErrRoyaltyMinThanAllowed(royalty Fraction, gateID string) *Error {
	return &Error{
		Tag:     TagRoyaltyMinThanAllowed,
		Msg:     fmt.Sprintf("Royalty `%s` of `%s` is less than min", royalty, gateID),
		Context: map[string]any{"royalty": royalty, "gate_id": gateID},
	}
}

func ErrRoyaltyMaxThanAllowed(royalty Fraction, gateID string) *Error {
	return &Error{
		Tag:     TagRoyaltyMaxThanAllowed,
		Msg:     fmt.Sprintf("Royalty `%s` of `%s` is greater than max", royalty, gateID),
		Context: map[string]any{"royalty": royalty, "gate_id": gateID},
	}
}

func ErrRoyaltyTooLarge(royalty, fee Fraction) *Error {
	return &Error{
		Tag:     TagRoyaltyTooLarge,
		Msg:     fmt.Sprintf("Royalty `%s` is too large for the given NFT fee `%s`", royalty, fee),
		Context: map[string]any{"royalty": royalty, "fee": fee},
	}
}

func ErrTokenIDNotFound(tokenID TokenID) *Error {
	return &Error{
		Tag:     TagTokenIDNotFound,
		Msg:     fmt.Sprintf("Token ID `%s` was not found", tokenID),
		Context: map[string]any{"token_id": tokenID},
	}
}

func ErrTokenIDNotOwnedBy(tokenID TokenID, ownerID string) *Error {
	return &Error{
		Tag:     TagTokenIDNotOwnedBy,
		Msg:     fmt.Sprintf("Token ID `%s` does not belong to account `%s`", tokenID, ownerID),
		Context: map[string]any{"token_id": tokenID, "owner_id": ownerID},
	}
}

func ErrReceiverIsOwner(tokenID TokenID) *Error {
	return &Error{
		Tag:     TagReceiverIsOwner,
		Msg:     "The token owner and the receiver should be different",
		Context: map[string]any{"token_id": tokenID},
	}
}

func ErrSenderNotAuthToTransfer(senderID string) *Error {
	return &Error{
		Tag:     TagSenderNotAuthToTransfer,
		Msg:     fmt.Sprintf("Sender `%s` is not authorized to make transfer", senderID),
		Context: map[string]any{"sender_id": senderID},
	}
}

func ErrOneApprovalAllowed() *Error {
	return &Error{
		Tag: TagOneApprovalAllowed,
		Msg: "At most one approval is allowed per Token",
	}
}

func ErrRevokeApprovalFailed(accountID string) *Error {
	return &Error{
		Tag:     TagRevokeApprovalFailed,
		Msg:     fmt.Sprintf("Could not revoke approval for `%s`", accountID),
		Context: map[string]any{"account_id": accountID},
	}
}

func ErrMsgFormatNotRecognized(msg string) *Error {
	return &Error{
		Tag:     TagMsgFormatNotRecognized,
		Msg:     fmt.Sprintf("Could not find min_price in msg: %s", msg),
		Context: map[string]any{"reason": msg},
	}
}

func ErrMsgFormatMinPriceMissing() *Error {
	return &Error{
		Tag: TagMsgFormatMinPriceMissing,
		Msg: "The msg argument must contain the minimum price",
	}
}

func ErrTokenKeyNotFound(nftContractID string, tokenID TokenID) *Error {
	return &Error{
		Tag:     TagTokenKeyNotFound,
		Msg:     fmt.Sprintf("Token Key `%s:%s` was not found", nftContractID, tokenID),
		Context: map[string]any{"nft_contract_id": nftContractID, "token_id": tokenID},
	}
}

func ErrBuyOwnTokenNotAllowed() *Error {
	return &Error{
		Tag: TagBuyOwnTokenNotAllowed,
		Msg: "Buyer cannot buy own token",
	}
}

func ErrNotEnoughDepositToBuyToken() *Error {
	return &Error{
		Tag: TagNotEnoughDepositToBuy,
		Msg: "Not enough deposit to cover token minimum price",
	}
}

func ErrNotAuthorized(gateID string) *Error {
	return &Error{
		Tag:     TagNotAuthorized,
		Msg:     fmt.Sprintf("Unable to delete gate ID `%s`", gateID),
		Context: map[string]any{"gate_id": gateID},
	}
}

// BatchError aggregates the per-token failures of a batch operation. The
// operation applies to every token it can; what failed is reported here,
// keyed by token ID.
type BatchError struct {
	Failures map[TokenID]*Error
}

func (e *BatchError) Error() string {
	ids := make([]TokenID, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	msg := fmt.Sprintf("%d tokens failed", len(ids))
	for _, id := range ids {
		msg += fmt.Sprintf("; %s: %s", id, e.Failures[id].Msg)
	}
	return msg
}

func (e *BatchError) MarshalJSON() ([]byte, error) {
	panics := make([]map[string]any, 0, len(e.Failures))
	ids := make([]TokenID, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		panics = append(panics, map[string]any{
			"token_id": id,
			"error":    e.Failures[id],
		})
	}
	return json.Marshal(map[string]any{
		"err":    string(TagErrors),
		"panics": panics,
	})
}
