package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/mg-ledger/internal/domain"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      *domain.Error
		expected string
	}{
		{
			name:     "gate not found",
			err:      domain.ErrGateIDNotFound("unknown-gate"),
			expected: "Gate ID `unknown-gate` was not found",
		},
		{
			name:     "gate exhausted",
			err:      domain.ErrGateIDExhausted("drop-1"),
			expected: "Tokens for gate id `drop-1` have already been claimed",
		},
		{
			name:     "one approval per token",
			err:      domain.ErrOneApprovalAllowed(),
			expected: "At most one approval is allowed per Token",
		},
		{
			name:     "sender not authorized",
			err:      domain.ErrSenderNotAuthToTransfer("mallory"),
			expected: "Sender `mallory` is not authorized to make transfer",
		},
		{
			name:     "not enough deposit",
			err:      domain.ErrNotEnoughDepositToBuyToken(),
			expected: "Not enough deposit to cover token minimum price",
		},
		{
			name: "royalty too large",
			err: domain.ErrRoyaltyTooLarge(
				domain.Fraction{Num: 98, Den: 100},
				domain.Fraction{Num: 25, Den: 1000},
			),
			expected: "Royalty `98/100` is too large for the given NFT fee `25/1000`",
		},
		{
			name: "min royalty above max",
			err: domain.ErrMinGreaterThanMax(
				domain.Fraction{Num: 5, Den: 10},
				domain.Fraction{Num: 1, Den: 10},
			),
			expected: "Min royalty `5/10` must be less or equal to max royalty `1/10`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorJSONShape(t *testing.T) {
	data, err := json.Marshal(domain.ErrGateIDNotFound("drop-1"))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "GateIdNotFound", out["err"])
	assert.Equal(t, "drop-1", out["gate_id"])
	assert.Equal(t, "Gate ID `drop-1` was not found", out["msg"])
}

func TestErrorJSONRoundTrip(t *testing.T) {
	original := domain.ErrTokenIDNotFound(42)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded domain.Error
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, domain.TagTokenIDNotFound, decoded.Tag)
	assert.Equal(t, original.Msg, decoded.Msg)
}

func TestBatchErrorJSON(t *testing.T) {
	batch := &domain.BatchError{
		Failures: map[domain.TokenID]*domain.Error{
			3: domain.ErrTokenIDNotFound(3),
			1: domain.ErrOneApprovalAllowed(),
		},
	}

	data, err := json.Marshal(batch)
	require.NoError(t, err)

	var out struct {
		Err    string `json:"err"`
		Panics []struct {
			TokenID domain.TokenID `json:"token_id"`
		} `json:"panics"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "Errors", out.Err)
	require.Len(t, out.Panics, 2)
	assert.Equal(t, domain.TokenID(1), out.Panics[0].TokenID)
	assert.Equal(t, domain.TokenID(3), out.Panics[1].TokenID)
}
