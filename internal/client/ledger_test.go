package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/mg-ledger/internal/api/middleware"
	"github.com/mintgate/mg-ledger/internal/domain"
)

func newTestLedger(url string) *Ledger {
	return NewLedger(Config{
		Endpoints:      map[string]string{"nft.mintgate.test": url},
		CallerAccount:  "market.mintgate.test",
		Timeout:        2 * time.Second,
		MaxElapsedTime: 3 * time.Second,
	})
}

func TestTransferPayoutSuccess(t *testing.T) {
	var gotAccount string
	var gotRequest domain.TransferPayoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/nft/transfer-payout", r.URL.Path)
		gotAccount = r.Header.Get(middleware.AccountHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"payout": domain.Payout{"bob": "1950", "fees.mintgate.test": "50"},
		})
	}))
	defer srv.Close()

	approvalID := uint64(3)
	balance := domain.Balance("2000")
	payout, err := newTestLedger(srv.URL).TransferPayout(context.Background(), "nft.mintgate.test", domain.TransferPayoutRequest{
		Receiver:   "carol",
		TokenID:    7,
		ApprovalID: &approvalID,
		Balance:    &balance,
	})
	require.NoError(t, err)

	assert.Equal(t, "market.mintgate.test", gotAccount)
	assert.Equal(t, "carol", gotRequest.Receiver)
	assert.Equal(t, domain.TokenID(7), gotRequest.TokenID)
	require.NotNil(t, gotRequest.ApprovalID)
	assert.Equal(t, uint64(3), *gotRequest.ApprovalID)
	assert.Equal(t, domain.Payout{"bob": "1950", "fees.mintgate.test": "50"}, payout)
}

func TestTransferPayoutContractRejection(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": domain.ErrSenderNotAuthToTransfer("market.mintgate.test"),
		})
	}))
	defer srv.Close()

	_, err := newTestLedger(srv.URL).TransferPayout(context.Background(), "nft.mintgate.test", domain.TransferPayoutRequest{
		Receiver: "carol",
		TokenID:  7,
	})
	assert.Equal(t, domain.TagSenderNotAuthToTransfer, domain.TagOf(err))

	// Rejections are never retried
	assert.Equal(t, 1, calls)
}

func TestTransferPayoutRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"payout": domain.Payout{"bob": "100"}})
	}))
	defer srv.Close()

	payout, err := newTestLedger(srv.URL).TransferPayout(context.Background(), "nft.mintgate.test", domain.TransferPayoutRequest{
		Receiver: "carol",
		TokenID:  7,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Payout{"bob": "100"}, payout)
	assert.Equal(t, 3, calls)
}

func TestTransferPayoutUnknownContract(t *testing.T) {
	_, err := newTestLedger("http://localhost:1").TransferPayout(context.Background(), "unknown.test", domain.TransferPayoutRequest{
		Receiver: "carol",
		TokenID:  7,
	})
	assert.Error(t, err)
}
