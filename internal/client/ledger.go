// Package client provides the marketplace's callers into NFT ledgers: an
// HTTP client for separate deployments and a local caller for tests and
// single-process setups.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mintgate/mg-ledger/internal/api/middleware"
	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/logger"
)

// Config holds the ledger client configuration
type Config struct {
	// Endpoints maps NFT contract IDs to the base URLs of their ledgers
	Endpoints map[string]string
	// CallerAccount is the marketplace account sent on every request
	CallerAccount string
	// Timeout bounds a single HTTP attempt
	Timeout time.Duration
	// MaxElapsedTime bounds the whole retry sequence
	MaxElapsedTime time.Duration
}

// Ledger is an HTTP client for the NFT ledger's settlement API
type Ledger struct {
	cfg    Config
	client *http.Client
}

// NewLedger creates an HTTP ledger client
func NewLedger(cfg Config) *Ledger {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxElapsedTime == 0 {
		cfg.MaxElapsedTime = 1 * time.Minute
	}
	return &Ledger{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type transferPayoutResponse struct {
	Payout domain.Payout `json:"payout"`
}

type contractErrorResponse struct {
	Error *domain.Error `json:"error"`
}

// TransferPayout asks the ledger behind nftContractID to transfer the
// token and split the deposit. Transport failures and 5xx responses are
// retried with exponential backoff; a contract rejection is returned
// as-is and never retried.
func (l *Ledger) TransferPayout(ctx context.Context, nftContractID string, input domain.TransferPayoutRequest) (domain.Payout, error) {
	base, ok := l.cfg.Endpoints[nftContractID]
	if !ok {
		return nil, fmt.Errorf("no ledger endpoint configured for contract %q", nftContractID)
	}
	url := base + "/api/v1/nft/transfer-payout"

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var payout domain.Payout
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.AccountHeader, l.cfg.CallerAccount)

		resp, err := l.client.Do(req)
		if err != nil {
			// Network errors are retryable
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Warn("failed to close response body", zap.Error(err), zap.String("url", url))
			}
		}()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var out transferPayoutResponse
			if err := json.Unmarshal(respBody, &out); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
			payout = out.Payout
			return nil
		case resp.StatusCode >= http.StatusInternalServerError:
			// The ledger may recover; retry
			return fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, string(respBody))
		default:
			// 4xx carries a contract rejection. Retrying a rejected
			// settlement would double-transfer on a later approval, so
			// these are always permanent.
			var contractErr contractErrorResponse
			if err := json.Unmarshal(respBody, &contractErr); err == nil && contractErr.Error != nil && contractErr.Error.Tag != "" {
				return backoff.Permanent(contractErr.Error)
			}
			return backoff.Permanent(fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, string(respBody)))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = l.cfg.MaxElapsedTime
	b.RandomizationFactor = 0.5

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		var contractErr *domain.Error
		if errors.As(err, &contractErr) {
			return nil, contractErr
		}
		return nil, fmt.Errorf("transfer payout failed: %w", err)
	}
	return payout, nil
}
