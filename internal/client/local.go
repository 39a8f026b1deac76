package client

import (
	"context"
	"fmt"

	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/ledger"
)

// Local calls a set of in-process ledger services directly. It is used
// when the marketplace and its ledgers run in the same binary.
type Local struct {
	caller  string
	ledgers map[string]*ledger.Service
}

// NewLocal creates a local ledger caller. The caller account is used as
// the transfer authority on every settlement call.
func NewLocal(caller string, ledgers ...*ledger.Service) *Local {
	byContract := make(map[string]*ledger.Service, len(ledgers))
	for _, l := range ledgers {
		byContract[l.ContractID()] = l
	}
	return &Local{caller: caller, ledgers: byContract}
}

// TransferPayout settles the sale against the in-process ledger
func (l *Local) TransferPayout(ctx context.Context, nftContractID string, input domain.TransferPayoutRequest) (domain.Payout, error) {
	svc, ok := l.ledgers[nftContractID]
	if !ok {
		return nil, fmt.Errorf("no ledger registered for contract %q", nftContractID)
	}
	return svc.TransferPayout(ctx, l.caller, input)
}
