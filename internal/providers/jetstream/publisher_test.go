package jetstream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mintgate/mg-ledger/internal/domain"
)

func TestBuildSubject(t *testing.T) {
	// Dotted contract account names must stay one subject token so
	// per-contract filters like approvals.nft_mintgate_io.> keep working
	event := &domain.ApprovalEvent{
		Type:          domain.ApprovalEventApprove,
		NftContractID: "nft.mintgate.io",
		TokenID:       7,
	}
	assert.Equal(t, "approvals.nft_mintgate_io.approve", buildSubject(event))

	event.Type = domain.ApprovalEventRevoke
	assert.Equal(t, "approvals.nft_mintgate_io.revoke", buildSubject(event))

	event.NftContractID = "nft"
	assert.Equal(t, "approvals.nft.revoke", buildSubject(event))
}
