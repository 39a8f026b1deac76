package messaging

import (
	"context"

	"github.com/mintgate/mg-ledger/internal/domain"
)

// Publisher defines the interface for publishing approval notifications to
// the message broker. The NFT ledger publishes one event per approval
// granted or revoked; marketplaces consume them to maintain their listings.
type Publisher interface {
	// PublishApproval publishes an approval lifecycle event
	PublishApproval(ctx context.Context, event *domain.ApprovalEvent) error
	// Close closes the connection
	Close()
}

// Handler processes one approval event. Returning a contract error marks
// the event as terminally failed; any other error requests a redelivery.
type Handler func(ctx context.Context, event *domain.ApprovalEvent) error
