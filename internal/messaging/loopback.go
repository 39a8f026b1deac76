package messaging

import (
	"context"
	"sync"

	"github.com/mintgate/mg-ledger/internal/domain"
)

// LoopbackPublisher delivers approval events straight to a registered
// handler in process. It backs single-binary deployments where both
// services share one process, and tests that exercise the full
// approve-and-sale protocol without a broker.
type LoopbackPublisher struct {
	mu      sync.Mutex
	handler Handler
	events  []domain.ApprovalEvent
	closed  bool
}

// NewLoopbackPublisher creates a loopback publisher. The handler may be nil,
// in which case events are only recorded.
func NewLoopbackPublisher(handler Handler) *LoopbackPublisher {
	return &LoopbackPublisher{handler: handler}
}

func (p *LoopbackPublisher) PublishApproval(ctx context.Context, event *domain.ApprovalEvent) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.events = append(p.events, *event)
	handler := p.handler
	p.mu.Unlock()

	if handler == nil {
		return nil
	}
	return handler(ctx, event)
}

func (p *LoopbackPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Events returns a copy of every event published so far
func (p *LoopbackPublisher) Events() []domain.ApprovalEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.ApprovalEvent, len(p.events))
	copy(out, p.events)
	return out
}
