// Package bridge consumes approval events from JetStream and feeds them to
// the marketplace. It is the async half of the approve-and-sale protocol:
// the NFT ledger publishes, the bridge delivers.
package bridge

import (
	"context"
	"fmt"
	"time"

	natsjs "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/mintgate/mg-ledger/internal/adapter"
	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/logger"
	"github.com/mintgate/mg-ledger/internal/messaging"
	"github.com/mintgate/mg-ledger/internal/providers/jetstream"
)

// Config holds the configuration for the approval bridge
type Config struct {
	URL            string
	StreamName     string
	ConsumerName   string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWaitTimeout time.Duration
	MaxDeliver     int
}

// Bridge defines the interface for the approval bridge
type Bridge interface {
	// Run starts consuming approval events until ctx is cancelled
	Run(ctx context.Context) error
	// Close closes the bridge and cleans up resources
	Close()
}

type bridge struct {
	nc      adapter.NatsConn
	js      adapter.JetStream
	handler messaging.Handler
	json    adapter.JSON
	config  Config
}

// NewBridge creates a new approval bridge delivering events to handler
func NewBridge(
	cfg Config,
	natsJS adapter.NatsJetStream,
	handler messaging.Handler,
	jsonAdapter adapter.JSON,
) (Bridge, error) {
	nc, js, err := natsJS.Connect(cfg.URL, jetstream.ConnectOptions(jetstream.Config{
		ConnectionName: cfg.ConnectionName,
		MaxReconnects:  cfg.MaxReconnects,
		ReconnectWait:  cfg.ReconnectWait,
	})...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &bridge{
		nc:      nc,
		js:      js,
		handler: handler,
		json:    jsonAdapter,
		config:  cfg,
	}, nil
}

// Run starts the approval bridge
func (b *bridge) Run(ctx context.Context) error {
	logger.Info("Starting approval bridge",
		zap.String("stream", b.config.StreamName),
		zap.String("consumer", b.config.ConsumerName))

	consumerConfig := natsjs.ConsumerConfig{
		Durable:       b.config.ConsumerName,
		AckPolicy:     natsjs.AckExplicitPolicy,
		AckWait:       b.config.AckWaitTimeout,
		MaxDeliver:    b.config.MaxDeliver,
		FilterSubject: "approvals.>",
	}

	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	msgChan := make(chan adapter.Message, 100)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.Info("Started consuming approval events")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down approval bridge")
			return ctx.Err()
		case msg := <-msgChan:
			b.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes a single NATS message
func (b *bridge) handleMessage(ctx context.Context, msg adapter.Message) {
	var event domain.ApprovalEvent
	if err := b.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to unmarshal approval event"))
		// Unparseable data will not get better on redelivery
		if err := msg.Term(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	logger.InfoCtx(ctx, "Received approval event",
		zap.String("type", string(event.Type)),
		zap.String("nftContractID", event.NftContractID),
		zap.String("tokenID", event.TokenID.String()),
		zap.String("subject", msg.Subject()))

	if err := b.handler(ctx, &event); err != nil {
		if domain.TagOf(err) != "" {
			// A contract error is a definitive rejection of the event,
			// e.g. a malformed msg or an unknown token. Redelivering it
			// would fail the same way.
			logger.WarnCtx(ctx, "Approval event rejected",
				zap.String("tokenID", event.TokenID.String()),
				zap.Error(err))
			if err := msg.Ack(); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("message", "Failed to ACK message"))
			}
			return
		}

		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to process approval event"))
		if err := msg.Nak(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to ACK message"))
	}
}

// Close closes the NATS connection
func (b *bridge) Close() {
	if b.nc == nil {
		return
	}
	b.nc.Close()
}
