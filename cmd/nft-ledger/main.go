package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mintgate/mg-ledger/internal/adapter"
	"github.com/mintgate/mg-ledger/internal/api/rest"
	"github.com/mintgate/mg-ledger/internal/api/server"
	"github.com/mintgate/mg-ledger/internal/config"
	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/ledger"
	"github.com/mintgate/mg-ledger/internal/logger"
	"github.com/mintgate/mg-ledger/internal/providers/jetstream"
	"github.com/mintgate/mg-ledger/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadLedgerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "nft-ledger",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting NFT ledger", zap.String("contract_id", cfg.Contract.ID))

	// Connect to database
	db, err := store.OpenPostgres(cfg.Database.DSN())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("dsn", cfg.Database.DSN()))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Connect the approval publisher
	publisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), adapter.NewJSON())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer publisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS", zap.String("stream", cfg.NATS.StreamName))

	// Create the ledger service
	svc, err := ledger.New(ledgerServiceConfig(cfg), store.NewLedgerStore(db), publisher, adapter.NewClock())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create ledger service", zap.Error(err))
	}

	handler := rest.NewLedgerHandler(svc)
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}, func(router *gin.Engine) {
		rest.SetupLedgerRoutes(router, handler)
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	logger.Info("NFT ledger stopped")
}

// ledgerServiceConfig translates the file configuration into the service
// configuration, parsing the contract fractions.
func ledgerServiceConfig(cfg *config.LedgerConfig) ledger.Config {
	fee := mustFraction("contract.fee", cfg.Contract.Fee)
	minRoyalty := mustFraction("contract.min_royalty", cfg.Contract.MinRoyalty)
	maxRoyalty := mustFraction("contract.max_royalty", cfg.Contract.MaxRoyalty)

	metadata := domain.ContractMetadata{
		Spec:   "nft-1.0.0",
		Name:   cfg.Contract.Name,
		Symbol: cfg.Contract.Symbol,
	}
	if cfg.Contract.Icon != "" {
		metadata.Icon = &cfg.Contract.Icon
	}
	if cfg.Contract.BaseURI != "" {
		metadata.BaseURI = &cfg.Contract.BaseURI
	}
	if cfg.Contract.Reference != "" {
		metadata.Reference = &cfg.Contract.Reference
	}

	return ledger.Config{
		ContractID: cfg.Contract.ID,
		Admin:      cfg.Contract.Admin,
		MinRoyalty: minRoyalty,
		MaxRoyalty: maxRoyalty,
		Fee:        fee,
		FeeAccount: cfg.Contract.FeeAccount,
		Metadata:   metadata,
	}
}

func mustFraction(key, value string) domain.Fraction {
	f, err := domain.ParseFraction(value)
	if err != nil {
		logger.Fatal("Invalid contract fraction", zap.String("key", key), zap.String("value", value), zap.Error(err))
	}
	return f
}
