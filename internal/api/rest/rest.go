package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/mintgate/mg-ledger/internal/api/middleware"
)

// SetupLedgerRoutes configures the REST API routes of the NFT ledger
func SetupLedgerRoutes(router *gin.Engine, handler LedgerHandler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/metadata", handler.GetMetadata)

		// Collectible endpoints
		v1.GET("/collectibles/:gate_id", handler.GetCollectible)
		v1.GET("/collectibles", handler.ListCollectibles)
		v1.POST("/collectibles", middleware.Account(), handler.CreateCollectible)
		v1.DELETE("/collectibles/:gate_id", middleware.Account(), handler.DeleteCollectible)
		v1.POST("/collectibles/:gate_id/claim", middleware.Account(), handler.ClaimToken)

		// Token endpoints
		v1.GET("/tokens/supply", handler.GetTotalSupply)
		v1.GET("/tokens/:token_id", handler.GetToken)
		v1.GET("/tokens/:token_id/payout", handler.GetPayout)
		v1.GET("/tokens", handler.ListTokens)
		v1.POST("/tokens/:token_id/transfer", middleware.Account(), handler.TransferToken)
		v1.DELETE("/tokens/:token_id", middleware.Account(), handler.BurnToken)

		// Approval endpoints
		v1.POST("/tokens/approve", middleware.Account(), handler.BatchApproveTokens)
		v1.POST("/tokens/:token_id/approve", middleware.Account(), handler.ApproveToken)
		v1.POST("/tokens/:token_id/revoke", middleware.Account(), handler.RevokeApproval)
		v1.POST("/tokens/:token_id/revoke-all", middleware.Account(), handler.RevokeAllApprovals)

		// Marketplace settlement endpoint
		v1.POST("/nft/transfer-payout", middleware.Account(), handler.TransferPayout)
	}
}

// SetupMarketRoutes configures the REST API routes of the marketplace
func SetupMarketRoutes(router *gin.Engine, handler MarketHandler) {
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/tokens-for-sale", handler.ListTokensForSale)
		v1.POST("/tokens-for-sale/:nft_contract_id/:token_id/buy", middleware.Account(), handler.BuyToken)
		v1.POST("/nft/batch-on-approve", middleware.Account(), handler.BatchOnApprove)
		v1.GET("/balances/:account_id", handler.GetAccountBalance)
		v1.GET("/receipts/:id", handler.GetSaleReceipt)
	}
}
