package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mintgate/mg-ledger/internal/api/middleware"
	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/market"
)

// MarketHandler defines the REST handlers of the marketplace
type MarketHandler interface {
	// ListTokensForSale retrieves active listings, optionally filtered by
	// exactly one of owner, gate_id or creator
	// GET /api/v1/tokens-for-sale?owner=<account>&gate_id=<gate_id>&creator=<account>
	ListTokensForSale(c *gin.Context)

	// BuyToken purchases a listed token with the caller's deposit
	// POST /api/v1/tokens-for-sale/:nft_contract_id/:token_id/buy
	BuyToken(c *gin.Context)

	// BatchOnApprove lists several tokens of one owner in one call. The
	// caller account is the notifying NFT ledger.
	// POST /api/v1/nft/batch-on-approve
	BatchOnApprove(c *gin.Context)

	// GetAccountBalance returns the accumulated sale proceeds of an account
	// GET /api/v1/balances/:account_id
	GetAccountBalance(c *gin.Context)

	// GetSaleReceipt retrieves a settled sale by receipt ID
	// GET /api/v1/receipts/:id
	GetSaleReceipt(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// marketHandler implements the MarketHandler interface
type marketHandler struct {
	service *market.Service
}

// NewMarketHandler creates a new marketplace REST handler
func NewMarketHandler(service *market.Service) MarketHandler {
	return &marketHandler{service: service}
}

func (h *marketHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"contract": h.service.ContractID(),
	})
}

func (h *marketHandler) ListTokensForSale(c *gin.Context) {
	ctx := c.Request.Context()

	owner := c.Query("owner")
	gateID := c.Query("gate_id")
	creator := c.Query("creator")
	if countSet(owner, gateID, creator) > 1 {
		respondBadRequest(c, "At most one of owner, gate_id and creator may be given")
		return
	}

	var (
		listings any
		err      error
	)
	switch {
	case owner != "":
		listings, err = h.service.GetTokensForSaleByOwner(ctx, owner)
	case gateID != "":
		listings, err = h.service.GetTokensForSaleByGate(ctx, gateID)
	case creator != "":
		listings, err = h.service.GetTokensForSaleByCreator(ctx, creator)
	default:
		listings, err = h.service.GetTokensForSale(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

// buyTokenRequest is the body of the buy endpoint. The deposit is the full
// amount the buyer pays; it becomes the sale price.
type buyTokenRequest struct {
	Deposit domain.Balance `json:"deposit" binding:"required"`
}

func (h *marketHandler) BuyToken(c *gin.Context) {
	tokenID, err := domain.ParseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token ID")
		return
	}

	var req buyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if _, err := req.Deposit.Parse(); err != nil {
		respondBadRequest(c, "Invalid deposit")
		return
	}

	receipt, err := h.service.BuyToken(
		c.Request.Context(),
		middleware.CallerAccount(c),
		c.Param("nft_contract_id"),
		tokenID,
		req.Deposit,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// batchOnApproveRequest is the body of POST /nft/batch-on-approve
type batchOnApproveRequest struct {
	Owner  string                      `json:"owner_id" binding:"required"`
	Tokens []market.BatchOnApproveItem `json:"tokens" binding:"required"`
}

func (h *marketHandler) BatchOnApprove(c *gin.Context) {
	var req batchOnApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	err := h.service.BatchOnApprove(c.Request.Context(), middleware.CallerAccount(c), req.Owner, req.Tokens)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *marketHandler) GetAccountBalance(c *gin.Context) {
	account := c.Param("account_id")
	balance, err := h.service.GetAccountBalance(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id": account,
		"amount":     balance,
	})
}

func (h *marketHandler) GetSaleReceipt(c *gin.Context) {
	receipt, err := h.service.GetSaleReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if receipt == nil {
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Receipt not found")
		return
	}
	c.JSON(http.StatusOK, receipt)
}
