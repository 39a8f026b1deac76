package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mintgate/mg-ledger/internal/api/middleware"
	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/ledger"
)

// LedgerHandler defines the REST handlers of the NFT ledger
type LedgerHandler interface {
	// GetMetadata returns the contract metadata
	// GET /api/v1/metadata
	GetMetadata(c *gin.Context)

	// CreateCollectible registers a collectible under a gate ID
	// POST /api/v1/collectibles
	CreateCollectible(c *gin.Context)

	// GetCollectible retrieves a collectible by gate ID
	// GET /api/v1/collectibles/:gate_id
	GetCollectible(c *gin.Context)

	// ListCollectibles retrieves collectibles by creator
	// GET /api/v1/collectibles?creator=<account>
	ListCollectibles(c *gin.Context)

	// DeleteCollectible removes an unclaimed collectible
	// DELETE /api/v1/collectibles/:gate_id
	DeleteCollectible(c *gin.Context)

	// ClaimToken mints the next copy of a collectible to the caller
	// POST /api/v1/collectibles/:gate_id/claim
	ClaimToken(c *gin.Context)

	// GetToken retrieves a token by ID
	// GET /api/v1/tokens/:token_id
	GetToken(c *gin.Context)

	// ListTokens retrieves tokens by owner, optionally scoped to a gate ID
	// GET /api/v1/tokens?owner=<account>&gate_id=<gate_id>
	ListTokens(c *gin.Context)

	// GetTotalSupply returns the number of claimed tokens
	// GET /api/v1/tokens/supply
	GetTotalSupply(c *gin.Context)

	// GetPayout reports the payout split of a hypothetical sale
	// GET /api/v1/tokens/:token_id/payout?balance=<amount>
	GetPayout(c *gin.Context)

	// TransferToken moves the caller's token to a receiver
	// POST /api/v1/tokens/:token_id/transfer
	TransferToken(c *gin.Context)

	// BurnToken deletes the caller's token
	// DELETE /api/v1/tokens/:token_id
	BurnToken(c *gin.Context)

	// ApproveToken grants a marketplace the right to sell the caller's token
	// POST /api/v1/tokens/:token_id/approve
	ApproveToken(c *gin.Context)

	// BatchApproveTokens approves several tokens at once, skipping failures
	// POST /api/v1/tokens/approve
	BatchApproveTokens(c *gin.Context)

	// RevokeApproval withdraws the approval granted to one account
	// POST /api/v1/tokens/:token_id/revoke
	RevokeApproval(c *gin.Context)

	// RevokeAllApprovals withdraws every approval on the caller's token
	// POST /api/v1/tokens/:token_id/revoke-all
	RevokeAllApprovals(c *gin.Context)

	// TransferPayout settles a marketplace sale
	// POST /api/v1/nft/transfer-payout
	TransferPayout(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// ledgerHandler implements the LedgerHandler interface
type ledgerHandler struct {
	service *ledger.Service
}

// NewLedgerHandler creates a new NFT ledger REST handler
func NewLedgerHandler(service *ledger.Service) LedgerHandler {
	return &ledgerHandler{service: service}
}

func (h *ledgerHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"contract": h.service.ContractID(),
	})
}

func (h *ledgerHandler) GetMetadata(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Metadata())
}

// createCollectibleRequest is the body of POST /collectibles
type createCollectibleRequest struct {
	GateID        string          `json:"gate_id" binding:"required"`
	Title         *string         `json:"title"`
	Description   *string         `json:"description"`
	Supply        uint64          `json:"supply"`
	Royalty       domain.Fraction `json:"royalty"`
	Media         *string         `json:"media"`
	MediaHash     *string         `json:"media_hash"`
	Reference     *string         `json:"reference"`
	ReferenceHash *string         `json:"reference_hash"`
}

func (h *ledgerHandler) CreateCollectible(c *gin.Context) {
	var req createCollectibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	collectible, err := h.service.CreateCollectible(c.Request.Context(), ledger.CreateCollectibleInput{
		Creator:       middleware.CallerAccount(c),
		GateID:        req.GateID,
		Title:         req.Title,
		Description:   req.Description,
		Supply:        req.Supply,
		Royalty:       req.Royalty,
		Media:         req.Media,
		MediaHash:     req.MediaHash,
		Reference:     req.Reference,
		ReferenceHash: req.ReferenceHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, collectible)
}

func (h *ledgerHandler) GetCollectible(c *gin.Context) {
	collectible, err := h.service.GetCollectible(c.Request.Context(), c.Param("gate_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collectible)
}

func (h *ledgerHandler) ListCollectibles(c *gin.Context) {
	creator := c.Query("creator")
	if creator == "" {
		respondBadRequest(c, "The creator query parameter is required")
		return
	}

	collectibles, err := h.service.GetCollectiblesByCreator(c.Request.Context(), creator)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collectibles)
}

func (h *ledgerHandler) DeleteCollectible(c *gin.Context) {
	err := h.service.DeleteCollectible(c.Request.Context(), middleware.CallerAccount(c), c.Param("gate_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) ClaimToken(c *gin.Context) {
	token, err := h.service.ClaimToken(c.Request.Context(), middleware.CallerAccount(c), c.Param("gate_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

func (h *ledgerHandler) GetToken(c *gin.Context) {
	tokenID, err := domain.ParseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token ID")
		return
	}

	token, err := h.service.GetToken(c.Request.Context(), tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *ledgerHandler) ListTokens(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		respondBadRequest(c, "The owner query parameter is required")
		return
	}

	var err error
	var tokens any
	if gateID := c.Query("gate_id"); gateID != "" {
		tokens, err = h.service.GetTokensByOwnerAndGate(c.Request.Context(), owner, gateID)
	} else {
		tokens, err = h.service.GetTokensByOwner(c.Request.Context(), owner)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *ledgerHandler) GetTotalSupply(c *gin.Context) {
	supply, err := h.service.TotalSupply(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_supply": supply})
}

func (h *ledgerHandler) GetPayout(c *gin.Context) {
	tokenID, err := domain.ParseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token ID")
		return
	}

	balance := domain.Balance(c.Query("balance"))
	if balance == "" {
		respondBadRequest(c, "The balance query parameter is required")
		return
	}
	if _, err := balance.Parse(); err != nil {
		respondBadRequest(c, "Invalid balance")
		return
	}

	payout, err := h.service.Payout(c.Request.Context(), tokenID, balance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// transferTokenRequest is the body of POST /tokens/:token_id/transfer
type transferTokenRequest struct {
	Receiver          string  `json:"receiver_id" binding:"required"`
	EnforceApprovalID *uint64 `json:"enforce_approval_id"`
	Memo              *string `json:"memo"`
}

func (h *ledgerHandler) TransferToken(c *gin.Context) {
	tokenID, err := domain.ParseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token ID")
		return
	}

	var req transferTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	token, err := h.service.Transfer(c.Request.Context(), middleware.CallerAccount(c), ledger.TransferInput{
		Receiver:          req.Receiver,
		TokenID:           tokenID,
		EnforceApprovalID: req.EnforceApprovalID,
		Memo:              req.Memo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *ledgerHandler) BurnToken(c *gin.Context) {
	tokenID, err := domain.ParseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token ID")
		return
	}

	if err := h.service.BurnToken(c.Request.Context(), middleware.CallerAccount(c), tokenID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// approveTokenRequest is the body of POST /tokens/:token_id/approve. The
// msg is forwarded verbatim and must carry the minimum sale price.
type approveTokenRequest struct {
	Account string `json:"account_id" binding:"required"`
	Msg     string `json:"msg"`
}

func (h *ledgerHandler) ApproveToken(c *gin.Context) {
	tokenID, err := domain.ParseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token ID")
		return
	}

	var req approveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	approval, err := h.service.Approve(c.Request.Context(), middleware.CallerAccount(c), tokenID, req.Account, req.Msg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, approval)
}

// batchApproveRequest is the body of POST /tokens/approve. Each token
// carries its own minimum price.
type batchApproveRequest struct {
	Tokens  []ledger.BatchApproveItem `json:"tokens" binding:"required"`
	Account string                    `json:"account_id" binding:"required"`
}

func (h *ledgerHandler) BatchApproveTokens(c *gin.Context) {
	var req batchApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.service.BatchApprove(c.Request.Context(), middleware.CallerAccount(c), req.Tokens, req.Account)
	if err != nil {
		respondError(c, err)
		return
	}

	// Partial failure still approves what it can; the response carries
	// both sides so the caller can retry precisely.
	response := gin.H{"approved": result.Approved}
	status := http.StatusCreated
	if result.Failed != nil {
		response["errors"] = result.Failed
		status = http.StatusMultiStatus
	}
	c.JSON(status, response)
}

// revokeApprovalRequest is the body of POST /tokens/:token_id/revoke
type revokeApprovalRequest struct {
	Account string `json:"account_id" binding:"required"`
}

func (h *ledgerHandler) RevokeApproval(c *gin.Context) {
	tokenID, err := domain.ParseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token ID")
		return
	}

	var req revokeApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.service.Revoke(c.Request.Context(), middleware.CallerAccount(c), tokenID, req.Account); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) RevokeAllApprovals(c *gin.Context) {
	tokenID, err := domain.ParseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token ID")
		return
	}

	if err := h.service.RevokeAll(c.Request.Context(), middleware.CallerAccount(c), tokenID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) TransferPayout(c *gin.Context) {
	var req domain.TransferPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if req.Receiver == "" {
		respondBadRequest(c, "The receiver_id field is required")
		return
	}

	payout, err := h.service.TransferPayout(c.Request.Context(), middleware.CallerAccount(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}
