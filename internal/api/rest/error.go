package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mintgate/mg-ledger/internal/domain"
	"github.com/mintgate/mg-ledger/internal/logger"
)

// ErrorCode represents a standardized error code for non-contract failures
type ErrorCode string

const (
	errCodeBadRequest       ErrorCode = "bad_request"
	errCodeNotFound         ErrorCode = "not_found"
	errCodeValidationFailed ErrorCode = "validation_failed"

	errCodeInternalError ErrorCode = "internal_error"
)

// errorResponse represents a standardized error response. Contract errors
// carry their tagged form in the error field; everything else uses the
// code/message shape.
type errorResponse struct {
	Error any `json:"error"`
}

// errorDetail contains error information for non-contract failures
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// statusForTag maps a contract error tag to an HTTP status code
func statusForTag(tag domain.ErrorTag) int {
	switch tag {
	case domain.TagGateIDNotFound,
		domain.TagTokenIDNotFound,
		domain.TagTokenKeyNotFound:
		return http.StatusNotFound
	case domain.TagNotAuthorized,
		domain.TagTokenIDNotOwnedBy,
		domain.TagSenderNotAuthToTransfer:
		return http.StatusForbidden
	case domain.TagGateIDAlreadyExists,
		domain.TagGateIDExhausted,
		domain.TagGateIDHasTokens,
		domain.TagOneApprovalAllowed,
		domain.TagReceiverIsOwner,
		domain.TagRevokeApprovalFailed,
		domain.TagBuyOwnTokenNotAllowed:
		return http.StatusConflict
	case domain.TagNotEnoughDepositToBuy:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadRequest
	}
}

// respondError translates any service error into an HTTP response.
// Contract errors keep their tagged JSON form so clients can branch on the
// err field; everything else becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	var contractErr *domain.Error
	if errors.As(err, &contractErr) {
		c.JSON(statusForTag(contractErr.Tag), errorResponse{Error: contractErr})
		return
	}

	var batchErr *domain.BatchError
	if errors.As(err, &batchErr) {
		c.JSON(http.StatusConflict, errorResponse{Error: batchErr})
		return
	}

	respondInternalError(c, err, "Internal server error")
}

// respondWithError sends a standardized non-contract error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	detail := errorDetail{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		detail.Details = details[0]
	}
	c.JSON(statusCode, errorResponse{Error: detail})
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, errCodeValidationFailed, "Validation failed", details)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}
