package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mintgate/mg-ledger/internal/logger"
)

// AccountHeader carries the caller's account on every mutating request.
// There is no signature scheme here; deployments put authentication in
// front of the service and forward the verified account in this header.
const AccountHeader = "X-Mg-Account"

const accountContextKey = "mg-account"

// Logger returns a gin middleware for structured logging using zap
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("API request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// Recovery returns a gin middleware for panic recovery with logging
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(fmt.Errorf("panic recovered: %v", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(500, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// Account returns a gin middleware that requires the caller account header
// and stashes its value in the request context
func Account() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.GetHeader(AccountHeader)
		if account == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": fmt.Sprintf("Missing %s header", AccountHeader),
			})
			return
		}
		c.Set(accountContextKey, account)
		c.Next()
	}
}

// CallerAccount returns the account set by the Account middleware
func CallerAccount(c *gin.Context) string {
	return c.GetString(accountContextKey)
}
