// Package http holds the contract between cmd/api, the router and the modules.
package http

import (
	"nurture_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context mounted on the router.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is handed to every module at registration.
//
// Public provider endpoints (webhook, music callback) hang off Engine or V1 and
// should use WebhookRateLimiter. Everything an operator calls goes on Operator,
// which already enforces the bearer token.
type RouterContext struct {
	Engine             *gin.Engine
	V1                 *gin.RouterGroup
	Operator           *gin.RouterGroup
	WebhookRateLimiter *httpkit.IPRateLimiter
}
