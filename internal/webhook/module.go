// Package webhook receives WhatsApp Cloud API notifications and turns inbound
// messages into lead activity.
package webhook

import (
	"nurture_backend/internal/adapters/storage"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler   *Handler
	appSecret string
}

// NewModule creates the webhook module. media and blobs may be nil.
func NewModule(cfg config.WhatsAppConfig, ingester LeadIngester, media MediaSource, blobs storage.BlobStore, log *logger.Logger) *Module {
	service := NewService(ingester, media, blobs, log)
	return &Module{
		handler:   NewHandler(service, cfg.GetWhatsAppVerifyToken(), log),
		appSecret: cfg.GetWhatsAppAppSecret(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the webhook on the engine root, where Meta is configured to call it.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Engine.Group("/webhook")
	group.Use(ctx.WebhookRateLimiter.RateLimit())
	group.GET("", m.handler.HandleVerify)
	group.POST("", SignatureMiddleware(m.appSecret), m.handler.HandleNotification)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
