package chat

import (
	apphttp "nurture_backend/internal/http"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"
)

// Module is the operator messaging module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires the chat module.
func NewModule(deps Deps, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(NewService(deps, val, log))}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "chat"
}

// RegisterRoutes mounts the operator WhatsApp routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	wa := ctx.Operator.Group("/whatsapp")
	wa.POST("/send-message", m.handler.SendMessage)
	wa.POST("/send-audio", m.handler.SendAudio)
	wa.POST("/send-chat-audio", m.handler.SendChatAudio)
	wa.GET("/status", m.handler.Status)
	wa.GET("/number", m.handler.Number)
}

var _ apphttp.Module = (*Module)(nil)
