package leads

import (
	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the lead bounded context module implementing http.Module.
type Module struct {
	repo    *Repository
	service *Service
	handler *Handler
	log     *logger.Logger
}

// NewModule wires the lead repository and service.
func NewModule(pool *pgxpool.Pool, bus events.Publisher, defaultTrigger string, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, bus, defaultTrigger, log)
	return &Module{repo: repo, service: svc, handler: NewHandler(svc), log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository exposes the lead store to the pipelines.
func (m *Module) Repository() *Repository {
	return m.repo
}

// Service exposes inbound ingest to the webhook.
func (m *Module) Service() *Service {
	return m.service
}

// Messenger wraps sender with the outbound audit log.
func (m *Module) Messenger(sender whatsapp.Sender) *Messenger {
	return NewMessenger(sender, m.repo, m.log)
}

// RegisterRoutes mounts the operator lead routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Operator.GET("/leads/:id", m.handler.Get)
	ctx.Operator.GET("/leads/:id/messages", m.handler.Messages)
}

var _ apphttp.Module = (*Module)(nil)
