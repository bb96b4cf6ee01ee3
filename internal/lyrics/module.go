package lyrics

import (
	apphttp "nurture_backend/internal/http"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the lyrics intake module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	repo    *Repository
}

// NewModule wires the lyrics intake module.
func NewModule(pool *pgxpool.Pool, leadReader LeadReader, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, leadReader, val, log)
	return &Module{handler: NewHandler(svc), service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "lyrics"
}

// Repository returns the job repository for the pipeline.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts the lyrics routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Operator.POST("/lyrics-jobs", m.handler.Create)
	ctx.Operator.GET("/lyrics-jobs/:id", m.handler.Get)
}

var _ apphttp.Module = (*Module)(nil)
