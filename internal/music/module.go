package music

import (
	apphttp "nurture_backend/internal/http"
	"nurture_backend/platform/config"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the music intake and callback module implementing http.Module.
type Module struct {
	handler        *Handler
	repo           *Repository
	callbackSecret string
}

// Callback requests carry the secret in this header or the token query parameter.
const callbackTokenHeader = "X-Callback-Token"

// NewModule wires the music module. queue receives completed tracks from the callback.
func NewModule(pool *pgxpool.Pool, leadReader LeadReader, queue TrackQueue, cfg config.MusicCallbackConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, leadReader, val, log)
	return &Module{handler: NewHandler(svc, queue, log), repo: repo, callbackSecret: cfg.GetMusicCallbackSecret()}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "music"
}

// Repository returns the job repository for the pipeline.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts the music routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/music/callback",
		ctx.WebhookRateLimiter.RateLimit(),
		httpkit.SharedSecret(m.callbackSecret, callbackTokenHeader, "token"),
		m.handler.Callback,
	)

	ctx.Operator.POST("/music-jobs", m.handler.Create)
	ctx.Operator.GET("/music-jobs/:id", m.handler.Get)
}

var _ apphttp.Module = (*Module)(nil)
