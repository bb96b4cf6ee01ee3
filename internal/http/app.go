package http

import (
	"context"

	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.OperatorAuthConfig
}

// HealthChecker reports whether the database answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what cmd/api hands the router: config, logger, the database
// health check and the modules to mount in order.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
