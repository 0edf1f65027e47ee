package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/http"
	httpH "github.com/yungbote/ttahub-resources-backend/internal/http/handlers"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Resource *httpH.ResourceHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Resource: httpH.NewResourceHandler(log, db, svc.Engine.Service, svc.Jobs),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, serviceName string) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		Metrics:         observability.Current(),
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   handlers.Health,
		ResourceHandler: handlers.Resource,
	})
}
