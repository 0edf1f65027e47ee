package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/ttahub-resources-backend/internal/http/handlers"
	httpMW "github.com/yungbote/ttahub-resources-backend/internal/http/middleware"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	ResourceHandler *httpH.ResourceHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachAuditContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Resources
		if cfg.ResourceHandler != nil {
			api.GET("/resources/:id", cfg.ResourceHandler.GetResource)
			api.PATCH("/resources/:id", cfg.ResourceHandler.UpdateResource)

			api.GET("/parents/:parentType/:parentId/resources", cfg.ResourceHandler.ListParentResources)
			api.PUT("/parents/:parentType/:parentId/resources", cfg.ResourceHandler.SaveParentResources)
			api.DELETE("/parents/:parentType/:parentId/resources", cfg.ResourceHandler.DestroyParentResources)

			api.POST("/reports/:id/status-sync", cfg.ResourceHandler.SyncReportStatus)
		}
	}

	return r
}
