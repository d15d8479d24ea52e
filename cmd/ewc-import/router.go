package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/trs-ewc-import/internal/handler"
	"github.com/noah-isme/trs-ewc-import/internal/middleware"
	"github.com/noah-isme/trs-ewc-import/internal/models"
	"github.com/noah-isme/trs-ewc-import/internal/service"
	"github.com/noah-isme/trs-ewc-import/pkg/config"
	"github.com/noah-isme/trs-ewc-import/pkg/logger"
	reqidmiddleware "github.com/noah-isme/trs-ewc-import/pkg/middleware/requestid"
)

type routes struct {
	auth    middleware.TokenValidator
	metrics *service.MetricsService
	health  *handler.MetricsHandler
	ledger  *handler.IntegrationTransactionHandler
	imports *handler.ImportHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(h.metrics))

	r.GET("/health", h.health.Health)
	r.GET("/ready", h.health.Ready)
	r.GET("/metrics", h.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(h.auth), middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))

	ledger := api.Group("/integration-transactions")
	ledger.GET("", h.ledger.List)
	ledger.GET("/:id", h.ledger.Get)
	ledger.GET("/:id/records", h.ledger.Records)
	ledger.GET("/:id/export.csv", h.ledger.ExportCSV)
	ledger.GET("/:id/report.pdf", h.ledger.ReportPDF)

	imports := api.Group("/imports/ewc-wales")
	imports.GET("/status", h.imports.Status)
	imports.POST("/run", h.imports.Run)

	return r
}
