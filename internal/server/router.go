package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/chemstatilizer/chemstat-backend/internal/handlers"
	"github.com/chemstatilizer/chemstat-backend/internal/middleware"
)

type RouterConfig struct {
	DatasetHandler *handlers.DatasetHandler
	RequestLogger  *middleware.RequestLogger
	CORSOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cfg.RequestLogger.Handle())
	router.Use(otelgin.Middleware("chemstat-backend"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/upload/", cfg.DatasetHandler.Upload)
	router.GET("/datasets/", cfg.DatasetHandler.List)
	router.GET("/datasets/:id/report/", cfg.DatasetHandler.Report)

	return router
}
