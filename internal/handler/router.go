package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/apptsched/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	Config       *config.Config
	Appointments v1.AppointmentService
	Metrics      *metrics.Collector
	Health       HealthCheck
	Log          *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		RequestID(),
		Logger(deps.Log),
		CORS(deps.Config.CORS),
	)
	if deps.Metrics != nil {
		r.Use(Metrics(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/healthz", healthz(deps.Config.App, deps.Health))

	api := r.Group("/api/v1", RateLimit(deps.Config.RateLimit))
	v1.NewAppointmentHandler(deps.Appointments, deps.Log).Register(api)

	return r
}

func healthz(app config.AppConfig, check HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unavailable",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": app.Name,
			"version": app.Version,
		})
	}
}
