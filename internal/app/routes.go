package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partnerhub/core/internal/middleware"
	"github.com/partnerhub/core/internal/modules/webhook"
	"github.com/partnerhub/core/internal/pkg/cron"
	"github.com/partnerhub/core/internal/pkg/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{"name": "partnerhub-core", "version": "1.0.0"})
	})
	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMW := middleware.AdminAuth(a.keys)
	manualMW := middleware.RateLimit(a.rc, a.cfg.Webhook.ManualRateLimit, time.Minute, a.logger)

	api := r.Group(apiPrefix)
	webhook.NewHandler(a.webhooks).RegisterRoutes(api, authMW, manualMW)

	jobs := api.Group("/jobs", authMW)
	jobs.GET("", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
	jobs.POST("/:name/run", func(c *gin.Context) {
		err := a.sched.RunNow(c.Request.Context(), c.Param("name"))
		switch {
		case errors.Is(err, cron.ErrJobNotFound):
			response.NotFoundMsg(c, err.Error())
			return
		case err != nil:
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.NoContent(c)
	})
}

func (a *App) health(c *gin.Context) {
	status := http.StatusOK
	db := "ok"
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status, db = http.StatusServiceUnavailable, "unavailable"
	}
	c.JSON(status, gin.H{
		"database": db,
		"redis":    a.rc != nil,
		"uptime":   time.Since(processStart).Truncate(time.Second).String(),
	})
}
