package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spahub/billing/internal/api/cron"
	"github.com/spahub/billing/internal/api/middleware"
	v1 "github.com/spahub/billing/internal/api/v1"
	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/logger"
)

// Handlers aggregates every HTTP handler wired into the router
type Handlers struct {
	Subscription *v1.SubscriptionHandler
	Entitlement  *v1.EntitlementHandler
	Analytics    *v1.AnalyticsHandler
	CronSub      *cron.SubscriptionCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode == "api" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = log.GetGinLogger()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestContextMiddleware(),
		middleware.SentryMiddleware(cfg),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/v1")
	{
		subs := api.Group("/subscriptions")
		{
			subs.POST("", handlers.Subscription.Create)
			subs.POST("/trial", handlers.Subscription.StartTrial)
			subs.GET("/:id", handlers.Subscription.Get)
			subs.GET("/:id/history", handlers.Subscription.ListHistory)
			subs.POST("/:id/activate", handlers.Subscription.Activate)
			subs.POST("/:id/renew", handlers.Subscription.Renew)
			subs.POST("/:id/change-plan", handlers.Subscription.ChangePlan)
			subs.POST("/:id/cancel", handlers.Subscription.Cancel)
			subs.PUT("/:id/auto-renew", handlers.Subscription.SetAutoRenew)
		}

		profiles := api.Group("/profiles/:profile_id")
		{
			profiles.GET("/subscription", handlers.Subscription.GetActive)
			profiles.GET("/limits/:resource", handlers.Entitlement.CheckLimit)
			profiles.GET("/features/:feature", handlers.Entitlement.CheckFeature)
			profiles.GET("/recommendations", handlers.Entitlement.GetRecommendations)
			profiles.GET("/projection/validate", handlers.Analytics.ValidateProjection)
		}

		analytics := api.Group("/analytics")
		{
			analytics.GET("/statistics", handlers.Analytics.GetStatistics)
			analytics.GET("/revenue/export", handlers.Analytics.ExportRevenueCSV)
		}
	}

	// scheduler-invoked jobs, kept off the public v1 surface
	jobs := router.Group("/cron")
	{
		jobs.POST("/subscriptions/expire", handlers.CronSub.CheckExpirations)
		jobs.POST("/subscriptions/auto-renew", handlers.CronSub.ProcessAutoRenewals)
		jobs.POST("/subscriptions/remind", handlers.CronSub.SendExpirationReminders)
		jobs.POST("/subscriptions/reconcile", handlers.CronSub.ReconcileProjections)
	}

	return router
}
