package main

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
	"go.uber.org/fx"

	"github.com/spahub/billing/internal/api"
	"github.com/spahub/billing/internal/api/cron"
	v1 "github.com/spahub/billing/internal/api/v1"
	"github.com/spahub/billing/internal/cache"
	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/domain/notification"
	"github.com/spahub/billing/internal/domain/payment"
	"github.com/spahub/billing/internal/domain/profile"
	"github.com/spahub/billing/internal/domain/proration"
	"github.com/spahub/billing/internal/domain/subscription"
	"github.com/spahub/billing/internal/integration/stripe"
	"github.com/spahub/billing/internal/logger"
	notifysvc "github.com/spahub/billing/internal/notification"
	"github.com/spahub/billing/internal/postgres"
	redisclient "github.com/spahub/billing/internal/redis"
	repo "github.com/spahub/billing/internal/repository/postgres"
	"github.com/spahub/billing/internal/service"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,

			newPostgresClient,
			newRedisClient,
			newCache,

			repo.NewSubscriptionRepository,
			repo.NewProfileRepository,

			proration.NewCalculator,
			newPaymentGateway,
			newNotifier,

			newServiceParams,
			service.NewSubscriptionService,
			service.NewEntitlementService,
			service.NewProjectionService,
			service.NewAnalyticsService,

			v1.NewSubscriptionHandler,
			v1.NewEntitlementHandler,
			v1.NewAnalyticsHandler,
			cron.NewSubscriptionCronHandler,

			newRouter,
		),
		fx.Invoke(
			initSentry,
			initPyroscope,
			startServer,
		),
		fx.NopLogger,
	)

	app.Run()
}

func newPostgresClient(cfg *config.Configuration, log *logger.Logger) (postgres.IClient, error) {
	return postgres.NewClient(cfg, log)
}

// newRedisClient connects only when the redis cache backend is selected
func newRedisClient(cfg *config.Configuration, log *logger.Logger) (*redisclient.Client, error) {
	if !cfg.Cache.Enabled || cache.CacheType(cfg.Cache.Type) != cache.CacheTypeRedis {
		return nil, nil
	}
	return redisclient.NewClient(cfg, log)
}

func newCache(cfg *config.Configuration, client *redisclient.Client, log *logger.Logger) cache.Cache {
	return cache.Initialize(cfg, client, log)
}

func newPaymentGateway(cfg *config.Configuration, log *logger.Logger) payment.Gateway {
	return stripe.NewGateway(cfg, log)
}

func newNotifier(cfg *config.Configuration, profiles profile.Repository, log *logger.Logger) notification.Notifier {
	return notifysvc.NewDispatcher(cfg, profiles, log)
}

func newServiceParams(
	log *logger.Logger,
	cfg *config.Configuration,
	db postgres.IClient,
	subRepo subscription.Repository,
	profileRepo profile.Repository,
	calc proration.Calculator,
	gateway payment.Gateway,
	notifier notification.Notifier,
	c cache.Cache,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:         log,
		Config:         cfg,
		DB:             db,
		SubRepo:        subRepo,
		ProfileRepo:    profileRepo,
		ProrationCalc:  calc,
		PaymentGateway: gateway,
		Notifier:       notifier,
		Cache:          c,
	}
}

func newRouter(
	subscriptionHandler *v1.SubscriptionHandler,
	entitlementHandler *v1.EntitlementHandler,
	analyticsHandler *v1.AnalyticsHandler,
	cronHandler *cron.SubscriptionCronHandler,
	cfg *config.Configuration,
	log *logger.Logger,
) *gin.Engine {
	return api.NewRouter(api.Handlers{
		Subscription: subscriptionHandler,
		Entitlement:  entitlementHandler,
		Analytics:    analyticsHandler,
		CronSub:      cronHandler,
	}, cfg, log)
}

func initSentry(cfg *config.Configuration, log *logger.Logger) error {
	if !cfg.Sentry.Enabled {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.Sentry.SampleRate,
	})
	if err != nil {
		log.Errorw("failed to initialize sentry", "error", err)
		return err
	}
	log.Infow("sentry initialized", "environment", cfg.Sentry.Environment)
	return nil
}

func initPyroscope(cfg *config.Configuration, log *logger.Logger) error {
	if !cfg.Pyroscope.Enabled {
		return nil
	}
	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: "billing",
		ServerAddress:   cfg.Pyroscope.Address,
		Logger:          nil,
	})
	if err != nil {
		log.Errorw("failed to start pyroscope", "error", err)
		return err
	}
	log.Infow("pyroscope profiling started", "address", cfg.Pyroscope.Address)
	return nil
}

func startServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorw("server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down server")
			sentry.Flush(2 * time.Second)
			return srv.Shutdown(ctx)
		},
	})
}
