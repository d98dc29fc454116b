package service

import (
	"github.com/spahub/billing/internal/cache"
	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/domain/notification"
	"github.com/spahub/billing/internal/domain/payment"
	"github.com/spahub/billing/internal/domain/profile"
	"github.com/spahub/billing/internal/domain/proration"
	"github.com/spahub/billing/internal/domain/subscription"
	"github.com/spahub/billing/internal/logger"
	"github.com/spahub/billing/internal/postgres"
)

// ServiceParams bundles every dependency a service can need. Services embed it
// and pick what they use; constructors stay one-liners and tests swap in
// in-memory implementations wholesale.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	SubRepo     subscription.Repository
	ProfileRepo profile.Repository

	ProrationCalc  proration.Calculator
	PaymentGateway payment.Gateway
	Notifier       notification.Notifier
	Cache          cache.Cache
}
