// Package notification delivers lifecycle notifications over email and
// webhooks. Delivery is fire-and-forget: a failed send is logged, never
// surfaced to the lifecycle operation that triggered it.
package notification

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/domain/notification"
	"github.com/spahub/billing/internal/domain/profile"
	"github.com/spahub/billing/internal/logger"
)

const dispatchTimeout = 30 * time.Second

// Dispatcher fans notifications out to every configured channel, capped by a
// global rate limiter so a large sweep cannot flood the providers.
type Dispatcher struct {
	email    *EmailSender
	webhook  *WebhookSender
	profiles profile.Repository
	limiter  *rate.Limiter
	logger   *logger.Logger
}

func NewDispatcher(cfg *config.Configuration, profiles profile.Repository, log *logger.Logger) notification.Notifier {
	perSecond := cfg.Subscription.NotifyRatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Dispatcher{
		email:    NewEmailSender(cfg, log),
		webhook:  NewWebhookSender(cfg, log),
		profiles: profiles,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), int(perSecond)),
		logger:   log,
	}
}

// Notify queues delivery and returns immediately. The caller's transaction or
// sweep never waits on provider I/O.
func (d *Dispatcher) Notify(ctx context.Context, profileID string, kind notification.Kind, payload map[string]interface{}) {
	log := d.logger.WithContext(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := d.limiter.Wait(ctx); err != nil {
			log.Warnw("notification dropped by rate limiter",
				"profile_id", profileID, "kind", kind)
			return
		}

		if err := d.webhook.Send(ctx, profileID, kind, payload); err != nil {
			log.Errorw("webhook notification failed",
				"profile_id", profileID, "kind", kind, "error", err)
		}

		prof, err := d.profiles.Get(ctx, profileID)
		if err != nil {
			log.Errorw("notification recipient lookup failed",
				"profile_id", profileID, "kind", kind, "error", err)
			return
		}
		if err := d.email.Send(ctx, prof.Email, kind, payload); err != nil {
			log.Errorw("email notification failed",
				"profile_id", profileID, "kind", kind, "error", err)
		}
	}()
}
