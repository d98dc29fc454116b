package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spahub/billing/internal/api/dto"
	"github.com/spahub/billing/internal/logger"
	"github.com/spahub/billing/internal/service"
)

// SubscriptionCronHandler exposes the periodic sweeps to the external
// scheduler. Every sweep is idempotent; overlapping invocations are safe.
type SubscriptionCronHandler struct {
	subscriptionService service.SubscriptionService
	projectionService   service.ProjectionService
	logger              *logger.Logger
}

func NewSubscriptionCronHandler(
	subscriptionService service.SubscriptionService,
	projectionService service.ProjectionService,
	logger *logger.Logger,
) *SubscriptionCronHandler {
	return &SubscriptionCronHandler{
		subscriptionService: subscriptionService,
		projectionService:   projectionService,
		logger:              logger,
	}
}

// CheckExpirations expires every subscription past its end date or trial deadline
func (h *SubscriptionCronHandler) CheckExpirations(c *gin.Context) {
	h.logger.Infow("starting expiration sweep", "time", time.Now().UTC().Format(time.RFC3339))

	count, err := h.subscriptionService.CheckExpirations(c.Request.Context())
	if err != nil {
		h.logger.Errorw("expiration sweep failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed expiration sweep", "expired", count)
	c.JSON(http.StatusOK, dto.SweepResponse{Processed: count})
}

// ProcessAutoRenewals charges and renews subscriptions inside the renewal window
func (h *SubscriptionCronHandler) ProcessAutoRenewals(c *gin.Context) {
	h.logger.Infow("starting auto-renewal sweep", "time", time.Now().UTC().Format(time.RFC3339))

	count, err := h.subscriptionService.ProcessAutoRenewals(c.Request.Context())
	if err != nil {
		h.logger.Errorw("auto-renewal sweep failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed auto-renewal sweep", "renewed", count)
	c.JSON(http.StatusOK, dto.SweepResponse{Processed: count})
}

// SendExpirationReminders notifies holders of soon-to-expire subscriptions
func (h *SubscriptionCronHandler) SendExpirationReminders(c *gin.Context) {
	h.logger.Infow("starting reminder sweep", "time", time.Now().UTC().Format(time.RFC3339))

	count, err := h.subscriptionService.SendExpirationReminders(c.Request.Context())
	if err != nil {
		h.logger.Errorw("reminder sweep failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed reminder sweep", "reminded", count)
	c.JSON(http.StatusOK, dto.SweepResponse{Processed: count})
}

// ReconcileProjections repairs drift in the denormalized premium flags
func (h *SubscriptionCronHandler) ReconcileProjections(c *gin.Context) {
	h.logger.Infow("starting projection reconciliation", "time", time.Now().UTC().Format(time.RFC3339))

	resp, err := h.projectionService.BulkUpdateStatuses(c.Request.Context())
	if err != nil {
		h.logger.Errorw("projection reconciliation failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
