package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spahub/billing/internal/api/dto"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/logger"
	"github.com/spahub/billing/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	log                 *logger.Logger
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		log:                 log,
	}
}

// @Summary Create a subscription
// @Description Create a subscription for a profile; any previous live subscription is superseded
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.CreateSubscriptionRequest true "Subscription configuration"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.subscriptionService.Create(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Start a trial
// @Description Start the profile's one-time trial period
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param trial body dto.StartTrialRequest true "Trial configuration"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /subscriptions/trial [post]
func (h *SubscriptionHandler) StartTrial(c *gin.Context) {
	var req dto.StartTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.subscriptionService.StartTrial(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Activate a subscription
// @Description Mark a pending or trial subscription paid and active
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param payment body dto.PaymentData false "Payment details"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /subscriptions/{id}/activate [post]
func (h *SubscriptionHandler) Activate(c *gin.Context) {
	req := dto.ActivateSubscriptionRequest{SubscriptionID: c.Param("id")}
	if err := c.ShouldBindJSON(&req.Payment); err != nil && err.Error() != "EOF" {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.subscriptionService.Activate(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Renew a subscription
// @Description Extend an active or expired subscription for another term
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param renewal body dto.RenewSubscriptionRequest false "Renewal configuration"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /subscriptions/{id}/renew [post]
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	var req dto.RenewSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	req.SubscriptionID = c.Param("id")

	resp, err := h.subscriptionService.Renew(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Change plan
// @Description Switch the subscription to another plan with proration
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param change body dto.ChangePlanRequest true "Target plan"
// @Success 200 {object} dto.ChangePlanResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /subscriptions/{id}/change-plan [post]
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	req.SubscriptionID = c.Param("id")

	resp, err := h.subscriptionService.ChangePlan(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel a subscription
// @Description Cancel immediately or schedule cancellation at period end
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param cancellation body dto.CancelSubscriptionRequest false "Cancellation details"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /subscriptions/{id}/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	var req dto.CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	req.SubscriptionID = c.Param("id")

	resp, err := h.subscriptionService.Cancel(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Toggle auto-renew
// @Description Enable or disable auto-renewal on an active subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param toggle body dto.SetAutoRenewRequest true "Auto-renew flag"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /subscriptions/{id}/auto-renew [put]
func (h *SubscriptionHandler) SetAutoRenew(c *gin.Context) {
	var req dto.SetAutoRenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	req.SubscriptionID = c.Param("id")

	resp, err := h.subscriptionService.SetAutoRenew(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a subscription
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(c *gin.Context) {
	resp, err := h.subscriptionService.GetSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a profile's live subscription
// @Description Returns 204 when the profile is on the free tier
// @Tags Subscriptions
// @Produce json
// @Param profile_id path string true "Profile ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Success 204
// @Router /profiles/{profile_id}/subscription [get]
func (h *SubscriptionHandler) GetActive(c *gin.Context) {
	resp, err := h.subscriptionService.GetActiveSubscription(c.Request.Context(), c.Param("profile_id"))
	if err != nil {
		c.Error(err)
		return
	}
	if resp == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List subscription history
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {array} subscription.HistoryEntry
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions/{id}/history [get]
func (h *SubscriptionHandler) ListHistory(c *gin.Context) {
	entries, err := h.subscriptionService.ListHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
