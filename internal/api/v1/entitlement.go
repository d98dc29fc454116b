package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spahub/billing/internal/api/dto"
	"github.com/spahub/billing/internal/logger"
	"github.com/spahub/billing/internal/service"
	"github.com/spahub/billing/internal/types"
)

type EntitlementHandler struct {
	entitlementService service.EntitlementService
	log                *logger.Logger
}

func NewEntitlementHandler(entitlementService service.EntitlementService, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		entitlementService: entitlementService,
		log:                log,
	}
}

// @Summary Check a resource limit
// @Tags Entitlements
// @Produce json
// @Param profile_id path string true "Profile ID"
// @Param resource path string true "Resource type"
// @Success 200 {object} dto.CheckLimitResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /profiles/{profile_id}/limits/{resource} [get]
func (h *EntitlementHandler) CheckLimit(c *gin.Context) {
	req := dto.CheckLimitRequest{
		ProfileID: c.Param("profile_id"),
		Resource:  types.ResourceType(c.Param("resource")),
	}

	resp, err := h.entitlementService.CheckLimit(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Check a plan feature
// @Tags Entitlements
// @Produce json
// @Param profile_id path string true "Profile ID"
// @Param feature path string true "Feature key"
// @Success 200 {object} dto.CheckFeatureResponse
// @Router /profiles/{profile_id}/features/{feature} [get]
func (h *EntitlementHandler) CheckFeature(c *gin.Context) {
	req := dto.CheckFeatureRequest{
		ProfileID: c.Param("profile_id"),
		Feature:   types.FeatureKey(c.Param("feature")),
	}

	resp, err := h.entitlementService.CheckFeature(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get upgrade recommendations
// @Description Propose costlier plans for resources above 80% utilization
// @Tags Entitlements
// @Produce json
// @Param profile_id path string true "Profile ID"
// @Success 200 {object} dto.PlanRecommendationsResponse
// @Router /profiles/{profile_id}/recommendations [get]
func (h *EntitlementHandler) GetRecommendations(c *gin.Context) {
	resp, err := h.entitlementService.GetPlanRecommendations(c.Request.Context(), c.Param("profile_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
