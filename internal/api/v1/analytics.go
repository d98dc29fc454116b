package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spahub/billing/internal/logger"
	"github.com/spahub/billing/internal/service"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	projectionSvc    service.ProjectionService
	log              *logger.Logger
}

func NewAnalyticsHandler(
	analyticsService service.AnalyticsService,
	projectionSvc service.ProjectionService,
	log *logger.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		projectionSvc:    projectionSvc,
		log:              log,
	}
}

// @Summary Get subscription statistics
// @Description Revenue, subscribers, conversion, churn, cohorts and forecast
// @Tags Analytics
// @Produce json
// @Success 200 {object} dto.AnalyticsSnapshot
// @Router /analytics/statistics [get]
func (h *AnalyticsHandler) GetStatistics(c *gin.Context) {
	snap, err := h.analyticsService.GetStatistics(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary Export the revenue table as CSV
// @Tags Analytics
// @Produce text/csv
// @Success 200
// @Router /analytics/revenue/export [get]
func (h *AnalyticsHandler) ExportRevenueCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="subscription_revenue.csv"`)
	if err := h.analyticsService.ExportRevenueCSV(c.Request.Context(), c.Writer); err != nil {
		c.Error(err)
		return
	}
}

// @Summary Validate a profile's premium projection
// @Description Read-only drift report between projection and subscriptions
// @Tags Analytics
// @Produce json
// @Param profile_id path string true "Profile ID"
// @Success 200 {object} dto.ValidateProjectionResponse
// @Router /profiles/{profile_id}/projection/validate [get]
func (h *AnalyticsHandler) ValidateProjection(c *gin.Context) {
	resp, err := h.projectionSvc.ValidateProfileStatus(c.Request.Context(), c.Param("profile_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
