package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusrooms/backend/internal/middleware"
	"focusrooms/backend/internal/service"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Get reports the caller's analytics; ?tz= picks the zone for chart days.
func (h *AnalyticsHandler) Get(c *gin.Context) {
	report, apiErr := h.analyticsService.Report(c.Request.Context(), middleware.UserID(c), c.Query("tz"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, report)
}
