package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/response"
)

// AdminSessionHandler handles admin HTTP requests for session monitoring.
type AdminSessionHandler struct {
	service *application.SessionService
}

// NewAdminSessionHandler creates a new AdminSessionHandler.
func NewAdminSessionHandler(service *application.SessionService) *AdminSessionHandler {
	return &AdminSessionHandler{service: service}
}

// RegisterRoutes registers admin session routes.
func (h *AdminSessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.GET("/sessions", h.ListSessions)
		admin.GET("/stats/sessions", h.SessionStats)
	}
}

// ListSessions handles GET /api/v1/admin/sessions.
func (h *AdminSessionHandler) ListSessions(c *gin.Context) {
	page, limit := parsePagination(c)

	sessions, total, err := h.service.ListSessions(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, sessions, total, page, limit)
}

// SessionStats handles GET /api/v1/admin/stats/sessions.
func (h *AdminSessionHandler) SessionStats(c *gin.Context) {
	stats, err := h.service.SessionStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
