package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/events"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/response"
)

// SessionHandler handles HTTP requests for navigation session operations.
type SessionHandler struct {
	service  *application.SessionService
	hub      *events.Hub
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service *application.SessionService, hub *events.Hub) *SessionHandler {
	return &SessionHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Hosts are native apps and internal services, not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers all session routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/api/v1/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.PATCH("/:id/props", h.UpdateProps)
		sessions.POST("/:id/route", h.RequestRoute)
		sessions.POST("/:id/cancel", h.CancelSession)
		sessions.POST("/:id/mute/toggle", h.ToggleMute)
		sessions.POST("/:id/surface-ready", h.SurfaceReady)
		sessions.POST("/:id/location", h.UpdateLocation)
		sessions.POST("/:id/progress", h.ReportProgress)
		sessions.POST("/:id/arrival", h.ReportArrival)
		sessions.DELETE("/:id", h.CloseSession)
		sessions.GET("/:id/events", h.StreamEvents)
	}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req application.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListSessions handles GET /api/v1/sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	page, limit := parsePagination(c)

	sessions, total, err := h.service.ListSessions(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, sessions, total, page, limit)
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.GetSession(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateProps handles PATCH /api/v1/sessions/:id/props.
func (h *SessionHandler) UpdateProps(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req application.PropsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateProps(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RequestRoute handles POST /api/v1/sessions/:id/route.
func (h *SessionHandler) RequestRoute(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.RequestRoute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, result)
}

// CancelSession handles POST /api/v1/sessions/:id/cancel.
func (h *SessionHandler) CancelSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.CancelSession(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ToggleMute handles POST /api/v1/sessions/:id/mute/toggle.
func (h *SessionHandler) ToggleMute(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.ToggleMute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SurfaceReady handles POST /api/v1/sessions/:id/surface-ready.
func (h *SessionHandler) SurfaceReady(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.SurfaceReady(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateLocation handles POST /api/v1/sessions/:id/location.
func (h *SessionHandler) UpdateLocation(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req application.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateLocation(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ReportProgress handles POST /api/v1/sessions/:id/progress.
func (h *SessionHandler) ReportProgress(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req application.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ReportProgress(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ReportArrival handles POST /api/v1/sessions/:id/arrival. An empty body is a final arrival.
func (h *SessionHandler) ReportArrival(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req application.ArrivalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.service.ReportArrival(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CloseSession handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.CloseSession(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// StreamEvents handles GET /api/v1/sessions/:id/events by upgrading to a websocket
// that receives every event of the session.
func (h *SessionHandler) StreamEvents(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if _, err := h.service.GetSession(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	h.hub.Serve(id, conn)
}

// --- Helpers ---

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
