package device

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/middleware"
	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/service/device"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/httputil"
)

type Handler struct {
	service device.Service
}

func NewHandler(service device.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	devices := r.Group("/devices")
	{
		devices.GET("", h.List)
		devices.POST("", h.Register)
		devices.DELETE("/:id", h.Disable)
	}
}

type registerDeviceRequest struct {
	Platform   model.DevicePlatform `json:"platform" binding:"required,platform"`
	Token      string               `json:"token" binding:"required"`
	DeviceName string               `json:"device_name"`
}

func (h *Handler) Register(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	d, err := h.service.Register(c.Request.Context(), userID, req.Platform, req.Token, req.DeviceName)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, d)
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	devices, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, devices)
}

func (h *Handler) Disable(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid device ID", err))
		return
	}

	if err := h.service.Disable(c.Request.Context(), userID, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"disabled": true})
}
