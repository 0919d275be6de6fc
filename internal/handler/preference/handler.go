package preference

import (
	"github.com/gin-gonic/gin"

	"github.com/sitebeam/notify-service/internal/middleware"
	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/service/preference"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/httputil"
)

type Handler struct {
	service preference.Service
}

func NewHandler(service preference.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prefs := r.Group("/preferences")
	{
		prefs.GET("", h.List)
		prefs.PUT("", h.Upsert)
		prefs.GET("/settings", h.GetSettings)
		prefs.PUT("/settings", h.UpsertSettings)
	}
}

type upsertPreferenceRequest struct {
	Type         model.NotificationType `json:"type" binding:"required"`
	EmailEnabled bool                   `json:"email_enabled"`
	PushEnabled  bool                   `json:"push_enabled"`
	InAppEnabled bool                   `json:"in_app_enabled"`
}

type upsertSettingsRequest struct {
	Enabled           bool   `json:"enabled"`
	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start" binding:"omitempty,clock"`
	QuietHoursEnd     string `json:"quiet_hours_end" binding:"omitempty,clock"`
	Timezone          string `json:"timezone" binding:"omitempty,tz"`
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	prefs, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, prefs)
}

func (h *Handler) Upsert(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req upsertPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	pref := &model.NotificationPreference{
		UserID:       userID,
		Type:         req.Type,
		EmailEnabled: req.EmailEnabled,
		PushEnabled:  req.PushEnabled,
		InAppEnabled: req.InAppEnabled,
	}
	if err := h.service.Upsert(c.Request.Context(), pref); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, pref)
}

func (h *Handler) GetSettings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	settings, err := h.service.GetSettings(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if settings == nil {
		// Never saved; report the effective defaults.
		settings = &model.NotificationSettings{UserID: userID, Enabled: true}
	}

	httputil.RespondWithSuccess(c, settings)
}

func (h *Handler) UpsertSettings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req upsertSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	settings := &model.NotificationSettings{
		UserID:            userID,
		Enabled:           req.Enabled,
		QuietHoursEnabled: req.QuietHoursEnabled,
		QuietHoursStart:   req.QuietHoursStart,
		QuietHoursEnd:     req.QuietHoursEnd,
		Timezone:          req.Timezone,
	}
	if err := h.service.UpsertSettings(c.Request.Context(), settings); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, settings)
}
