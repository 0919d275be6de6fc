package event

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitebeam/notify-service/internal/dispatch"
	"github.com/sitebeam/notify-service/internal/model"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/httputil"
)

// Handler ingests domain events from collaborator services. Callers
// authenticate with the service token, not a user JWT.
type Handler struct {
	dispatcher *dispatch.Dispatcher
}

func NewHandler(dispatcher *dispatch.Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/events", h.Ingest)
}

func (h *Handler) Ingest(c *gin.Context) {
	var evt model.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event body", err))
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), &evt)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{
		"created":    result.Created,
		"suppressed": result.Suppressed,
	})
}
