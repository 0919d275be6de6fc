package ops

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
	"github.com/sitebeam/notify-service/internal/worker"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/httputil"
)

// Handler exposes the manual maintenance levers. Routes are mounted behind
// the operator token middleware, never the user JWT.
type Handler struct {
	delivery repository.DeliveryRepository
	janitor  *worker.Janitor
	// maxRetries is the workers' retry cap, used to derive the default
	// attempt allowance for the retry sweep.
	maxRetries int
}

func NewHandler(delivery repository.DeliveryRepository, janitor *worker.Janitor, maxRetries int) *Handler {
	return &Handler{delivery: delivery, janitor: janitor, maxRetries: maxRetries}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	ops := r.Group("/ops")
	{
		ops.POST("/delivery/retry", h.RetryFailed)
		ops.POST("/purge", h.Purge)
		ops.GET("/delivery/pending", h.PendingCounts)
	}
}

// RetryFailed flips failed tasks back to pending after a transient outage of
// the SMTP relay or push gateway. max_retries bounds total attempts per task;
// the workers record one attempt past their cap on exhaustion, so the default
// of cap+1 picks up exactly the tasks that exhausted the standard cap.
// Permanently failed tasks (dead endpoint, rejected address) are never
// re-queued.
func (h *Handler) RetryFailed(c *gin.Context) {
	channels, err := channelsParam(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	maxRetries := h.maxRetries + 1
	if raw := c.Query("max_retries"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.RespondWithError(c, apperrors.BadRequest("max_retries must be a positive integer", err))
			return
		}
		maxRetries = n
	}

	requeued := map[string]int64{}
	for _, channel := range channels {
		n, err := h.delivery.RetryFailed(c.Request.Context(), channel, maxRetries)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		requeued[string(channel)] = n
	}

	httputil.RespondWithSuccess(c, gin.H{"requeued": requeued})
}

// Purge runs the janitor sweep immediately instead of waiting for its tick.
func (h *Handler) Purge(c *gin.Context) {
	h.janitor.Sweep(c.Request.Context())
	httputil.RespondWithSuccess(c, gin.H{"swept": true})
}

func (h *Handler) PendingCounts(c *gin.Context) {
	channels, err := channelsParam(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	pending := map[string]int{}
	for _, channel := range channels {
		n, err := h.delivery.PendingCount(c.Request.Context(), channel)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		pending[string(channel)] = n
	}

	httputil.RespondWithSuccess(c, gin.H{"pending": pending})
}

func channelsParam(c *gin.Context) ([]model.Channel, error) {
	raw := c.Query("channel")
	if raw == "" {
		return []model.Channel{model.ChannelEmail, model.ChannelPush}, nil
	}
	channel := model.Channel(raw)
	if channel != model.ChannelEmail && channel != model.ChannelPush {
		return nil, apperrors.BadRequest("channel must be email or push", nil)
	}
	return []model.Channel{channel}, nil
}
