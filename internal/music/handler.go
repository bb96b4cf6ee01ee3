package music

import (
	"errors"
	"net/http"

	"nurture_backend/internal/musicgen"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the music intake endpoints and the provider callback.
type Handler struct {
	svc   *Service
	queue TrackQueue
	log   *logger.Logger
}

const (
	msgInvalidRequest  = "invalid request"
	msgInvalidID       = "invalid music job id"
	msgInvalidCallback = "invalid callback"
)

// NewHandler creates the music handler.
func NewHandler(svc *Service, queue TrackQueue, log *logger.Logger) *Handler {
	return &Handler{svc: svc, queue: queue, log: log}
}

// Create queues a new song request.
// POST /api/v1/music-jobs
func (h *Handler) Create(c *gin.Context) {
	var req CreateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	job, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, job)
}

// Get returns a music job.
// GET /api/v1/music-jobs/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	job, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

// Callback receives generation progress from the provider. Only the final
// "complete" notification is acted on.
// POST /api/v1/music/callback
func (h *Handler) Callback(c *gin.Context) {
	var payload musicgen.Callback
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCallback, nil)
		return
	}

	ready, err := payload.Resolve()
	if errors.Is(err, musicgen.ErrCallbackIncomplete) {
		httpkit.OK(c, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		h.log.WithContext(c.Request.Context()).Warn("music callback rejected", "taskId", payload.Data.TaskID, "error", err)
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCallback, err.Error())
		return
	}

	if err := h.queue.EnqueueTrackReady(c.Request.Context(), ready); err != nil {
		h.log.WithContext(c.Request.Context()).Error("queueing track completion failed", "taskId", ready.TaskID, "error", err)
		httpkit.Error(c, http.StatusServiceUnavailable, "could not queue track", nil)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "queued"})
}
