package lyrics

import (
	"net/http"

	"nurture_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the lyrics intake endpoints.
type Handler struct {
	svc *Service
}

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid lyrics job id"
)

// NewHandler creates the lyrics handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create queues a new lyrics request.
// POST /api/v1/lyrics-jobs
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

// Get returns a lyrics job.
// GET /api/v1/lyrics-jobs/:id
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
