package leads

import (
	"net/http"
	"strconv"

	"nurture_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidLeadID = "invalid lead id"

	defaultMessageLimit = 50
	maxMessageLimit     = 500
)

// Handler serves the operator lead endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates the lead handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get returns a lead.
// GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// Messages returns the recent message log and clears the unread counter.
// GET /api/v1/leads/:id/messages?limit=50
func (h *Handler) Messages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	limit := defaultMessageLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxMessageLimit)
		}
	}

	msgs, err := h.svc.Messages(c.Request.Context(), id, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Items(c, msgs)
}
