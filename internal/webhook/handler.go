package webhook

import (
	"crypto/subtle"
	"net/http"

	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errVerifyFailed   = "verification failed"
	errIngestFailed   = "ingest failed"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service     *Service
	verifyToken string
	log         *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, verifyToken string, log *logger.Logger) *Handler {
	return &Handler{service: service, verifyToken: verifyToken, log: log}
}

// HandleVerify answers Meta's subscription handshake.
// GET /webhook
func (h *Handler) HandleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		httpkit.Error(c, http.StatusForbidden, errVerifyFailed, nil)
		return
	}
	c.String(http.StatusOK, challenge)
}

// HandleNotification ingests inbound messages. A failed ingest answers 500
// so Meta redelivers the notification.
// POST /webhook
func (h *Handler) HandleNotification(c *gin.Context) {
	var payload Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}

	result, err := h.service.Process(c.Request.Context(), payload)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, errIngestFailed, nil)
		return
	}
	if result.Messages > 0 {
		h.log.WithContext(c.Request.Context()).Info("webhook processed", "messages", result.Messages, "newLeads", result.Created)
	}
	c.Status(http.StatusOK)
}
