package chat

import (
	"net/http"

	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidLeadID  = "invalid lead id"
	msgMissingAudio   = "audio file is required"
	msgAudioTooLarge  = "audio file too large"

	maxAudioBytes = 16 << 20
)

// Handler serves the operator WhatsApp endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates the chat handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SendMessage sends a text to a lead or phone.
// POST /api/v1/whatsapp/send-message
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.svc.SendMessage(c.Request.Context(), req)) {
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}

// SendAudio sends a voice note uploaded to WhatsApp media.
// POST /api/v1/whatsapp/send-audio
func (h *Handler) SendAudio(c *gin.Context) {
	h.sendAudio(c, AudioAsMedia)
}

// SendChatAudio sends a voice note by blob store link.
// POST /api/v1/whatsapp/send-chat-audio
func (h *Handler) SendChatAudio(c *gin.Context) {
	h.sendAudio(c, AudioAsLink)
}

func (h *Handler) sendAudio(c *gin.Context, delivery AudioDelivery) {
	file, err := c.FormFile("audio")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingAudio, nil)
		return
	}
	if file.Size > maxAudioBytes {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, msgAudioTooLarge, nil)
		return
	}

	recipient := Recipient{Phone: c.PostForm("phone")}
	if raw := c.PostForm("leadId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
			return
		}
		recipient.LeadID = &id
	}

	body, err := file.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingAudio, nil)
		return
	}
	defer body.Close()

	ref, err := h.svc.SendAudio(c.Request.Context(), AudioUpload{
		Recipient: recipient,
		FileName:  file.Filename,
		Body:      body,
	}, delivery)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"success": true, "media": ref})
}

// Status reports the WhatsApp connection state.
// GET /api/v1/whatsapp/status
func (h *Handler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context())
	if err == nil {
		httpkit.OK(c, status)
		return
	}
	code := http.StatusServiceUnavailable
	if whatsapp.IsAuthError(err) {
		code = http.StatusUnauthorized
	}
	httpkit.JSON(c, code, status)
}

// Number returns the business display number.
// GET /api/v1/whatsapp/number
func (h *Handler) Number(c *gin.Context) {
	number, err := h.svc.Number(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"phone": number})
}
