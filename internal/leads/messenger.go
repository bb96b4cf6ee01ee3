package leads

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"
)

// Messenger sends through the WhatsApp client and records every message it sent
// as a business message on the matching lead.
type Messenger struct {
	sender whatsapp.Sender
	store  Store
	log    *logger.Logger
	now    func() time.Time
}

// NewMessenger wraps sender with the audit log.
func NewMessenger(sender whatsapp.Sender, store Store, log *logger.Logger) *Messenger {
	return &Messenger{
		sender: sender,
		store:  store,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Send delivers payload, then audits it. Audit failures are logged, not returned.
func (m *Messenger) Send(ctx context.Context, phoneNumber string, payload whatsapp.Payload) error {
	if err := m.sender.Send(ctx, phoneNumber, payload); err != nil {
		return err
	}

	lead, err := m.store.GetByPhone(ctx, phone.Normalize(phoneNumber))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		m.log.WithContext(ctx).Warn("outbound audit lookup failed", "error", err)
		return nil
	}

	at := m.now()
	msg := Message{LeadID: lead.ID, Sender: SenderBusiness, CreatedAt: at}
	switch payload.Kind() {
	case "audio":
		msg.MediaType, msg.MediaRef = "audio", payload.AudioRef
	case "video":
		msg.MediaType, msg.MediaRef = "video", payload.VideoRef
	default:
		msg.Content = payload.Text
	}

	if err := m.store.AppendMessage(ctx, msg); err != nil {
		m.log.WithContext(ctx).Warn("outbound audit append failed", "leadId", lead.ID, "error", err)
		return nil
	}
	if err := m.store.TouchLastMessage(ctx, lead.ID, at); err != nil {
		m.log.WithContext(ctx).Warn("outbound audit touch failed", "leadId", lead.ID, "error", err)
	}
	return nil
}
