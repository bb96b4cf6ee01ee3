package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nurture_backend/internal/events"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"
	"nurture_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the persistence the lead service needs.
type Store interface {
	UpsertInbound(ctx context.Context, in InboundUpsert) (Lead, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetByPhone(ctx context.Context, phone string) (Lead, error)
	AppendMessage(ctx context.Context, msg Message) error
	TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error
	ListMessages(ctx context.Context, leadID uuid.UUID, limit int) ([]Message, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// InboundMessage is the provider-neutral shape of one inbound message.
type InboundMessage struct {
	From      string
	Name      string
	Text      string
	MediaType string
	MediaRef  string
	At        time.Time
}

// IngestResult reports what Ingest did.
type IngestResult struct {
	Lead    Lead
	Created bool
}

// Service implements inbound ingest and lead lookups.
type Service struct {
	store          Store
	bus            events.Publisher
	defaultTrigger string
	log            *logger.Logger
	now            func() time.Time
}

// NewService creates the lead service.
func NewService(store Store, bus events.Publisher, defaultTrigger string, log *logger.Logger) *Service {
	if strings.TrimSpace(defaultTrigger) == "" {
		defaultTrigger = "NuevoLead"
	}
	return &Service{
		store:          store,
		bus:            bus,
		defaultTrigger: defaultTrigger,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Ingest upserts the sending lead and appends the message to its log.
// A new lead starts with the default trigger as label and active sequence.
func (s *Service) Ingest(ctx context.Context, msg InboundMessage) (IngestResult, error) {
	normalized := phone.Normalize(msg.From)
	if normalized == "" {
		return IngestResult{}, apperr.Validation("sender phone is required")
	}

	at := msg.At
	if at.IsZero() {
		at = s.now()
	}

	trigger := s.DefaultTrigger(ctx)
	lead, created, err := s.store.UpsertInbound(ctx, InboundUpsert{
		Phone:   normalized,
		Name:    sanitize.Text(msg.Name),
		Country: phone.Region(normalized),
		Trigger: trigger,
		At:      at,
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("upsert lead: %w", err)
	}

	if err := s.store.AppendMessage(ctx, Message{
		LeadID:    lead.ID,
		Content:   sanitize.Text(msg.Text),
		MediaType: msg.MediaType,
		MediaRef:  msg.MediaRef,
		Sender:    SenderLead,
		CreatedAt: at,
	}); err != nil {
		return IngestResult{}, fmt.Errorf("append inbound message: %w", err)
	}

	if created {
		s.log.WithContext(ctx).Info("lead created", "leadId", lead.ID, "trigger", trigger)
		if s.bus != nil {
			s.bus.Publish(ctx, events.LeadCreated{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    lead.ID,
				Phone:     lead.Phone,
				Name:      lead.Name,
				Trigger:   trigger,
			})
		}
	}

	return IngestResult{Lead: lead, Created: created}, nil
}

// DefaultTrigger returns the app setting override or the configured default.
func (s *Service) DefaultTrigger(ctx context.Context) string {
	value, ok, err := s.store.GetSetting(ctx, SettingDefaultTrigger)
	if err != nil {
		s.log.WithContext(ctx).Warn("default trigger setting unavailable", "error", err)
		return s.defaultTrigger
	}
	if ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return s.defaultTrigger
}

// Get loads a lead by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := s.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// Messages returns the recent message log of a lead and marks it read.
func (s *Service) Messages(ctx context.Context, id uuid.UUID, limit int) ([]Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkRead(ctx, id); err != nil {
		s.log.WithContext(ctx).Warn("mark lead read failed", "leadId", id, "error", err)
	}
	return msgs, nil
}
