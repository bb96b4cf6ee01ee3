package leads

import (
	"context"
	"sync"
	"time"

	"nurture_backend/internal/whatsapp"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu       sync.Mutex
	leads    map[uuid.UUID]*Lead
	messages []Message
	settings map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{leads: map[uuid.UUID]*Lead{}, settings: map[string]string{}}
}

func (m *memoryStore) UpsertInbound(_ context.Context, in InboundUpsert) (Lead, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.Phone == in.Phone {
			lead.UnreadCount++
			at := in.At
			lead.LastMessageAt = &at
			return *lead, false, nil
		}
	}
	at := in.At
	lead := &Lead{
		ID:              uuid.New(),
		Phone:           in.Phone,
		Name:            in.Name,
		Source:          SourceWhatsApp,
		Status:          StatusNew,
		Country:         in.Country,
		Labels:          []string{in.Trigger},
		ActiveSequences: []SequenceInstance{NewSequenceInstance(in.Trigger, in.At)},
		UnreadCount:     1,
		LastMessageAt:   &at,
		CreatedAt:       in.At,
		Version:         1,
	}
	m.leads[lead.ID] = lead
	return *lead, true, nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return *lead, nil
}

func (m *memoryStore) GetByPhone(_ context.Context, phone string) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.Phone == phone {
			return *lead, nil
		}
	}
	return Lead{}, ErrNotFound
}

func (m *memoryStore) AppendMessage(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memoryStore) TouchLastMessage(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lead, ok := m.leads[id]; ok {
		lead.LastMessageAt = &at
	}
	return nil
}

func (m *memoryStore) ListMessages(_ context.Context, leadID uuid.UUID, _ int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.messages {
		if msg.LeadID == leadID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memoryStore) MarkRead(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return ErrNotFound
	}
	lead.UnreadCount = 0
	return nil
}

func (m *memoryStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.settings[key]
	return value, ok, nil
}

type sentMessage struct {
	phone   string
	payload whatsapp.Payload
}

type recordingSender struct {
	sent []sentMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, phone string, payload whatsapp.Payload) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{phone: phone, payload: payload})
	return nil
}
