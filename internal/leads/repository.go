package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, phone, name, source, status, country, labels, active_sequences, unread_count, last_message_at, created_at, version`

// SettingDefaultTrigger is the app_settings key overriding the configured default trigger.
const SettingDefaultTrigger = "default_trigger"

// Repository is the PostgreSQL lead store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lead repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InboundUpsert carries the fields of an inbound message that touch the lead.
type InboundUpsert struct {
	Phone   string
	Name    string
	Country string
	Trigger string
	At      time.Time
}

// UpsertInbound creates the lead with the default trigger label and sequence, or
// increments unread_count and bumps last_message_at atomically when it exists.
// The boolean reports whether the lead was created.
func (r *Repository) UpsertInbound(ctx context.Context, in InboundUpsert) (Lead, bool, error) {
	sequences, err := json.Marshal([]SequenceInstance{NewSequenceInstance(in.Trigger, in.At)})
	if err != nil {
		return Lead{}, false, fmt.Errorf("marshal sequences: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (phone, name, source, status, country, labels, active_sequences, unread_count, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5, ARRAY[$6::text], $7::jsonb, 1, $8, $8)
		ON CONFLICT (phone) DO UPDATE SET
			unread_count = leads.unread_count + 1,
			last_message_at = EXCLUDED.last_message_at,
			name = CASE WHEN leads.name = '' THEN EXCLUDED.name ELSE leads.name END,
			updated_at = now()
		RETURNING `+leadColumns+`, (xmax = 0) AS inserted`,
		in.Phone, in.Name, SourceWhatsApp, StatusNew, in.Country, in.Trigger, sequences, in.At)

	var inserted bool
	lead, err := scanLead(row, &inserted)
	if err != nil {
		return Lead{}, false, err
	}
	return lead, inserted, nil
}

// GetByID loads a lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// GetByPhone loads a lead by normalized phone.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE phone = $1`, phone))
}

// ListWithActiveSequences pages through leads with a non-empty active list in id order.
func (r *Repository) ListWithActiveSequences(ctx context.Context, after uuid.UUID, limit int) ([]Lead, error) {
	if limit < 1 {
		limit = 25
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE jsonb_array_length(active_sequences) > 0 AND id > $1
		ORDER BY id
		LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, lead)
	}
	return result, rows.Err()
}

// UpdateActiveSequences overwrites the active list if the lead is still at expectedVersion.
func (r *Repository) UpdateActiveSequences(ctx context.Context, id uuid.UUID, expectedVersion int64, instances []SequenceInstance) error {
	payload, err := json.Marshal(nonNil(instances))
	if err != nil {
		return fmt.Errorf("marshal sequences: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET active_sequences = $3::jsonb, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`, id, expectedVersion, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

// AddLabelAndSequence adds label (once) and appends instance in one statement.
// The instance is not appended while an uncompleted one for the same trigger is
// still running, so repeating the call does not enrol the lead twice.
func (r *Repository) AddLabelAndSequence(ctx context.Context, id uuid.UUID, label string, instance SequenceInstance) error {
	payload, err := json.Marshal([]SequenceInstance{instance})
	if err != nil {
		return fmt.Errorf("marshal sequence: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET labels = CASE WHEN $2 = '' OR $2 = ANY(labels) THEN labels ELSE array_append(labels, $2) END,
			active_sequences = CASE
				WHEN EXISTS (
					SELECT 1 FROM jsonb_array_elements(active_sequences) AS s
					WHERE s->>'trigger' = $4 AND COALESCE((s->>'completed')::boolean, false) = false
				) THEN active_sequences
				ELSE active_sequences || $3::jsonb
			END,
			version = version + 1,
			updated_at = now()
		WHERE id = $1`, id, label, payload, instance.Trigger)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage adds a message to the lead's log.
func (r *Repository) AppendMessage(ctx context.Context, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_messages (lead_id, content, media_type, media_ref, sender, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.LeadID, msg.Content, nullable(msg.MediaType), nullable(msg.MediaRef), string(msg.Sender), msg.CreatedAt)
	return err
}

// TouchLastMessage sets last_message_at.
func (r *Repository) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE leads SET last_message_at = $2, updated_at = now() WHERE id = $1`, id, at)
	return err
}

// ListMessages returns the newest messages of a lead, oldest first.
func (r *Repository) ListMessages(ctx context.Context, leadID uuid.UUID, limit int) ([]Message, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, content, COALESCE(media_type, ''), COALESCE(media_ref, ''), sender, created_at
		FROM (
			SELECT * FROM lead_messages WHERE lead_id = $1 ORDER BY created_at DESC LIMIT $2
		) recent
		ORDER BY created_at ASC`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var msg Message
		var sender string
		if err := rows.Scan(&msg.ID, &msg.LeadID, &msg.Content, &msg.MediaType, &msg.MediaRef, &sender, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Sender = Sender(sender)
		result = append(result, msg)
	}
	return result, rows.Err()
}

// MarkRead resets the unread counter.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE leads SET unread_count = 0, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSetting reads an app setting. Missing keys return ok=false.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func scanLead(row pgx.Row, extra ...any) (Lead, error) {
	var (
		lead      Lead
		sequences []byte
	)
	dest := append([]any{
		&lead.ID, &lead.Phone, &lead.Name, &lead.Source, &lead.Status, &lead.Country,
		&lead.Labels, &sequences, &lead.UnreadCount, &lead.LastMessageAt, &lead.CreatedAt, &lead.Version,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	if len(sequences) > 0 {
		if err := json.Unmarshal(sequences, &lead.ActiveSequences); err != nil {
			return Lead{}, fmt.Errorf("decode active sequences: %w", err)
		}
	}
	return lead, nil
}

func nonNil(instances []SequenceInstance) []SequenceInstance {
	if instances == nil {
		return []SequenceInstance{}
	}
	return instances
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
