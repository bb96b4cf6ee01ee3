package sequences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores sequence definitions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a definition repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads the definition for trigger.
func (r *Repository) Get(ctx context.Context, trigger string) (Definition, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT steps FROM sequence_definitions WHERE trigger = $1`, trigger).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, ErrDefinitionNotFound
	}
	if err != nil {
		return Definition{}, err
	}

	def := Definition{Trigger: trigger}
	if err := json.Unmarshal(raw, &def.Steps); err != nil {
		return Definition{}, fmt.Errorf("decode steps of %s: %w", trigger, err)
	}
	return def, nil
}

// Upsert creates or replaces a definition.
func (r *Repository) Upsert(ctx context.Context, def Definition) error {
	steps := def.Steps
	if steps == nil {
		steps = []Step{}
	}
	raw, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO sequence_definitions (trigger, steps, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (trigger) DO UPDATE SET steps = EXCLUDED.steps, updated_at = now()`,
		def.Trigger, raw)
	return err
}

// List returns every definition ordered by trigger.
func (r *Repository) List(ctx context.Context) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `SELECT trigger, steps FROM sequence_definitions ORDER BY trigger`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Definition
	for rows.Next() {
		var (
			def Definition
			raw []byte
		)
		if err := rows.Scan(&def.Trigger, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &def.Steps); err != nil {
			return nil, fmt.Errorf("decode steps of %s: %w", def.Trigger, err)
		}
		result = append(result, def)
	}
	return result, rows.Err()
}
