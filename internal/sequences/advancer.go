package sequences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nurture_backend/internal/leads"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadStore is the lead persistence the advancer needs.
type LeadStore interface {
	ListWithActiveSequences(ctx context.Context, after uuid.UUID, limit int) ([]leads.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
	UpdateActiveSequences(ctx context.Context, id uuid.UUID, expectedVersion int64, instances []leads.SequenceInstance) error
	AppendMessage(ctx context.Context, msg leads.Message) error
}

// DefinitionStore resolves triggers to definitions.
type DefinitionStore interface {
	Get(ctx context.Context, trigger string) (Definition, error)
}

// Advancer sends due drip steps and moves sequence instances forward.
type Advancer struct {
	leads       LeadStore
	definitions DefinitionStore
	sender      whatsapp.Sender
	batchSize   int
	log         *logger.Logger
	now         func() time.Time
}

// NewAdvancer creates the drip-sequence advancer.
func NewAdvancer(leadStore LeadStore, definitions DefinitionStore, sender whatsapp.Sender, batchSize int, log *logger.Logger) *Advancer {
	if batchSize < 1 {
		batchSize = 25
	}
	return &Advancer{
		leads:       leadStore,
		definitions: definitions,
		sender:      sender,
		batchSize:   batchSize,
		log:         log.Pipeline("sequences"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// TickStats summarizes one tick.
type TickStats struct {
	Leads     int
	Sent      int
	Completed int
	Failed    int
}

// Tick processes every lead with active sequences, one page at a time.
// Per-lead failures are logged and never abort the tick.
func (a *Advancer) Tick(ctx context.Context) (TickStats, error) {
	now := a.now()
	cache := make(map[string]*Definition)
	var stats TickStats

	after := uuid.Nil
	for {
		page, err := a.leads.ListWithActiveSequences(ctx, after, a.batchSize)
		if err != nil {
			return stats, fmt.Errorf("list leads with sequences: %w", err)
		}
		for _, lead := range page {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Leads++
			a.advanceLead(ctx, lead, now, cache, &stats)
		}
		if len(page) < a.batchSize {
			return stats, nil
		}
		after = page[len(page)-1].ID
	}
}

func (a *Advancer) advanceLead(ctx context.Context, lead leads.Lead, now time.Time, cache map[string]*Definition, stats *TickStats) {
	log := a.log.WithContext(ctx).With("leadId", lead.ID)
	instances := append([]leads.SequenceInstance(nil), lead.ActiveSequences...)
	changed := false

	for i := range instances {
		instance := &instances[i]
		if instance.Completed {
			changed = true
			continue
		}

		def, ok := a.definition(ctx, instance.Trigger, cache)
		if !ok {
			log.Warn("sequence definition missing", "trigger", instance.Trigger)
			continue
		}

		if instance.Index < 0 {
			instance.Index = 0
			changed = true
		}
		if len(def.Steps) <= instance.Index {
			instance.Completed = true
			changed = true
			stats.Completed++
			continue
		}

		step := def.Steps[instance.Index]
		if now.Before(instance.StartTime.Add(step.Delay())) {
			continue
		}

		if err := a.dispatch(ctx, lead, step); err != nil {
			stats.Failed++
			log.Error("sequence step send failed", "trigger", instance.Trigger, "step", instance.Index+1, "error", err)
			continue
		}
		stats.Sent++

		if err := a.leads.AppendMessage(ctx, leads.Message{
			LeadID:    lead.ID,
			Content:   fmt.Sprintf("Secuencia %s: paso %d enviado", instance.Trigger, instance.Index+1),
			MediaType: string(step.Type),
			Sender:    leads.SenderSystem,
			CreatedAt: now,
		}); err != nil {
			log.Warn("sequence audit append failed", "trigger", instance.Trigger, "error", err)
		}

		instance.Index++
		changed = true
	}

	if !changed {
		return
	}
	if err := a.saveInstances(ctx, lead, instances); err != nil {
		log.Error("saving active sequences failed", "error", err)
	}
}

// saveInstances writes the pruned list with a version check. On conflict it
// reloads, merges and retries once.
func (a *Advancer) saveInstances(ctx context.Context, lead leads.Lead, instances []leads.SequenceInstance) error {
	err := a.leads.UpdateActiveSequences(ctx, lead.ID, lead.Version, leads.PruneCompleted(instances))
	if !errors.Is(err, leads.ErrVersionConflict) {
		return err
	}

	current, err := a.leads.GetByID(ctx, lead.ID)
	if err != nil {
		return fmt.Errorf("reload after conflict: %w", err)
	}
	merged := leads.MergeAdvanced(current.ActiveSequences, instances)
	return a.leads.UpdateActiveSequences(ctx, current.ID, current.Version, merged)
}

func (a *Advancer) definition(ctx context.Context, trigger string, cache map[string]*Definition) (Definition, bool) {
	if def, ok := cache[trigger]; ok {
		if def == nil {
			return Definition{}, false
		}
		return *def, true
	}

	def, err := a.definitions.Get(ctx, trigger)
	if err != nil {
		if !errors.Is(err, ErrDefinitionNotFound) {
			a.log.WithContext(ctx).Error("loading sequence definition failed", "trigger", trigger, "error", err)
			return Definition{}, false
		}
		cache[trigger] = nil
		return Definition{}, false
	}
	cache[trigger] = &def
	return def, true
}

func (a *Advancer) dispatch(ctx context.Context, lead leads.Lead, step Step) error {
	attrs := lead.Attributes()
	switch step.Type {
	case StepForm:
		return a.sender.Send(ctx, lead.Phone, whatsapp.Text(RenderForm(step.Content, attrs)))
	case StepAudio:
		return a.sender.Send(ctx, lead.Phone, whatsapp.Audio(strings.TrimSpace(Render(step.Content, attrs))))
	case StepVideo:
		return a.sender.Send(ctx, lead.Phone, whatsapp.Video(strings.TrimSpace(Render(step.Content, attrs))))
	case StepImage:
		return a.sender.Send(ctx, lead.Phone, whatsapp.Text(strings.TrimSpace(Render(step.Content, attrs))))
	default:
		return a.sender.Send(ctx, lead.Phone, whatsapp.Text(Render(step.Content, attrs)))
	}
}
