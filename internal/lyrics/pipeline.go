package lyrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nurture_backend/internal/events"
	"nurture_backend/internal/jobs"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/textgen"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the job persistence the pipeline needs.
type Store interface {
	Claim(ctx context.Context, status Status, now time.Time, lease jobs.Lease) ([]Job, error)
	Save(ctx context.Context, job Job) error
}

// LeadStore resolves recipients and records the completion label.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
	AddLabelAndSequence(ctx context.Context, id uuid.UUID, label string, instance leads.SequenceInstance) error
}

// Settings tunes the pipeline.
type Settings struct {
	Lease           jobs.Lease
	Backoff         jobs.Backoff
	Cooldown        time.Duration
	InvalidPolicy   jobs.InvalidPolicy
	CompletionLabel string
	IntroAudioURL   string
	IntroVideoURL   string
	PromoMessage    string
}

// ErrBurstIncomplete means a fixed part of the delivery burst is not configured.
var ErrBurstIncomplete = errors.New("lyrics burst incomplete")

func (s Settings) burstReady() error {
	var missing []string
	if strings.TrimSpace(s.IntroAudioURL) == "" {
		missing = append(missing, "intro audio")
	}
	if strings.TrimSpace(s.IntroVideoURL) == "" {
		missing = append(missing, "intro video")
	}
	if strings.TrimSpace(s.PromoMessage) == "" {
		missing = append(missing, "promo message")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrBurstIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// Stats summarizes one stage run.
type Stats struct {
	Claimed   int
	Advanced  int
	Deferred  int
	Failed    int
	LostClaim int
}

// Pipeline runs lyrics generation and delivery.
type Pipeline struct {
	store    Store
	leads    LeadStore
	textgen  textgen.Completer
	sender   whatsapp.Sender
	bus      events.Publisher
	settings Settings
	log      *logger.Logger
	now      func() time.Time
}

// NewPipeline creates the lyrics pipeline.
func NewPipeline(store Store, leadStore LeadStore, completer textgen.Completer, sender whatsapp.Sender, bus events.Publisher, settings Settings, log *logger.Logger) *Pipeline {
	if settings.Cooldown <= 0 {
		settings.Cooldown = 15 * time.Minute
	}
	return &Pipeline{
		store:    store,
		leads:    leadStore,
		textgen:  completer,
		sender:   sender,
		bus:      bus,
		settings: settings,
		log:      log.Pipeline("lyrics"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Generate writes lyrics for claimed pending_lyrics jobs.
func (p *Pipeline) Generate(ctx context.Context) (Stats, error) {
	now := p.now()
	claimed, err := p.store.Claim(ctx, StatusPendingLyrics, now, p.settings.Lease)
	if err != nil {
		return Stats{}, fmt.Errorf("claim pending lyrics: %w", err)
	}

	stats := Stats{Claimed: len(claimed)}
	for _, job := range claimed {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		p.generateOne(ctx, job, &stats)
	}
	return stats, nil
}

func (p *Pipeline) generateOne(ctx context.Context, job Job, stats *Stats) {
	log := p.log.ForJob(ctx, job.ID)

	text, err := p.textgen.Complete(ctx, textgen.LyricsWriterRole, textgen.LyricsPrompt(textgen.LyricsInput{
		Purpose:     job.Purpose,
		SubjectName: job.SubjectName,
		Anecdotes:   job.Anecdotes,
	}))
	now := p.now()
	if err == nil && strings.TrimSpace(text) == "" {
		err = textgen.ErrEmptyCompletion
	}

	if err != nil {
		stats.Failed++
		exhausted := job.RecordFailure(p.settings.Backoff, now, err)
		if exhausted {
			job.Status = StatusError
			log.Error("lyrics generation gave up", "attempts", job.Attempts, "error", err)
		} else {
			log.Warn("lyrics generation failed", "attempts", job.Attempts, "retryAt", job.NextAttemptAt, "error", err)
		}
		if p.save(ctx, job, stats) && exhausted {
			p.publishFailed(ctx, job, "generate")
		}
		return
	}

	job.Lyrics = strings.TrimSpace(text)
	job.GeneratedAt = &now
	job.Status = StatusPendingSend
	job.ResetRetry()
	if p.save(ctx, job, stats) {
		stats.Advanced++
		log.Info("lyrics generated")
	}
}

// Deliver sends lyrics whose cooldown has elapsed.
func (p *Pipeline) Deliver(ctx context.Context) (Stats, error) {
	now := p.now()
	claimed, err := p.store.Claim(ctx, StatusPendingSend, now, p.settings.Lease)
	if err != nil {
		return Stats{}, fmt.Errorf("claim pending sends: %w", err)
	}

	stats := Stats{Claimed: len(claimed)}
	for _, job := range claimed {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		p.deliverOne(ctx, job, now, &stats)
	}
	return stats, nil
}

func (p *Pipeline) deliverOne(ctx context.Context, job Job, now time.Time, stats *Stats) {
	log := p.log.ForJob(ctx, job.ID)

	if job.LeadID == nil || strings.TrimSpace(job.Lyrics) == "" || job.GeneratedAt == nil {
		p.invalid(ctx, job, "job is missing lead, lyrics or generation time", stats)
		return
	}

	dueAt := job.GeneratedAt.Add(p.settings.Cooldown)
	if now.Before(dueAt) {
		job.NextAttemptAt = &dueAt
		if p.save(ctx, job, stats) {
			stats.Deferred++
		}
		return
	}

	if err := p.settings.burstReady(); err != nil {
		stats.Failed++
		log.Error("lyrics burst not configured, job kept pending", "error", err)
		p.save(ctx, job, stats)
		return
	}

	lead, err := p.leads.GetByID(ctx, *job.LeadID)
	if errors.Is(err, leads.ErrNotFound) {
		p.invalid(ctx, job, "lead not found", stats)
		return
	}
	if err != nil {
		stats.Failed++
		log.Error("loading lead failed", "leadId", *job.LeadID, "error", err)
		p.save(ctx, job, stats)
		return
	}

	to := phone.Normalize(lead.Phone)
	if !phone.IsValid(to) {
		log.Warn("lead phone is invalid", "leadId", lead.ID, "phone", lead.Phone)
		p.invalid(ctx, job, "invalid phone number", stats)
		return
	}

	if err := p.sendBurst(ctx, to, lead, job); err != nil {
		stats.Failed++
		log.Error("lyrics delivery interrupted, will resend", "error", err)
		p.save(ctx, job, stats)
		return
	}

	sentAt := p.now()
	job.Status = StatusSent
	job.SentAt = &sentAt
	job.ResetRetry()
	if !p.save(ctx, job, stats) {
		return
	}
	stats.Advanced++
	log.Info("lyrics delivered", "leadId", lead.ID)

	// Enrolment follows the sent write so a failed save never enrols twice.
	if label := p.settings.CompletionLabel; label != "" {
		if err := p.leads.AddLabelAndSequence(ctx, lead.ID, label, leads.NewSequenceInstance(label, now)); err != nil {
			log.Error("adding completion label failed", "leadId", lead.ID, "error", err)
		}
	}
	if p.bus != nil {
		p.bus.Publish(ctx, events.JobDelivered{
			BaseEvent: events.NewBaseEvent(),
			Kind:      events.JobKindLyrics,
			JobID:     job.ID,
			LeadID:    lead.ID,
		})
	}
}

// sendBurst sends greeting, lyrics, intro audio, intro video and the promo text.
// The first failure aborts the burst.
func (p *Pipeline) sendBurst(ctx context.Context, to string, lead leads.Lead, job Job) error {
	parts := []whatsapp.Payload{
		whatsapp.Text(greeting(lead, job)),
		whatsapp.Text(job.Lyrics),
		whatsapp.Audio(p.settings.IntroAudioURL),
		whatsapp.Video(p.settings.IntroVideoURL),
		whatsapp.Text(p.settings.PromoMessage),
	}

	for i, part := range parts {
		if err := p.sender.Send(ctx, to, part); err != nil {
			return fmt.Errorf("part %d (%s): %w", i+1, part.Kind(), err)
		}
	}
	return nil
}

func greeting(lead leads.Lead, job Job) string {
	name := firstName(lead.Name)
	if name == "" {
		name = firstName(job.RequesterName)
	}
	subject := strings.TrimSpace(job.SubjectName)
	switch {
	case name != "" && subject != "":
		return fmt.Sprintf("¡Hola %s! 🎶 Ya está lista la letra de la canción para %s:", name, subject)
	case name != "":
		return fmt.Sprintf("¡Hola %s! 🎶 Ya está lista la letra de tu canción:", name)
	default:
		return "¡Hola! 🎶 Ya está lista la letra de tu canción:"
	}
}

func firstName(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// invalid applies the invalid-job policy.
func (p *Pipeline) invalid(ctx context.Context, job Job, reason string, stats *Stats) {
	log := p.log.ForJob(ctx, job.ID)
	if p.settings.InvalidPolicy != jobs.PolicyFail {
		log.Warn("skipping invalid lyrics job", "reason", reason)
		p.save(ctx, job, stats)
		return
	}

	job.Status = StatusError
	job.LastError = reason
	stats.Failed++
	log.Error("lyrics job failed validation", "reason", reason)
	if p.save(ctx, job, stats) {
		p.publishFailed(ctx, job, "deliver")
	}
}

// save persists job and releases its claim. It reports false when the write failed.
func (p *Pipeline) save(ctx context.Context, job Job, stats *Stats) bool {
	err := p.store.Save(ctx, job)
	if err == nil {
		return true
	}
	if errors.Is(err, jobs.ErrClaimLost) {
		stats.LostClaim++
		p.log.WithContext(ctx).Warn("lyrics job changed concurrently", "jobId", job.ID)
		return false
	}
	p.log.WithContext(ctx).Error("saving lyrics job failed", "jobId", job.ID, "error", err)
	return false
}

func (p *Pipeline) publishFailed(ctx context.Context, job Job, stage string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(ctx, events.JobFailed{
		BaseEvent: events.NewBaseEvent(),
		Kind:      events.JobKindLyrics,
		JobID:     job.ID,
		Stage:     stage,
		Reason:    job.LastError,
	})
}

// SettingsConfig is the configuration the pipeline settings are read from.
type SettingsConfig interface {
	config.EngineConfig
	config.FunnelConfig
}

// SettingsFromConfig builds pipeline settings from configuration.
func SettingsFromConfig(cfg SettingsConfig) Settings {
	return Settings{
		Lease:           jobs.LeaseFromConfig(cfg),
		Backoff:         jobs.BackoffFromConfig(cfg),
		Cooldown:        cfg.GetDeliveryCooldown(),
		InvalidPolicy:   jobs.ParseInvalidPolicy(cfg.GetInvalidJobPolicy()),
		CompletionLabel: cfg.GetLyricsCompletionLabel(),
		IntroAudioURL:   cfg.GetIntroAudioURL(),
		IntroVideoURL:   cfg.GetIntroVideoURL(),
		PromoMessage:    cfg.GetPromoMessage(),
	}
}
