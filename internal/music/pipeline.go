package music

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nurture_backend/internal/adapters/storage"
	"nurture_backend/internal/events"
	"nurture_backend/internal/jobs"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/media"
	"nurture_backend/internal/musicgen"
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
	Save(ctx context.Context, job Job) (Job, error)
	GetByTaskID(ctx context.Context, taskID string) (Job, error)
}

// LeadStore resolves recipients and starts the follow-up sequence.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
	GetByPhone(ctx context.Context, phone string) (leads.Lead, error)
	AddLabelAndSequence(ctx context.Context, id uuid.UUID, label string, instance leads.SequenceInstance) error
}

// Settings tunes the pipeline.
type Settings struct {
	Lease             jobs.Lease
	Backoff           jobs.Backoff
	Cooldown          time.Duration
	InvalidPolicy     jobs.InvalidPolicy
	CompletionTrigger string
	CallbackURL       string
	Preview           media.PreviewSpec
	WorkDir           string
}

// Stats summarizes one stage run.
type Stats struct {
	Claimed   int
	Advanced  int
	Deferred  int
	Failed    int
	LostClaim int
}

// Deps are the collaborators of the pipeline.
type Deps struct {
	Store      Store
	Leads      LeadStore
	TextGen    textgen.Completer
	MusicGen   musicgen.Submitter
	Sender     whatsapp.Sender
	Blobs      storage.BlobStore
	Transcoder media.Transcoder
	Fetcher    TrackFetcher
	Bus        events.Publisher
}

// Pipeline runs the music stages.
type Pipeline struct {
	Deps
	settings Settings
	log      *logger.Logger
	now      func() time.Time
}

// NewPipeline creates the music pipeline.
func NewPipeline(deps Deps, settings Settings, log *logger.Logger) *Pipeline {
	if settings.Cooldown <= 0 {
		settings.Cooldown = 15 * time.Minute
	}
	return &Pipeline{
		Deps:     deps,
		settings: settings,
		log:      log.Pipeline("music"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GenerateLyrics is stage A: pending_lyrics to pending_prompt.
func (p *Pipeline) GenerateLyrics(ctx context.Context) (Stats, error) {
	return p.run(ctx, StatusPendingLyrics, func(ctx context.Context, job Job, stats *Stats) {
		text, err := p.TextGen.Complete(ctx, textgen.LyricsWriterRole, textgen.LyricsPrompt(textgen.LyricsInput{
			Purpose:     job.Purpose,
			SubjectName: job.SubjectName,
			Anecdotes:   job.Anecdotes,
		}))
		if err == nil && strings.TrimSpace(text) == "" {
			err = textgen.ErrEmptyCompletion
		}
		if err != nil {
			p.retry(ctx, job, "lyrics", err, stats)
			return
		}
		p.advance(ctx, job, LyricsGenerated{Lyrics: text}, stats)
	})
}

// BuildStylePrompt is stage B: pending_prompt to pending_generation.
func (p *Pipeline) BuildStylePrompt(ctx context.Context) (Stats, error) {
	return p.run(ctx, StatusPendingPrompt, func(ctx context.Context, job Job, stats *Stats) {
		prompt, err := p.stylePrompt(ctx, job)
		if err != nil {
			p.retry(ctx, job, "style", err, stats)
			return
		}
		p.advance(ctx, job, StylePromptBuilt{Prompt: prompt}, stats)
	})
}

func (p *Pipeline) stylePrompt(ctx context.Context, job Job) (string, error) {
	draft, err := p.TextGen.Complete(ctx, textgen.StyleDraftRole, textgen.StyleDraftPrompt(textgen.StyleInput{
		Artist:    job.Artist,
		Genre:     job.Genre,
		VoiceType: job.VoiceType,
	}))
	if err != nil {
		return "", fmt.Errorf("draft style: %w", err)
	}
	if strings.TrimSpace(draft) == "" {
		return "", fmt.Errorf("draft style: %w", textgen.ErrEmptyCompletion)
	}

	refined, err := p.TextGen.Complete(ctx, textgen.StyleRefineRole, textgen.StyleRefinePrompt(draft, MaxStyleLength))
	if err != nil {
		return "", fmt.Errorf("refine style: %w", err)
	}
	prompt := TrimStyle(refined, MaxStyleLength)
	if prompt == "" {
		return "", fmt.Errorf("refine style: %w", textgen.ErrEmptyCompletion)
	}
	return prompt, nil
}

// Submit is stage C. The job is marked generating before the provider is
// called, so a crash after submission never submits it twice. A rejected
// submission ends the job in error.
func (p *Pipeline) Submit(ctx context.Context) (Stats, error) {
	return p.run(ctx, StatusPendingGeneration, func(ctx context.Context, job Job, stats *Stats) {
		log := p.log.ForJob(ctx, job.ID)

		started, err := Apply(job, SubmissionStarted{}, p.now())
		if err != nil {
			log.Error("cannot start submission", "error", err)
			return
		}
		started, ok := p.save(ctx, started, stats)
		if !ok {
			return
		}

		taskID, err := p.MusicGen.Submit(ctx, musicgen.SubmitRequest{
			Title:       Title(job.Purpose),
			Style:       job.StylePrompt,
			Lyrics:      job.Lyrics,
			CallbackURL: p.settings.CallbackURL,
		})
		if err != nil {
			stats.Failed++
			log.Error("music submission failed", "error", err)
			failed, applyErr := Apply(started, SubmissionFailed{Reason: err.Error()}, p.now())
			if applyErr != nil {
				log.Error("cannot record submission failure", "error", applyErr)
				return
			}
			if _, ok := p.save(ctx, failed, stats); ok {
				p.publishFailed(ctx, failed, "submit")
			}
			return
		}

		accepted, err := Apply(started, SubmissionAccepted{TaskID: taskID}, p.now())
		if err != nil {
			stats.Failed++
			log.Error("provider returned no task id", "error", err)
			return
		}
		if _, ok := p.save(ctx, accepted, stats); ok {
			stats.Advanced++
			log.Info("music generation submitted", "taskId", taskID)
		}
	})
}

// Deliver is stage D: sends lyrics and the watermarked preview once the
// cooldown since creation has elapsed.
func (p *Pipeline) Deliver(ctx context.Context) (Stats, error) {
	return p.run(ctx, StatusPendingSend, func(ctx context.Context, job Job, stats *Stats) {
		log := p.log.ForJob(ctx, job.ID)
		now := p.now()

		dueAt := job.CreatedAt.Add(p.settings.Cooldown)
		if now.Before(dueAt) {
			job.NextAttemptAt = &dueAt
			if _, ok := p.save(ctx, job, stats); ok {
				stats.Deferred++
			}
			return
		}

		lead, hasLead := p.lead(ctx, job)
		to := job.Phone
		if to == "" && hasLead {
			to = lead.Phone
		}
		to = phone.Normalize(to)

		switch {
		case !phone.IsValid(to):
			p.invalid(ctx, job, "missing or invalid phone number", stats)
			return
		case strings.TrimSpace(job.Lyrics) == "":
			p.invalid(ctx, job, "missing lyrics", stats)
			return
		case job.PreviewURL == "":
			p.invalid(ctx, job, "missing preview url", stats)
			return
		}

		if err := p.Sender.Send(ctx, to, whatsapp.Text(job.Lyrics)); err != nil {
			stats.Failed++
			log.Error("sending lyrics failed, will resend", "error", err)
			p.save(ctx, job, stats)
			return
		}
		if err := p.Sender.Send(ctx, to, whatsapp.Audio(job.PreviewURL)); err != nil {
			stats.Failed++
			log.Error("sending preview failed, will resend", "error", err)
			p.save(ctx, job, stats)
			return
		}

		delivered, err := Apply(job, Delivered{}, p.now())
		if err != nil {
			log.Error("cannot mark delivered", "error", err)
			return
		}
		delivered.ResetRetry()
		if _, ok := p.save(ctx, delivered, stats); !ok {
			return
		}
		stats.Advanced++
		log.Info("music preview delivered", "phone", to)

		if !hasLead {
			if found, err := p.Leads.GetByPhone(ctx, to); err == nil {
				lead, hasLead = found, true
			}
		}
		if hasLead {
			if trigger := p.settings.CompletionTrigger; trigger != "" {
				if err := p.Leads.AddLabelAndSequence(ctx, lead.ID, trigger, leads.NewSequenceInstance(trigger, now)); err != nil {
					log.Error("starting follow-up sequence failed", "leadId", lead.ID, "error", err)
				}
			}
			if p.Bus != nil {
				p.Bus.Publish(ctx, events.JobDelivered{
					BaseEvent: events.NewBaseEvent(),
					Kind:      events.JobKindMusic,
					JobID:     job.ID,
					LeadID:    lead.ID,
				})
			}
		}
	})
}

func (p *Pipeline) lead(ctx context.Context, job Job) (leads.Lead, bool) {
	if job.LeadID == nil {
		return leads.Lead{}, false
	}
	lead, err := p.Leads.GetByID(ctx, *job.LeadID)
	if err != nil {
		if !errors.Is(err, leads.ErrNotFound) {
			p.log.WithContext(ctx).Error("loading lead failed", "jobId", job.ID, "leadId", *job.LeadID, "error", err)
		}
		return leads.Lead{}, false
	}
	return lead, true
}

// run claims a batch in status and processes it sequentially.
func (p *Pipeline) run(ctx context.Context, status Status, fn func(context.Context, Job, *Stats)) (Stats, error) {
	claimed, err := p.Store.Claim(ctx, status, p.now(), p.settings.Lease)
	if err != nil {
		return Stats{}, fmt.Errorf("claim %s: %w", status, err)
	}

	stats := Stats{Claimed: len(claimed)}
	for _, job := range claimed {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		fn(ctx, job, &stats)
	}
	return stats, nil
}

func (p *Pipeline) advance(ctx context.Context, job Job, event Event, stats *Stats) {
	next, err := Apply(job, event, p.now())
	if err != nil {
		stats.Failed++
		p.log.WithContext(ctx).Error("music transition rejected", "jobId", job.ID, "error", err)
		p.save(ctx, job, stats)
		return
	}
	next.ResetRetry()
	if _, ok := p.save(ctx, next, stats); ok {
		stats.Advanced++
		p.log.WithContext(ctx).Info("music job advanced", "jobId", job.ID, "status", next.Status)
	}
}

// retry records a failed generation attempt, ending the job once the backoff budget is spent.
func (p *Pipeline) retry(ctx context.Context, job Job, stage string, cause error, stats *Stats) {
	log := p.log.ForJob(ctx, job.ID).With("stage", stage)
	stats.Failed++

	if !job.RecordFailure(p.settings.Backoff, p.now(), cause) {
		log.Warn("music stage failed", "attempts", job.Attempts, "retryAt", job.NextAttemptAt, "error", cause)
		p.save(ctx, job, stats)
		return
	}

	failed, err := Apply(job, Failed{Reason: cause.Error()}, p.now())
	if err != nil {
		log.Error("cannot fail music job", "error", err)
		return
	}
	log.Error("music stage gave up", "attempts", job.Attempts, "error", cause)
	if _, ok := p.save(ctx, failed, stats); ok {
		p.publishFailed(ctx, failed, stage)
	}
}

// invalid applies the invalid-job policy.
func (p *Pipeline) invalid(ctx context.Context, job Job, reason string, stats *Stats) {
	log := p.log.ForJob(ctx, job.ID)
	if p.settings.InvalidPolicy != jobs.PolicyFail {
		log.Warn("skipping invalid music job", "reason", reason)
		p.save(ctx, job, stats)
		return
	}

	stats.Failed++
	failed, err := Apply(job, Failed{Reason: reason}, p.now())
	if err != nil {
		log.Error("cannot fail music job", "error", err)
		return
	}
	log.Error("music job failed validation", "reason", reason)
	if _, ok := p.save(ctx, failed, stats); ok {
		p.publishFailed(ctx, failed, "deliver")
	}
}

func (p *Pipeline) save(ctx context.Context, job Job, stats *Stats) (Job, bool) {
	saved, err := p.Store.Save(ctx, job)
	if err == nil {
		return saved, true
	}
	if errors.Is(err, jobs.ErrClaimLost) {
		stats.LostClaim++
		p.log.WithContext(ctx).Warn("music job changed concurrently", "jobId", job.ID)
		return job, false
	}
	p.log.WithContext(ctx).Error("saving music job failed", "jobId", job.ID, "error", err)
	return job, false
}

func (p *Pipeline) publishFailed(ctx context.Context, job Job, stage string) {
	if p.Bus == nil {
		return
	}
	p.Bus.Publish(ctx, events.JobFailed{
		BaseEvent: events.NewBaseEvent(),
		Kind:      events.JobKindMusic,
		JobID:     job.ID,
		Stage:     stage,
		Reason:    job.ErrorMessage,
	})
}

// SettingsConfig is the configuration the pipeline settings are read from.
type SettingsConfig interface {
	config.EngineConfig
	config.FunnelConfig
	config.MediaConfig
	config.MusicGenConfig
}

// SettingsFromConfig builds pipeline settings from configuration.
func SettingsFromConfig(cfg SettingsConfig) Settings {
	return Settings{
		Lease:             jobs.LeaseFromConfig(cfg),
		Backoff:           jobs.BackoffFromConfig(cfg),
		Cooldown:          cfg.GetDeliveryCooldown(),
		InvalidPolicy:     jobs.ParseInvalidPolicy(cfg.GetInvalidJobPolicy()),
		CompletionTrigger: cfg.GetMusicCompletionTrigger(),
		CallbackURL:       cfg.GetMusicCallbackURL(),
		Preview:           media.PreviewSpecFromConfig(cfg),
		WorkDir:           cfg.GetMediaWorkDir(),
	}
}
