package music

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"nurture_backend/internal/adapters/storage"
	"nurture_backend/internal/jobs"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/media"
	"nurture_backend/internal/musicgen"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

type memoryJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]Job
}

func newMemoryJobs(list ...Job) *memoryJobs {
	m := &memoryJobs{jobs: map[uuid.UUID]Job{}}
	for _, job := range list {
		m.jobs[job.ID] = job
	}
	return m
}

func (m *memoryJobs) Claim(_ context.Context, status Status, now time.Time, lease jobs.Lease) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Job
	for id, job := range m.jobs {
		if job.Status != status {
			continue
		}
		if job.NextAttemptAt != nil && job.NextAttemptAt.After(now) {
			continue
		}
		if job.LeaseExpiresAt != nil && !job.LeaseExpiresAt.Before(now) {
			continue
		}
		expires := lease.ExpiresAt(now)
		job.LeaseOwner = lease.Owner
		job.LeaseExpiresAt = &expires
		job.Version++
		m.jobs[id] = job
		out = append(out, job)
	}
	return out, nil
}

func (m *memoryJobs) Save(_ context.Context, job Job) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.jobs[job.ID]
	if !ok || current.Version != job.Version {
		return job, jobs.ErrClaimLost
	}
	job.LeaseOwner = ""
	job.LeaseExpiresAt = nil
	job.Version++
	m.jobs[job.ID] = job
	return job, nil
}

func (m *memoryJobs) GetByTaskID(_ context.Context, taskID string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.TaskID == taskID {
			return job, nil
		}
	}
	return Job{}, ErrNotFound
}

func (m *memoryJobs) get(id uuid.UUID) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

type fakeLeads struct {
	leads    map[uuid.UUID]leads.Lead
	triggers []string
}

func (f *fakeLeads) GetByID(_ context.Context, id uuid.UUID) (leads.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leads.Lead{}, leads.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeads) GetByPhone(_ context.Context, phone string) (leads.Lead, error) {
	for _, lead := range f.leads {
		if lead.Phone == phone {
			return lead, nil
		}
	}
	return leads.Lead{}, leads.ErrNotFound
}

func (f *fakeLeads) AddLabelAndSequence(_ context.Context, _ uuid.UUID, label string, _ leads.SequenceInstance) error {
	f.triggers = append(f.triggers, label)
	return nil
}

type scriptedCompleter struct {
	replies []string
	err     error
	calls   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, role, _ string) (string, error) {
	s.calls = append(s.calls, role)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type fakeSubmitter struct {
	taskID   string
	err      error
	requests []musicgen.SubmitRequest
}

func (f *fakeSubmitter) Submit(_ context.Context, req musicgen.SubmitRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.taskID, f.err
}

type recordingSender struct {
	sent []whatsapp.Payload
	err  error
}

func (s *recordingSender) Send(_ context.Context, _ string, payload whatsapp.Payload) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, payload)
	return nil
}

type fakeBlobs struct {
	folders []string
}

func (f *fakeBlobs) Put(_ context.Context, folder, fileName, _ string, _ io.Reader, _ int64) (storage.StoredObject, error) {
	f.folders = append(f.folders, folder)
	return storage.StoredObject{Key: folder + "/" + fileName, URL: "https://blobs.example.com/" + folder + "/" + fileName}, nil
}

func (f *fakeBlobs) PutFile(ctx context.Context, folder, filePath, contentType string) (storage.StoredObject, error) {
	if _, err := os.Stat(filePath); err != nil {
		return storage.StoredObject{}, err
	}
	return f.Put(ctx, folder, filepath.Base(filePath), contentType, nil, 0)
}

func (f *fakeBlobs) URL(_ context.Context, key string) (string, error) {
	return "https://blobs.example.com/" + key, nil
}

func (f *fakeBlobs) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBlobs) EnsureBucketExists(context.Context) error { return nil }

// touchTranscoder writes an empty output file for every operation.
type touchTranscoder struct {
	ops []string
}

func (t *touchTranscoder) Transcode(_ context.Context, _, output string) error {
	t.ops = append(t.ops, "transcode")
	return os.WriteFile(output, nil, 0o600)
}

func (t *touchTranscoder) Clip(_ context.Context, _, output string, _, _ time.Duration) error {
	t.ops = append(t.ops, "clip")
	return os.WriteFile(output, nil, 0o600)
}

func (t *touchTranscoder) Overlay(_ context.Context, _, _, output string, _ time.Duration) error {
	t.ops = append(t.ops, "overlay")
	return os.WriteFile(output, nil, 0o600)
}

type staticFetcher struct {
	calls int
}

func (f *staticFetcher) Fetch(context.Context, string) (io.ReadCloser, string, error) {
	f.calls++
	return io.NopCloser(strings.NewReader("ID3 fake mp3")), "audio/mpeg", nil
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store      *memoryJobs
	leads      *fakeLeads
	text       *scriptedCompleter
	submitter  *fakeSubmitter
	sender     *recordingSender
	blobs      *fakeBlobs
	transcoder *touchTranscoder
	fetcher    *staticFetcher
	now        time.Time
	pipeline   *Pipeline
}

func newHarness(t *testing.T, list ...Job) *harness {
	t.Helper()
	h := &harness{
		store:      newMemoryJobs(list...),
		leads:      &fakeLeads{leads: map[uuid.UUID]leads.Lead{}},
		text:       &scriptedCompleter{},
		submitter:  &fakeSubmitter{taskID: "task-123"},
		sender:     &recordingSender{},
		blobs:      &fakeBlobs{},
		transcoder: &touchTranscoder{},
		fetcher:    &staticFetcher{},
		now:        t0,
	}
	h.pipeline = NewPipeline(Deps{
		Store:      h.store,
		Leads:      h.leads,
		TextGen:    h.text,
		MusicGen:   h.submitter,
		Sender:     h.sender,
		Blobs:      h.blobs,
		Transcoder: h.transcoder,
		Fetcher:    h.fetcher,
	}, Settings{
		Lease:             jobs.Lease{Owner: "test", TTL: time.Minute, Limit: 10},
		Backoff:           jobs.Backoff{Base: time.Minute, Max: time.Hour, MaxAttempts: 2},
		Cooldown:          15 * time.Minute,
		InvalidPolicy:     jobs.PolicySkip,
		CompletionTrigger: "CancionEnviada",
		CallbackURL:       "https://api.example.com/api/v1/music/callback",
		Preview:           media.PreviewSpec{Watermark: "/assets/watermark.mp3", Duration: 35 * time.Second, WatermarkOffset: time.Second},
		WorkDir:           t.TempDir(),
	}, logger.Nop())
	h.pipeline.now = func() time.Time { return h.now }
	return h
}

func TestGenerateLyricsAdvancesToPendingPrompt(t *testing.T) {
	job := Job{ID: uuid.New(), Status: StatusPendingLyrics, Purpose: "cumpleaños", SubjectName: "Ana", CreatedAt: t0}
	h := newHarness(t, job)
	h.text.replies = []string{"[Coro]\nFeliz cumpleaños Ana"}

	if _, err := h.pipeline.GenerateLyrics(context.Background()); err != nil {
		t.Fatalf("generate lyrics: %v", err)
	}
	got := h.store.get(job.ID)
	if got.Status != StatusPendingPrompt || got.Lyrics == "" {
		t.Fatalf("expected pending_prompt with lyrics, got %+v", got)
	}
}

func TestBuildStylePromptRefinesAndTrims(t *testing.T) {
	job := Job{ID: uuid.New(), Status: StatusPendingPrompt, Artist: "Some Singer", Genre: "balada", Lyrics: "letra", CreatedAt: t0}
	h := newHarness(t, job)
	h.text.replies = []string{
		"Una balada romántica con piano y cuerdas, voz masculina suave.",
		strings.Repeat("romantic ballad, ", 10) + "soft piano",
	}

	if _, err := h.pipeline.BuildStylePrompt(context.Background()); err != nil {
		t.Fatalf("build style: %v", err)
	}
	got := h.store.get(job.ID)
	if got.Status != StatusPendingGeneration {
		t.Fatalf("expected pending_generation, got %s", got.Status)
	}
	if len(got.StylePrompt) > MaxStyleLength || strings.HasSuffix(got.StylePrompt, ",") {
		t.Fatalf("unexpected style prompt %q", got.StylePrompt)
	}
	if len(h.text.calls) != 2 {
		t.Fatalf("expected draft and refine calls, got %d", len(h.text.calls))
	}
}

func TestStageFailureExhaustsToError(t *testing.T) {
	job := Job{ID: uuid.New(), Status: StatusPendingPrompt, Genre: "rock", Lyrics: "letra", CreatedAt: t0}
	h := newHarness(t, job)
	h.text.err = errors.New("timeout")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := h.pipeline.BuildStylePrompt(ctx); err != nil {
			t.Fatalf("build style: %v", err)
		}
		h.now = h.now.Add(time.Hour)
	}
	got := h.store.get(job.ID)
	if got.Status != StatusError || got.Attempts != 2 {
		t.Fatalf("expected error after 2 attempts, got status %s attempts %d", got.Status, got.Attempts)
	}
}

func TestSubmitStoresTaskID(t *testing.T) {
	job := Job{
		ID: uuid.New(), Status: StatusPendingGeneration, CreatedAt: t0,
		Purpose: "Serenata para el aniversario de bodas de mis papás", Lyrics: "letra", StylePrompt: "bolero, requinto",
	}
	h := newHarness(t, job)

	if _, err := h.pipeline.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := h.store.get(job.ID)
	if got.Status != StatusGenerating || got.TaskID != "task-123" {
		t.Fatalf("expected generating with task id, got %+v", got)
	}
	req := h.submitter.requests[0]
	if len([]rune(req.Title)) > MaxTitleLength || req.Style != "bolero, requinto" || req.CallbackURL == "" {
		t.Fatalf("unexpected submit request %+v", req)
	}
}

func TestSubmitFailureIsTerminal(t *testing.T) {
	job := Job{ID: uuid.New(), Status: StatusPendingGeneration, Lyrics: "letra", StylePrompt: "pop", CreatedAt: t0}
	h := newHarness(t, job)
	h.submitter.err = errors.New("insufficient credits")
	ctx := context.Background()

	if _, err := h.pipeline.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := h.store.get(job.ID)
	if got.Status != StatusError || got.ErrorMessage != "insufficient credits" {
		t.Fatalf("expected error with message, got %+v", got)
	}

	h.now = h.now.Add(24 * time.Hour)
	stats, err := h.pipeline.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if stats.Claimed != 0 || len(h.submitter.requests) != 1 {
		t.Fatalf("expected failed job never to be re-selected, got %+v and %d submissions", stats, len(h.submitter.requests))
	}
}

func TestCompleteTrackBuildsPreviewOnce(t *testing.T) {
	job := Job{ID: uuid.New(), Status: StatusGenerating, TaskID: "task-123", Lyrics: "letra", CreatedAt: t0}
	h := newHarness(t, job)
	ready := musicgen.TrackReady{TaskID: "task-123", AudioURL: "https://cdn.provider.example/track.mp3"}
	ctx := context.Background()

	if err := h.pipeline.CompleteTrack(ctx, ready); err != nil {
		t.Fatalf("complete track: %v", err)
	}
	got := h.store.get(job.ID)
	if got.Status != StatusPendingSend {
		t.Fatalf("expected pending_send, got %s", got.Status)
	}
	if !strings.Contains(got.FullTrackURL, storage.FolderFullTracks) || !strings.Contains(got.PreviewURL, storage.FolderPreviews) {
		t.Fatalf("unexpected urls full=%q preview=%q", got.FullTrackURL, got.PreviewURL)
	}
	if strings.Join(h.transcoder.ops, ",") != "clip,overlay" {
		t.Fatalf("expected clip then overlay, got %v", h.transcoder.ops)
	}

	if err := h.pipeline.CompleteTrack(ctx, ready); err != nil {
		t.Fatalf("repeated callback: %v", err)
	}
	if h.fetcher.calls != 1 {
		t.Fatalf("expected repeated callback to be a no-op, got %d downloads", h.fetcher.calls)
	}
}

func TestDeliverWaitsForCooldownFromCreation(t *testing.T) {
	lead := leads.Lead{ID: uuid.New(), Phone: "525512345678", Name: "Rosa"}
	job := Job{
		ID: uuid.New(), Status: StatusPendingSend, CreatedAt: t0, LeadID: &lead.ID,
		Lyrics: "letra", PreviewURL: "https://blobs.example.com/tracks/previews/p.m4a",
	}
	h := newHarness(t, job)
	h.leads.leads[lead.ID] = lead
	ctx := context.Background()

	h.now = t0.Add(10 * time.Minute)
	if _, err := h.pipeline.Deliver(ctx); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(h.sender.sent) != 0 {
		t.Fatalf("expected nothing sent before cooldown, got %d", len(h.sender.sent))
	}

	h.now = t0.Add(16 * time.Minute)
	if _, err := h.pipeline.Deliver(ctx); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(h.sender.sent) != 2 || h.sender.sent[0].Text != "letra" || h.sender.sent[1].AudioRef != job.PreviewURL {
		t.Fatalf("expected lyrics then preview, got %+v", h.sender.sent)
	}
	got := h.store.get(job.ID)
	if got.Status != StatusSent || got.SentAt == nil {
		t.Fatalf("expected sent, got %+v", got)
	}
	if len(h.leads.triggers) != 1 || h.leads.triggers[0] != "CancionEnviada" {
		t.Fatalf("expected follow-up trigger, got %v", h.leads.triggers)
	}
}

func TestDeliverSendFailureKeepsPendingSend(t *testing.T) {
	job := Job{
		ID: uuid.New(), Status: StatusPendingSend, CreatedAt: t0, Phone: "5512345678",
		Lyrics: "letra", PreviewURL: "https://blobs.example.com/p.m4a",
	}
	h := newHarness(t, job)
	h.sender.err = errors.New("graph 500")
	h.now = t0.Add(time.Hour)

	if _, err := h.pipeline.Deliver(context.Background()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got := h.store.get(job.ID); got.Status != StatusPendingSend {
		t.Fatalf("expected pending_send after failed send, got %s", got.Status)
	}
}
