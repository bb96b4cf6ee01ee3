package music

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"nurture_backend/internal/adapters/storage"
	"nurture_backend/internal/jobs"
	"nurture_backend/internal/media"
	"nurture_backend/internal/musicgen"
	"nurture_backend/platform/logger"
)

const (
	fetchTimeout      = 2 * time.Minute
	inlineCompleteTTL = 10 * time.Minute
	defaultTrackType  = "audio/mpeg"
)

// TrackFetcher downloads a rendered track from the provider.
type TrackFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, string, error)
}

// HTTPFetcher fetches tracks over plain HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with a bounded timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: fetchTimeout}}
}

// Fetch returns the body and content type of url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch track: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// CompleteTrack stores the finished track, builds the watermarked preview and
// moves the job to pending_send. Jobs already past generation are left alone,
// so repeated callbacks for the same task are harmless.
func (p *Pipeline) CompleteTrack(ctx context.Context, ready musicgen.TrackReady) error {
	job, err := p.Store.GetByTaskID(ctx, ready.TaskID)
	if err != nil {
		return fmt.Errorf("load job for task %s: %w", ready.TaskID, err)
	}
	log := p.log.ForJob(ctx, job.ID).With("taskId", ready.TaskID)

	switch job.Status {
	case StatusPendingSend, StatusSent:
		log.Info("track already completed")
		return nil
	case StatusGenerating:
	default:
		log.Warn("ignoring track for job not generating", "status", job.Status)
		return nil
	}

	full, preview, err := p.processTrack(ctx, ready.AudioURL)
	if err != nil {
		return err
	}

	completed, err := Apply(job, TrackCompleted{FullTrackURL: full.URL, PreviewURL: preview.URL}, p.now())
	if err != nil {
		return err
	}
	if _, err := p.Store.Save(ctx, completed); err != nil {
		if errors.Is(err, jobs.ErrClaimLost) {
			current, getErr := p.Store.GetByTaskID(ctx, ready.TaskID)
			if getErr == nil && (current.Status == StatusPendingSend || current.Status == StatusSent) {
				log.Info("track completed concurrently")
				return nil
			}
		}
		return fmt.Errorf("save completed job: %w", err)
	}

	log.Info("track stored", "fullTrackKey", full.Key, "previewKey", preview.Key)
	return nil
}

func (p *Pipeline) processTrack(ctx context.Context, audioURL string) (storage.StoredObject, storage.StoredObject, error) {
	var none storage.StoredObject

	ws, err := media.NewWorkspace(p.settings.WorkDir, "track")
	if err != nil {
		return none, none, err
	}
	defer ws.Close()

	body, contentType, err := p.Fetcher.Fetch(ctx, audioURL)
	if err != nil {
		return none, none, fmt.Errorf("download track: %w", err)
	}
	contentType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	if !strings.HasPrefix(contentType, "audio/") || !storage.IsAllowedContentType(contentType) {
		contentType = defaultTrackType
	}

	source := ws.Path("track" + storage.ExtensionFor(contentType))
	if err := writeFile(source, body); err != nil {
		return none, none, fmt.Errorf("download track: %w", err)
	}

	full, err := p.Blobs.PutFile(ctx, storage.FolderFullTracks, source, contentType)
	if err != nil {
		return none, none, fmt.Errorf("upload full track: %w", err)
	}

	previewPath := ws.Path("preview.m4a")
	if err := media.BuildPreview(ctx, p.Transcoder, ws, source, previewPath, p.settings.Preview); err != nil {
		return none, none, fmt.Errorf("build preview: %w", err)
	}
	preview, err := p.Blobs.PutFile(ctx, storage.FolderPreviews, previewPath, media.ContentTypeM4A)
	if err != nil {
		return none, none, fmt.Errorf("upload preview: %w", err)
	}
	return full, preview, nil
}

func writeFile(path string, body io.ReadCloser) error {
	defer body.Close()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TrackQueue hands finished tracks to whatever completes them.
type TrackQueue interface {
	EnqueueTrackReady(ctx context.Context, ready musicgen.TrackReady) error
}

// InlineQueue completes tracks in-process when no task queue is configured.
type InlineQueue struct {
	pipeline *Pipeline
	log      *logger.Logger
}

// NewInlineQueue creates an in-process completion queue.
func NewInlineQueue(pipeline *Pipeline, log *logger.Logger) *InlineQueue {
	return &InlineQueue{pipeline: pipeline, log: log}
}

// EnqueueTrackReady runs CompleteTrack in the background, detached from ctx's cancellation.
func (q *InlineQueue) EnqueueTrackReady(ctx context.Context, ready musicgen.TrackReady) error {
	detached := context.WithoutCancel(ctx)
	go func() {
		runCtx, cancel := context.WithTimeout(detached, inlineCompleteTTL)
		defer cancel()
		if err := q.pipeline.CompleteTrack(runCtx, ready); err != nil {
			q.log.WithContext(runCtx).Error("completing track failed", "taskId", ready.TaskID, "error", err)
		}
	}()
	return nil
}
