package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"nurture_backend/internal/adapters/storage"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/logger"
)

// LeadIngester records an inbound message against its lead. Satisfied by leads.Service.
type LeadIngester interface {
	Ingest(ctx context.Context, msg leads.InboundMessage) (leads.IngestResult, error)
}

// MediaSource resolves and downloads media hosted by Meta. Satisfied by whatsapp.Client.
type MediaSource interface {
	ResolveMedia(ctx context.Context, mediaID string) (whatsapp.MediaInfo, error)
	Download(ctx context.Context, mediaURL string) (io.ReadCloser, string, int64, error)
}

// Service processes inbound webhook notifications.
type Service struct {
	ingester LeadIngester
	media    MediaSource
	blobs    storage.BlobStore
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates the webhook service. media and blobs may be nil, in which
// case inbound media keeps the Meta media id as its reference.
func NewService(ingester LeadIngester, media MediaSource, blobs storage.BlobStore, log *logger.Logger) *Service {
	return &Service{
		ingester: ingester,
		media:    media,
		blobs:    blobs,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ProcessResult summarizes one notification.
type ProcessResult struct {
	Messages int
	Created  int
}

// Process ingests every message in payload. It keeps going after a failed
// message and returns the joined errors.
func (s *Service) Process(ctx context.Context, payload Payload) (ProcessResult, error) {
	var (
		result ProcessResult
		errs   []error
	)
	for _, in := range ExtractMessages(payload, s.now()) {
		if in.MediaID != "" {
			in.Message.MediaRef = s.storeMedia(ctx, in.MediaID, in.Message.MediaType)
		}

		res, err := s.ingester.Ingest(ctx, in.Message)
		if err != nil {
			s.log.WithContext(ctx).Error("inbound message ingest failed", "from", in.Message.From, "error", err)
			errs = append(errs, err)
			continue
		}
		result.Messages++
		if res.Created {
			result.Created++
		}
	}
	return result, errors.Join(errs...)
}

// storeMedia copies Meta-hosted media to the blob store and returns its URL.
// On failure the Meta media id is returned so the reference is not lost.
func (s *Service) storeMedia(ctx context.Context, mediaID, mediaType string) string {
	if s.media == nil || s.blobs == nil {
		return mediaID
	}
	log := s.log.WithContext(ctx).With("mediaId", mediaID, "mediaType", mediaType)

	stored, err := s.copyMedia(ctx, mediaID)
	if err != nil {
		log.Warn("inbound media copy failed, keeping media id", "error", err)
		return mediaID
	}
	return stored.URL
}

func (s *Service) copyMedia(ctx context.Context, mediaID string) (storage.StoredObject, error) {
	info, err := s.media.ResolveMedia(ctx, mediaID)
	if err != nil {
		return storage.StoredObject{}, fmt.Errorf("resolve media: %w", err)
	}

	body, contentType, size, err := s.media.Download(ctx, info.URL)
	if err != nil {
		return storage.StoredObject{}, fmt.Errorf("download media: %w", err)
	}
	defer body.Close()

	if contentType == "" {
		contentType = info.MimeType
	}
	if size <= 0 {
		size = info.FileSize
	}
	if size <= 0 {
		size = -1
	}

	return s.blobs.Put(ctx, storage.FolderChatMedia, mediaID+storage.ExtensionFor(contentType), contentType, body, size)
}
