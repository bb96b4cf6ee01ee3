package webhook

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"nurture_backend/internal/adapters/storage"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/logger"
)

type fakeIngester struct {
	received []leads.InboundMessage
	seen     map[string]bool
	failFrom string
}

func (f *fakeIngester) Ingest(_ context.Context, msg leads.InboundMessage) (leads.IngestResult, error) {
	if msg.From == f.failFrom {
		return leads.IngestResult{}, errors.New("db down")
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	f.received = append(f.received, msg)
	created := !f.seen[msg.From]
	f.seen[msg.From] = true
	return leads.IngestResult{Lead: leads.Lead{Phone: msg.From}, Created: created}, nil
}

type fakeMedia struct {
	resolveErr error
}

func (f *fakeMedia) ResolveMedia(_ context.Context, mediaID string) (whatsapp.MediaInfo, error) {
	if f.resolveErr != nil {
		return whatsapp.MediaInfo{}, f.resolveErr
	}
	return whatsapp.MediaInfo{URL: "https://lookaside.example/" + mediaID, MimeType: "application/pdf", FileSize: 4}, nil
}

func (f *fakeMedia) Download(_ context.Context, _ string) (io.ReadCloser, string, int64, error) {
	return io.NopCloser(strings.NewReader("%PDF")), "", 0, nil
}

type memoryBlobs struct {
	puts []string
}

func (m *memoryBlobs) Put(_ context.Context, folder, fileName, _ string, reader io.Reader, _ int64) (storage.StoredObject, error) {
	if _, err := io.ReadAll(reader); err != nil {
		return storage.StoredObject{}, err
	}
	key := folder + "/" + fileName
	m.puts = append(m.puts, key)
	return storage.StoredObject{Key: key, URL: "https://blobs.example/" + key}, nil
}

func (m *memoryBlobs) PutFile(context.Context, string, string, string) (storage.StoredObject, error) {
	return storage.StoredObject{}, errors.New("not supported")
}

func (m *memoryBlobs) URL(_ context.Context, key string) (string, error) {
	return "https://blobs.example/" + key, nil
}

func (m *memoryBlobs) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not supported")
}

func (m *memoryBlobs) EnsureBucketExists(context.Context) error { return nil }

func newTestService(ingester LeadIngester, media MediaSource, blobs storage.BlobStore) *Service {
	svc := NewService(ingester, media, blobs, logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestProcessIngestsMessagesAndCopiesMedia(t *testing.T) {
	ingester := &fakeIngester{}
	blobs := &memoryBlobs{}
	svc := newTestService(ingester, &fakeMedia{}, blobs)

	result, err := svc.Process(context.Background(), decodePayload(t, samplePayload))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Messages != 3 || result.Created != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	doc := ingester.received[1]
	if doc.MediaRef != "https://blobs.example/"+storage.FolderChatMedia+"/doc-1.pdf" {
		t.Fatalf("expected stored media URL, got %q", doc.MediaRef)
	}
	if len(blobs.puts) != 2 {
		t.Fatalf("expected two media uploads, got %v", blobs.puts)
	}
}

func TestProcessKeepsMediaIDWhenCopyFails(t *testing.T) {
	ingester := &fakeIngester{}
	svc := newTestService(ingester, &fakeMedia{resolveErr: errors.New("expired")}, &memoryBlobs{})

	if _, err := svc.Process(context.Background(), decodePayload(t, samplePayload)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := ingester.received[1].MediaRef; got != "doc-1" {
		t.Fatalf("expected media id fallback, got %q", got)
	}
}

func TestProcessWithoutMediaCollaborators(t *testing.T) {
	ingester := &fakeIngester{}
	svc := newTestService(ingester, nil, nil)

	if _, err := svc.Process(context.Background(), decodePayload(t, samplePayload)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := ingester.received[2].MediaRef; got != "aud-1" {
		t.Fatalf("expected media id reference, got %q", got)
	}
}

func TestProcessContinuesAfterFailedIngest(t *testing.T) {
	ingester := &fakeIngester{failFrom: "5215512345678"}
	svc := newTestService(ingester, nil, nil)

	result, err := svc.Process(context.Background(), decodePayload(t, samplePayload))
	if err == nil {
		t.Fatal("expected joined ingest error")
	}
	if result.Messages != 1 || len(ingester.received) != 1 || ingester.received[0].From != "5215599999999" {
		t.Fatalf("expected the other sender to be ingested, got %+v", ingester.received)
	}
}
