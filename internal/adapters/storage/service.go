// Package storage is the durable blob store for media the funnel sends and receives:
// inbound WhatsApp media, generated tracks, watermarked previews and operator audio.
package storage

import (
	"context"
	"io"
	"time"
)

// Folders used by the callers.
const (
	FolderChatMedia  = "chat-media"
	FolderChatAudio  = "chat-audios"
	FolderFullTracks = "tracks/full"
	FolderPreviews   = "tracks/previews"
)

// StoredObject is an uploaded blob and a URL the messaging provider can fetch.
type StoredObject struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// BlobStore defines the object storage operations the funnel needs.
type BlobStore interface {
	// Put uploads reader under folder and returns the key and a fetchable URL.
	Put(ctx context.Context, folder, fileName, contentType string, reader io.Reader, size int64) (StoredObject, error)

	// PutFile uploads a local file.
	PutFile(ctx context.Context, folder, filePath, contentType string) (StoredObject, error)

	// URL returns a fetchable URL for an existing key.
	URL(ctx context.Context, key string) (string, error)

	// Open streams an object. The caller closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// EnsureBucketExists creates the media bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOPublicBaseURL() string
	GetMinioBucketMedia() string
	IsMinIOEnabled() bool
}

// SignedURLTTL is how long presigned links stay valid when no public base URL is set.
const SignedURLTTL = 24 * time.Hour
