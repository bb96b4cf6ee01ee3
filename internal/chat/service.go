// Package chat implements the operator messaging API: free-form text and
// voice notes sent to a lead, plus WhatsApp connection checks.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nurture_backend/internal/adapters/storage"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/media"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"
	"nurture_backend/platform/validator"

	"github.com/google/uuid"
)

// LeadReader resolves a lead id to its phone.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
}

// MediaUploader hosts a local file on WhatsApp and returns the media id.
type MediaUploader interface {
	UploadMedia(ctx context.Context, filePath, mimeType string) (string, error)
}

// NumberSource reports the business number behind the configured credentials.
type NumberSource interface {
	DisplayPhoneNumber(ctx context.Context) (string, error)
}

// AudioDelivery selects how a voice note reaches WhatsApp.
type AudioDelivery int

const (
	// AudioAsMedia uploads the note to the Graph media endpoint and sends it by id.
	AudioAsMedia AudioDelivery = iota
	// AudioAsLink stores the note in the blob store and sends its URL.
	AudioAsLink
)

// Deps are the collaborators of the chat service. Blobs may be nil, which
// disables AudioAsLink.
type Deps struct {
	Leads      LeadReader
	Sender     whatsapp.Sender
	Uploader   MediaUploader
	Number     NumberSource
	Blobs      storage.BlobStore
	Transcoder media.Transcoder
	WorkDir    string
}

// Service sends operator messages.
type Service struct {
	deps Deps
	val  *validator.Validator
	log  *logger.Logger
}

// NewService creates the chat service.
func NewService(deps Deps, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{deps: deps, val: val, log: log}
}

// Recipient identifies who a message goes to. LeadID wins over Phone.
type Recipient struct {
	LeadID *uuid.UUID `json:"leadId"`
	Phone  string     `json:"phone" validate:"omitempty,phone"`
}

// SendMessageRequest is the body of a text send.
type SendMessageRequest struct {
	Recipient
	Message string `json:"message" validate:"required,max=4096"`
}

// AudioUpload is a voice note recorded by the operator.
type AudioUpload struct {
	Recipient
	FileName string
	Body     io.Reader
}

// SendMessage sends a text message.
func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) error {
	req.Message = strings.TrimSpace(req.Message)
	if err := s.val.Struct(req); err != nil {
		return apperr.Validation("validation failed").WithDetails(err.Error())
	}

	to, err := s.resolve(ctx, req.Recipient)
	if err != nil {
		return err
	}
	if err := s.deps.Sender.Send(ctx, to, whatsapp.Text(req.Message)); err != nil {
		return apperr.External("whatsapp send failed", err)
	}
	return nil
}

// SendAudio transcodes the upload to AAC/M4A and sends it as a voice note.
// It returns the media reference WhatsApp was given.
func (s *Service) SendAudio(ctx context.Context, upload AudioUpload, delivery AudioDelivery) (string, error) {
	if err := s.val.Struct(upload.Recipient); err != nil {
		return "", apperr.Validation("validation failed").WithDetails(err.Error())
	}
	if upload.Body == nil {
		return "", apperr.Validation("audio file is required")
	}
	if delivery == AudioAsLink && s.deps.Blobs == nil {
		return "", apperr.Unavailable("blob storage is not configured")
	}

	to, err := s.resolve(ctx, upload.Recipient)
	if err != nil {
		return "", err
	}

	ws, err := media.NewWorkspace(s.deps.WorkDir, "chat-audio-")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			s.log.WithContext(ctx).Warn("chat audio workspace cleanup failed", "error", err)
		}
	}()

	source := ws.Path("upload" + filepath.Ext(upload.FileName))
	if err := writeFile(source, upload.Body); err != nil {
		return "", err
	}
	voice := ws.Path("voice.m4a")
	if err := s.deps.Transcoder.Transcode(ctx, source, voice); err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "audio could not be transcoded", err)
	}

	ref, err := s.host(ctx, voice, delivery)
	if err != nil {
		return "", err
	}
	if err := s.deps.Sender.Send(ctx, to, whatsapp.Audio(ref)); err != nil {
		return "", apperr.External("whatsapp send failed", err)
	}
	return ref, nil
}

func (s *Service) host(ctx context.Context, path string, delivery AudioDelivery) (string, error) {
	if delivery == AudioAsLink {
		stored, err := s.deps.Blobs.PutFile(ctx, storage.FolderChatAudio, path, media.ContentTypeM4A)
		if err != nil {
			return "", fmt.Errorf("store chat audio: %w", err)
		}
		return stored.URL, nil
	}
	id, err := s.deps.Uploader.UploadMedia(ctx, path, media.ContentTypeM4A)
	if err != nil {
		return "", apperr.External("whatsapp media upload failed", err)
	}
	return id, nil
}

// Status reports whether the configured credentials reach the business number.
type Status struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
	Phone     string `json:"phone,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Status checks the WhatsApp connection. The error is the Graph failure, if any.
func (s *Service) Status(ctx context.Context) (Status, error) {
	number, err := s.deps.Number.DisplayPhoneNumber(ctx)
	if err != nil {
		s.log.WithContext(ctx).ExternalCallFailed("whatsapp", "status", err)
		return Status{Status: "Desconectado", Error: err.Error()}, err
	}
	return Status{Connected: true, Status: "Conectado", Phone: phone.NormalizeE164(number)}, nil
}

// Number returns the business number in E.164.
func (s *Service) Number(ctx context.Context) (string, error) {
	number, err := s.deps.Number.DisplayPhoneNumber(ctx)
	if err != nil {
		return "", apperr.External("whatsapp number lookup failed", err)
	}
	return phone.NormalizeE164(number), nil
}

func (s *Service) resolve(ctx context.Context, r Recipient) (string, error) {
	if r.LeadID != nil {
		lead, err := s.deps.Leads.GetByID(ctx, *r.LeadID)
		if errors.Is(err, leads.ErrNotFound) {
			return "", apperr.NotFound("lead not found")
		}
		if err != nil {
			return "", err
		}
		return lead.Phone, nil
	}

	to := phone.Normalize(r.Phone)
	if to == "" {
		return "", apperr.Validation("leadId or phone is required")
	}
	return to, nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write upload file: %w", err)
	}
	return f.Close()
}
