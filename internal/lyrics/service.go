package lyrics

import (
	"context"
	"errors"
	"strings"

	"nurture_backend/internal/leads"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/sanitize"
	"nurture_backend/platform/validator"

	"github.com/google/uuid"
)

// Repo is the persistence the intake service needs.
type Repo interface {
	Create(ctx context.Context, p CreateParams) (Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (Job, error)
}

// LeadReader checks that the requesting lead exists.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
}

// Service accepts lyrics requests.
type Service struct {
	repo  Repo
	leads LeadReader
	val   *validator.Validator
	log   *logger.Logger
}

// NewService creates the intake service.
func NewService(repo Repo, leadReader LeadReader, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leadReader, val: val, log: log}
}

// Create stores a new job in pending_lyrics.
func (s *Service) Create(ctx context.Context, p CreateParams) (Job, error) {
	p.Purpose = sanitize.SingleLine(p.Purpose)
	p.SubjectName = sanitize.SingleLine(p.SubjectName)
	p.RequesterName = sanitize.SingleLine(p.RequesterName)
	p.Anecdotes = strings.TrimSpace(sanitize.Text(p.Anecdotes))

	if err := s.val.Struct(p); err != nil {
		return Job{}, apperr.Validation("validation failed").WithDetails(err.Error())
	}

	lead, err := s.leads.GetByID(ctx, *p.LeadID)
	if errors.Is(err, leads.ErrNotFound) {
		return Job{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return Job{}, err
	}
	if p.RequesterName == "" {
		p.RequesterName = lead.Name
	}

	job, err := s.repo.Create(ctx, p)
	if err != nil {
		return Job{}, err
	}
	s.log.WithContext(ctx).Info("lyrics job created", "jobId", job.ID, "leadId", lead.ID)
	return job, nil
}

// Get returns one job.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Job{}, apperr.NotFound("lyrics job not found")
	}
	return job, err
}
