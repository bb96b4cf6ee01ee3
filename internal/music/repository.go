package music

import (
	"context"
	"errors"
	"strings"
	"time"

	"nurture_backend/internal/jobs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const table = "music_jobs"

var columns = []string{
	"id", "status", "artist", "genre", "voice_type", "purpose", "subject_name", "anecdotes",
	"lyrics", "style_prompt", "task_id", "full_track_url", "preview_url", "lead_id", "phone",
	"error_message", "sent_at", "created_at", "attempts", "next_attempt_at", "last_error",
	"lease_owner", "lease_expires_at", "version",
}

var selectColumns = strings.Join(columns, ", ")

// Repository stores music jobs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a music job repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending_lyrics job.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Job, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO music_jobs (status, artist, genre, voice_type, purpose, subject_name, anecdotes, lead_id, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+selectColumns,
		string(StatusPendingLyrics), p.Artist, p.Genre, p.VoiceType, p.Purpose, p.SubjectName, p.Anecdotes, p.LeadID, p.Phone)
	return scanJob(row)
}

// GetByID loads a job.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM music_jobs WHERE id = $1`, id))
}

// GetByTaskID loads the job a provider task belongs to.
func (r *Repository) GetByTaskID(ctx context.Context, taskID string) (Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM music_jobs WHERE task_id = $1`, taskID))
}

// Claim leases up to lease.Limit jobs in status whose retry time has come.
func (r *Repository) Claim(ctx context.Context, status Status, now time.Time, lease jobs.Lease) ([]Job, error) {
	rows, err := r.pool.Query(ctx, jobs.ClaimQuery(table, columns),
		string(status), now, lease.BatchLimit(), lease.Owner, lease.ExpiresAt(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// Save writes job if it is still at job.Version, releases the lease and
// returns the job at its new version.
func (r *Repository) Save(ctx context.Context, job Job) (Job, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE music_jobs SET
			status = $3, lyrics = $4, style_prompt = $5, task_id = $6, full_track_url = $7,
			preview_url = $8, error_message = $9, sent_at = $10,
			attempts = $11, next_attempt_at = $12, last_error = $13,
			lease_owner = NULL, lease_expires_at = NULL,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`,
		job.ID, job.Version, string(job.Status), job.Lyrics, job.StylePrompt, nullable(job.TaskID),
		job.FullTrackURL, job.PreviewURL, nullable(job.ErrorMessage), job.SentAt,
		job.Attempts, job.NextAttemptAt, nullable(job.LastError))
	if err != nil {
		return job, err
	}
	if tag.RowsAffected() == 0 {
		return job, jobs.ErrClaimLost
	}
	job.Version++
	job.LeaseOwner = ""
	job.LeaseExpiresAt = nil
	return job, nil
}

func scanJob(row pgx.Row) (Job, error) {
	var (
		job          Job
		status       string
		taskID       *string
		errorMessage *string
		lastError    *string
		leaseOwner   *string
	)
	err := row.Scan(
		&job.ID, &status, &job.Artist, &job.Genre, &job.VoiceType, &job.Purpose, &job.SubjectName, &job.Anecdotes,
		&job.Lyrics, &job.StylePrompt, &taskID, &job.FullTrackURL, &job.PreviewURL, &job.LeadID, &job.Phone,
		&errorMessage, &job.SentAt, &job.CreatedAt, &job.Attempts, &job.NextAttemptAt, &lastError,
		&leaseOwner, &job.LeaseExpiresAt, &job.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	job.TaskID = deref(taskID)
	job.ErrorMessage = deref(errorMessage)
	job.LastError = deref(lastError)
	job.LeaseOwner = deref(leaseOwner)
	return job, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
