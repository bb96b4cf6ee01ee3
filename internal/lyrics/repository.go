package lyrics

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

const table = "lyrics_jobs"

var columns = []string{
	"id", "status", "purpose", "subject_name", "anecdotes", "lyrics", "generated_at", "lead_id",
	"requester_name", "sent_at", "created_at", "attempts", "next_attempt_at", "last_error",
	"lease_owner", "lease_expires_at", "version",
}

var selectColumns = strings.Join(columns, ", ")

// Repository stores lyrics jobs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lyrics job repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending_lyrics job.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Job, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO lyrics_jobs (status, purpose, subject_name, anecdotes, lead_id, requester_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+selectColumns,
		string(StatusPendingLyrics), p.Purpose, p.SubjectName, p.Anecdotes, p.LeadID, p.RequesterName)
	return scanJob(row)
}

// GetByID loads a job.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM lyrics_jobs WHERE id = $1`, id))
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

// Save writes job if it is still at job.Version and releases the lease.
func (r *Repository) Save(ctx context.Context, job Job) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lyrics_jobs SET
			status = $3, lyrics = $4, generated_at = $5, sent_at = $6,
			attempts = $7, next_attempt_at = $8, last_error = $9,
			lease_owner = NULL, lease_expires_at = NULL,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`,
		job.ID, job.Version, string(job.Status), job.Lyrics, job.GeneratedAt, job.SentAt,
		job.Attempts, job.NextAttemptAt, nullable(job.LastError))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return jobs.ErrClaimLost
	}
	return nil
}

func scanJob(row pgx.Row) (Job, error) {
	var (
		job        Job
		status     string
		lastError  *string
		leaseOwner *string
	)
	err := row.Scan(
		&job.ID, &status, &job.Purpose, &job.SubjectName, &job.Anecdotes, &job.Lyrics, &job.GeneratedAt, &job.LeadID,
		&job.RequesterName, &job.SentAt, &job.CreatedAt, &job.Attempts, &job.NextAttemptAt, &lastError,
		&leaseOwner, &job.LeaseExpiresAt, &job.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	if lastError != nil {
		job.LastError = *lastError
	}
	if leaseOwner != nil {
		job.LeaseOwner = *leaseOwner
	}
	return job, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
