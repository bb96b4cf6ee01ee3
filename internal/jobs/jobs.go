// Package jobs holds the claim, lease and retry bookkeeping shared by the
// lyrics and music pipelines.
package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrClaimLost is returned when a compare-and-swap write finds a newer version,
// meaning another worker claimed or updated the job in the meantime.
var ErrClaimLost = errors.New("job claim lost")

// State is the claim tuple and retry bookkeeping carried by every job row.
type State struct {
	Attempts       int
	NextAttemptAt  *time.Time
	LastError      string
	LeaseOwner     string
	LeaseExpiresAt *time.Time
	Version        int64
}

// Lease identifies the claiming worker and how long its claim is honoured.
type Lease struct {
	Owner string
	TTL   time.Duration
	Limit int
}

// ExpiresAt returns the lease expiry for a claim made at now.
func (l Lease) ExpiresAt(now time.Time) time.Time {
	return now.Add(l.TTL)
}

// BatchLimit returns the claim batch size, at least 1.
func (l Lease) BatchLimit() int {
	if l.Limit < 1 {
		return 1
	}
	return l.Limit
}

// RecordFailure counts a failed attempt, schedules the next one and reports
// whether the retry budget is exhausted.
func (s *State) RecordFailure(b Backoff, now time.Time, err error) bool {
	s.Attempts++
	if err != nil {
		s.LastError = err.Error()
	}
	next := now.Add(b.Delay(s.Attempts))
	s.NextAttemptAt = &next
	return b.Exhausted(s.Attempts)
}

// ResetRetry clears retry bookkeeping after a successful stage.
func (s *State) ResetRetry() {
	s.Attempts = 0
	s.NextAttemptAt = nil
	s.LastError = ""
}

// InvalidPolicy decides what happens to jobs missing required fields at delivery.
type InvalidPolicy string

const (
	// PolicySkip leaves the job in its status; it is re-examined every tick.
	PolicySkip InvalidPolicy = "skip"
	// PolicyFail moves the job to the error status.
	PolicyFail InvalidPolicy = "fail"
)

// ParseInvalidPolicy maps a configuration value to a policy. Unknown values skip.
func ParseInvalidPolicy(value string) InvalidPolicy {
	if strings.EqualFold(strings.TrimSpace(value), string(PolicyFail)) {
		return PolicyFail
	}
	return PolicySkip
}

// ClaimQuery builds the batch-claim statement for a job table. Parameters:
// $1 status, $2 now, $3 limit, $4 lease owner, $5 lease expiry.
// Only rows whose retry time has come and whose lease is free or expired are taken.
func ClaimQuery(table string, columns []string) string {
	return fmt.Sprintf(`WITH cte AS (
		SELECT id
		FROM %[1]s
		WHERE status = $1
		  AND (next_attempt_at IS NULL OR next_attempt_at <= $2)
		  AND (lease_expires_at IS NULL OR lease_expires_at < $2)
		ORDER BY created_at ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	UPDATE %[1]s t
	SET lease_owner = $4, lease_expires_at = $5, version = t.version + 1, updated_at = now()
	FROM cte
	WHERE t.id = cte.id
	RETURNING %[2]s`, table, Qualify("t", columns))
}

// Qualify prefixes every column with alias.
func Qualify(alias string, columns []string) string {
	qualified := make([]string, len(columns))
	for i, column := range columns {
		qualified[i] = alias + "." + column
	}
	return strings.Join(qualified, ", ")
}
