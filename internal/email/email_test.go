package email

import (
	"strings"
	"testing"
	"time"
)

func TestRenderJobFailed(t *testing.T) {
	subject, body, err := renderJobFailed(JobFailedAlert{
		Kind:     "music",
		JobID:    "0b7c",
		Stage:    "submit",
		Reason:   "provider <rejected>",
		FailedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if subject != "[nurture] Trabajo de canción en error (submit)" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"0b7c", "submit", "2026-03-01T12:00:00Z", "provider &lt;rejected&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
