package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://nurture@localhost/nurture")
	t.Setenv("WHATSAPP_TOKEN", "token")
	t.Setenv("PHONE_NUMBER_ID", "1234567890")
	t.Setenv("INTRO_AUDIO_URL", "https://cdn.example.com/intro.mp3")
	t.Setenv("INTRO_VIDEO_URL", "https://cdn.example.com/intro.mp4")
	t.Setenv("JOB_INVALID_POLICY", "skip")
	t.Setenv("MUSIC_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PREVIEW_DURATION", "35s")
	t.Setenv("WATERMARK_OFFSET", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GetPreviewDuration() != 35*time.Second || cfg.GetWatermarkOffset() != 0 {
		t.Fatalf("unexpected media durations %s %s", cfg.GetPreviewDuration(), cfg.GetWatermarkOffset())
	}
	if cfg.GetIntroVideoURL() != "https://cdn.example.com/intro.mp4" {
		t.Fatalf("unexpected intro video %q", cfg.GetIntroVideoURL())
	}
}

func TestLoadRequiresIntroMedia(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INTRO_VIDEO_URL", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "INTRO_VIDEO_URL") {
		t.Fatalf("expected missing intro video error, got %v", err)
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	cases := map[string]string{
		"PREVIEW_DURATION":  "abc",
		"DELIVERY_COOLDOWN": "0s",
		"ENGINE_LEASE_TTL":  "-1m",
		"WATERMARK_OFFSET":  "-1s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Fatalf("expected %s to be rejected, got %v", key, err)
			}
		})
	}
}
