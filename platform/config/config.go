// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// OperatorAuthConfig provides the secret used to validate operator bearer tokens.
type OperatorAuthConfig interface {
	GetOperatorJWTSecret() string
}

// WhatsAppConfig provides settings for the WhatsApp Cloud API.
type WhatsAppConfig interface {
	GetWhatsAppToken() string
	GetWhatsAppPhoneNumberID() string
	GetWhatsAppGraphURL() string
	GetWhatsAppVerifyToken() string
	GetWhatsAppAppSecret() string
}

// SchedulerConfig provides settings for Redis-backed scheduling.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOPublicBaseURL() string
	GetMinioBucketMedia() string
	IsMinIOEnabled() bool
}

// TextGenConfig provides settings for the generative text API.
type TextGenConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotBaseURL() string
	GetMoonshotModel() string
	GetTextGenTimeout() time.Duration
}

// MusicGenConfig provides settings for the generative music API.
type MusicGenConfig interface {
	GetMusicAPIURL() string
	GetMusicAPIKey() string
	GetMusicModel() string
	GetMusicCallbackURL() string
}

// MusicCallbackConfig provides the shared secret the provider callback must present.
type MusicCallbackConfig interface {
	GetMusicCallbackSecret() string
}

// MediaConfig provides settings for audio post-processing.
type MediaConfig interface {
	GetFFmpegPath() string
	GetWatermarkPath() string
	GetPreviewDuration() time.Duration
	GetWatermarkOffset() time.Duration
	GetMediaWorkDir() string
}

// EngineConfig provides settings for the sequence engine pipelines.
type EngineConfig interface {
	GetEngineTickInterval() time.Duration
	GetEngineBatchSize() int
	GetEngineLeaseTTL() time.Duration
	GetEngineInstanceID() string
	GetRetryBaseDelay() time.Duration
	GetRetryMaxDelay() time.Duration
	GetRetryMaxAttempts() int
	GetInvalidJobPolicy() string
	GetDeliveryCooldown() time.Duration
}

// FunnelConfig provides the business copy and triggers used by the funnel.
type FunnelConfig interface {
	GetDefaultTrigger() string
	GetLyricsCompletionLabel() string
	GetMusicCompletionTrigger() string
	GetIntroAudioURL() string
	GetIntroVideoURL() string
	GetPromoMessage() string
}

// SMTPConfig provides settings for operator alert e-mails.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFrom() string
	GetAlertEmail() string
	IsAlertEmailEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	CORSAllowAll   bool
	CORSOrigins    []string
	OperatorSecret string

	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	WhatsAppGraphURL      string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueue       string
	AsynqConcurrency int

	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MinIOMaxFileSize   int64
	MinIOPublicBaseURL string
	MinioBucketMedia   string

	MoonshotAPIKey  string
	MoonshotBaseURL string
	MoonshotModel   string
	TextGenTimeout  time.Duration

	MusicAPIURL         string
	MusicAPIKey         string
	MusicModel          string
	MusicCallbackURL    string
	MusicCallbackSecret string

	FFmpegPath      string
	WatermarkPath   string
	PreviewDuration time.Duration
	WatermarkOffset time.Duration
	MediaWorkDir    string

	EngineTickInterval time.Duration
	EngineBatchSize    int
	EngineLeaseTTL     time.Duration
	EngineInstanceID   string
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	RetryMaxAttempts   int
	InvalidJobPolicy   string
	DeliveryCooldown   time.Duration

	DefaultTrigger         string
	LyricsCompletionLabel  string
	MusicCompletionTrigger string
	IntroAudioURL          string
	IntroVideoURL          string
	PromoMessage           string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AlertEmail   string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// OperatorAuthConfig implementation
func (c *Config) GetOperatorJWTSecret() string { return c.OperatorSecret }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppToken() string         { return c.WhatsAppToken }
func (c *Config) GetWhatsAppPhoneNumberID() string { return c.WhatsAppPhoneNumberID }
func (c *Config) GetWhatsAppGraphURL() string      { return c.WhatsAppGraphURL }
func (c *Config) GetWhatsAppVerifyToken() string   { return c.WhatsAppVerifyToken }
func (c *Config) GetWhatsAppAppSecret() string     { return c.WhatsAppAppSecret }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueue }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64    { return c.MinIOMaxFileSize }
func (c *Config) GetMinIOPublicBaseURL() string { return c.MinIOPublicBaseURL }
func (c *Config) GetMinioBucketMedia() string   { return c.MinioBucketMedia }
func (c *Config) IsMinIOEnabled() bool          { return c.MinIOEndpoint != "" }

// TextGenConfig implementation
func (c *Config) GetMoonshotAPIKey() string         { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotBaseURL() string        { return c.MoonshotBaseURL }
func (c *Config) GetMoonshotModel() string          { return c.MoonshotModel }
func (c *Config) GetTextGenTimeout() time.Duration { return c.TextGenTimeout }

// MusicGenConfig implementation
func (c *Config) GetMusicAPIURL() string      { return c.MusicAPIURL }
func (c *Config) GetMusicAPIKey() string      { return c.MusicAPIKey }
func (c *Config) GetMusicModel() string       { return c.MusicModel }
func (c *Config) GetMusicCallbackURL() string { return c.MusicCallbackURL }

// MusicCallbackConfig implementation
func (c *Config) GetMusicCallbackSecret() string { return c.MusicCallbackSecret }

// MediaConfig implementation
func (c *Config) GetFFmpegPath() string               { return c.FFmpegPath }
func (c *Config) GetWatermarkPath() string            { return c.WatermarkPath }
func (c *Config) GetPreviewDuration() time.Duration   { return c.PreviewDuration }
func (c *Config) GetWatermarkOffset() time.Duration   { return c.WatermarkOffset }
func (c *Config) GetMediaWorkDir() string             { return c.MediaWorkDir }

// EngineConfig implementation
func (c *Config) GetEngineTickInterval() time.Duration { return c.EngineTickInterval }
func (c *Config) GetEngineBatchSize() int              { return c.EngineBatchSize }
func (c *Config) GetEngineLeaseTTL() time.Duration     { return c.EngineLeaseTTL }
func (c *Config) GetEngineInstanceID() string          { return c.EngineInstanceID }
func (c *Config) GetRetryBaseDelay() time.Duration     { return c.RetryBaseDelay }
func (c *Config) GetRetryMaxDelay() time.Duration      { return c.RetryMaxDelay }
func (c *Config) GetRetryMaxAttempts() int             { return c.RetryMaxAttempts }
func (c *Config) GetInvalidJobPolicy() string          { return c.InvalidJobPolicy }
func (c *Config) GetDeliveryCooldown() time.Duration   { return c.DeliveryCooldown }

// FunnelConfig implementation
func (c *Config) GetDefaultTrigger() string         { return c.DefaultTrigger }
func (c *Config) GetLyricsCompletionLabel() string  { return c.LyricsCompletionLabel }
func (c *Config) GetMusicCompletionTrigger() string { return c.MusicCompletionTrigger }
func (c *Config) GetIntroAudioURL() string          { return c.IntroAudioURL }
func (c *Config) GetIntroVideoURL() string          { return c.IntroVideoURL }
func (c *Config) GetPromoMessage() string           { return c.PromoMessage }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string     { return c.SMTPHost }
func (c *Config) GetSMTPPort() int        { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string { return c.SMTPPassword }
func (c *Config) GetSMTPFrom() string     { return c.SMTPFrom }
func (c *Config) GetAlertEmail() string   { return c.AlertEmail }
func (c *Config) IsAlertEmailEnabled() bool {
	return c.SMTPHost != "" && c.AlertEmail != "" && c.SMTPFrom != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))

	hostname, _ := os.Hostname()
	instanceID := getEnv("ENGINE_INSTANCE_ID", "")
	if instanceID == "" {
		instanceID = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}

	env := &envReader{}
	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":3001"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CORSAllowAll:   containsWildcard(corsOrigins),
		CORSOrigins:    corsOrigins,
		OperatorSecret: getEnv("OPERATOR_JWT_SECRET", ""),

		WhatsAppToken:         getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("PHONE_NUMBER_ID", ""),
		WhatsAppGraphURL:      getEnv("WHATSAPP_GRAPH_URL", "https://graph.facebook.com/v15.0"),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueue:       getEnv("ASYNQ_QUEUE", "nurture"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "4")),

		MinIOEndpoint:      getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:        strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:   mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "52428800")),
		MinIOPublicBaseURL: strings.TrimRight(getEnv("MINIO_PUBLIC_BASE_URL", ""), "/"),
		MinioBucketMedia:   getEnv("MINIO_BUCKET_MEDIA", "funnel-media"),

		MoonshotAPIKey:  getEnv("MOONSHOT_API_KEY", ""),
		MoonshotBaseURL: getEnv("MOONSHOT_BASE_URL", "https://api.moonshot.ai/v1"),
		MoonshotModel:   getEnv("MOONSHOT_MODEL", "kimi-k2-turbo-preview"),
		TextGenTimeout:  env.duration("TEXTGEN_TIMEOUT", "90s"),

		MusicAPIURL:         strings.TrimRight(getEnv("MUSIC_API_URL", "https://api.sunoapi.org"), "/"),
		MusicAPIKey:         getEnv("MUSIC_API_KEY", ""),
		MusicModel:          getEnv("MUSIC_MODEL", "V4_5"),
		MusicCallbackURL:    getEnv("MUSIC_CALLBACK_URL", ""),
		MusicCallbackSecret: getEnv("MUSIC_CALLBACK_SECRET", ""),

		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		WatermarkPath:   getEnv("WATERMARK_PATH", "assets/watermark.mp3"),
		PreviewDuration: env.duration("PREVIEW_DURATION", "35s"),
		WatermarkOffset: env.offset("WATERMARK_OFFSET", "1s"),
		MediaWorkDir:    getEnv("MEDIA_WORK_DIR", os.TempDir()),

		EngineTickInterval: env.duration("ENGINE_TICK_INTERVAL", "1m"),
		EngineBatchSize:    mustInt(getEnv("ENGINE_BATCH_SIZE", "25")),
		EngineLeaseTTL:     env.duration("ENGINE_LEASE_TTL", "10m"),
		EngineInstanceID:   instanceID,
		RetryBaseDelay:     env.duration("RETRY_BASE_DELAY", "1m"),
		RetryMaxDelay:      env.duration("RETRY_MAX_DELAY", "1h"),
		RetryMaxAttempts:   mustInt(getEnv("RETRY_MAX_ATTEMPTS", "8")),
		InvalidJobPolicy:   strings.ToLower(getEnv("JOB_INVALID_POLICY", "skip")),
		DeliveryCooldown:   env.duration("DELIVERY_COOLDOWN", "15m"),

		DefaultTrigger:         getEnv("DEFAULT_TRIGGER", "NuevoLead"),
		LyricsCompletionLabel:  getEnv("LYRICS_COMPLETION_LABEL", "LetraEnviada"),
		MusicCompletionTrigger: getEnv("MUSIC_COMPLETION_TRIGGER", "CancionEnviada"),
		IntroAudioURL:          getEnv("INTRO_AUDIO_URL", ""),
		IntroVideoURL:          getEnv("INTRO_VIDEO_URL", ""),
		PromoMessage:           getEnv("PROMO_MESSAGE", "¿Te gustaría convertir esta letra en una canción completa? Responde a este mensaje y te contamos cómo."),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		AlertEmail:   getEnv("ALERT_EMAIL", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WhatsAppToken == "" || cfg.WhatsAppPhoneNumberID == "" {
		return nil, fmt.Errorf("WHATSAPP_TOKEN and PHONE_NUMBER_ID are required")
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.IntroAudioURL) == "" || strings.TrimSpace(cfg.IntroVideoURL) == "" {
		return nil, fmt.Errorf("INTRO_AUDIO_URL and INTRO_VIDEO_URL are required")
	}
	if cfg.InvalidJobPolicy != "skip" && cfg.InvalidJobPolicy != "fail" {
		return nil, fmt.Errorf("JOB_INVALID_POLICY must be skip or fail, got %q", cfg.InvalidJobPolicy)
	}
	if cfg.MusicAPIKey != "" && (cfg.MusicCallbackURL == "" || cfg.MusicCallbackSecret == "") {
		return nil, fmt.Errorf("MUSIC_CALLBACK_URL and MUSIC_CALLBACK_SECRET are required when MUSIC_API_KEY is set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// envReader parses typed variables and collects every failure.
type envReader struct {
	errs []error
}

// duration reads a positive duration.
func (r *envReader) duration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
	switch {
	case err != nil:
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
	case d <= 0:
		r.errs = append(r.errs, fmt.Errorf("%s must be a positive duration, got %s", key, d))
	}
	return d
}

// offset reads a duration that may be zero.
func (r *envReader) offset(key, fallback string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
	switch {
	case err != nil:
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
	case d < 0:
		r.errs = append(r.errs, fmt.Errorf("%s must not be negative, got %s", key, d))
	}
	return d
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
