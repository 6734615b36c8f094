// Package config builds the immutable runtime configuration from the
// environment. Every component receives it by reference; nothing reads
// env vars after startup.
package config

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"trunk-processor/internal/apperror"
)

const (
	requestTimeout = 60 * time.Second
	connectTimeout = 20 * time.Second
)

type Config struct {
	TranscriptionEndpoint string
	ModelName             string
	DiscordWebhook        string
	DatabaseURL           string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	BucketName  string

	Filter Filter

	// Audio extensions accepted on /upload, lowercase with leading dot.
	AllowedAudioExtensions []string

	// Optional xlsx with talkgroup reference rows, imported at startup.
	TalkgroupSheet string

	Port string

	// Shared by the transcription and webhook clients.
	HTTPClient *http.Client
}

// Filter holds the transcription allow/deny lists. Both empty means
// filtering is disabled.
type Filter struct {
	TGIDs  []string
	Groups []string
}

func (f Filter) Enabled() bool {
	return len(f.TGIDs) > 0 || len(f.Groups) > 0
}

// Load reads the environment into a Config. Missing required variables
// fail with a Configuration error.
func Load() (*Config, error) {
	cfg := &Config{
		TalkgroupSheet: os.Getenv("TALKGROUP_SHEET"),
		Port:           envOr("PORT", "3000"),
		Filter: Filter{
			TGIDs:  splitList(os.Getenv("FILTER_TG_ID")),
			Groups: splitList(os.Getenv("FILTER_TG_GROUP")),
		},
		AllowedAudioExtensions: splitList(envOr("ALLOWED_AUDIO_EXTENSIONS", ".m4a,.wav")),
		HTTPClient:             newHTTPClient(),
	}

	required := []struct {
		key  string
		dest *string
	}{
		{"TRANSCRIPTION_ENDPOINT", &cfg.TranscriptionEndpoint},
		{"MODEL_NAME", &cfg.ModelName},
		{"DISCORD_WEBHOOK", &cfg.DiscordWebhook},
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"S3_ENDPOINT", &cfg.S3Endpoint},
		{"S3_ACCESS_KEY", &cfg.S3AccessKey},
		{"S3_SECRET_KEY", &cfg.S3SecretKey},
		{"BUCKET_NAME", &cfg.BucketName},
	}
	for _, r := range required {
		v := os.Getenv(r.key)
		if v == "" {
			return nil, apperror.New(apperror.KindConfiguration,
				"environment configuration error: %s not set", r.key)
		}
		*r.dest = v
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, apperror.New(apperror.KindConfiguration,
			"environment configuration error: PORT must be numeric, got %q", cfg.Port)
	}

	rawSSL := envOr("S3_USE_SSL", "true")
	useSSL, err := strconv.ParseBool(rawSSL)
	if err != nil {
		return nil, apperror.New(apperror.KindConfiguration,
			"environment configuration error: S3_USE_SSL must be a boolean, got %q", rawSSL)
	}
	cfg.S3UseSSL = useSSL

	return cfg, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
		},
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
