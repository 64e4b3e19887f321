// Package config loads runtime configuration from environment variables,
// following the env-first, .env-overlaid pattern used throughout the
// reference stack rather than a committed config file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the core recognizes.
type Config struct {
	Host string
	Port int

	SplittingModel string
	SlidesGenModel string
	LlamaAPIURL    string
	LlamaAPIKey    string

	DocIntAPIURL          string
	SlidesAPIURL          string
	AvatarAPIURL          string
	PostprocessingAPIURL  string
	StatusServiceHost     string

	VideoRoot       string
	PublicVideoBase string

	// CourseAssetsRoot holds per-course reference voice samples and avatar
	// source images, laid out as <root>/<courseId>/{voice.mp3,source.png}.
	CourseAssetsRoot string

	RedisAddr string

	OTLPEndpoint string
	ServiceName  string

	LogLevel string
	LogPath  string
	// LogRedactKeys are extra JSON key names (beyond the built-in credential
	// patterns) whose values are masked in collaborator payload logs.
	LogRedactKeys []string

	StatusTTL time.Duration
	JobTTL    time.Duration

	// Debug bypasses every collaborator call with canned in-source mock
	// payloads, for end-to-end smoke tests without live dependencies.
	Debug bool
}

// Load reads the process environment (optionally overlaid by a .env file)
// into a Config, applying the defaults the original service shipped with.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Host: firstNonEmpty(os.Getenv("HOST"), "0.0.0.0"),
		Port: intFromEnv("PORT", 8080),

		SplittingModel: firstNonEmpty(os.Getenv("SPLITTING_MODEL"), "gpt-4o-mini"),
		SlidesGenModel: firstNonEmpty(os.Getenv("SLIDESGEN_MODEL"), "gpt-4o"),
		LlamaAPIURL:    strings.TrimSpace(os.Getenv("LLAMA_API_URL")),
		LlamaAPIKey:    strings.TrimSpace(os.Getenv("LLAMA_API_KEY")),

		DocIntAPIURL:         firstNonEmpty(os.Getenv("DI_API_URL"), "http://docint:25565"),
		SlidesAPIURL:         firstNonEmpty(os.Getenv("SLIDES_API_URL"), "http://slides:30606"),
		AvatarAPIURL:         firstNonEmpty(os.Getenv("AVATAR_API_URL"), "http://avatar-video-producer:9000"),
		PostprocessingAPIURL: firstNonEmpty(os.Getenv("POSTPROCESSING_SERVICE_HOST"), "http://postprocessing:4000"),
		StatusServiceHost:    strings.TrimSpace(os.Getenv("STATUS_SERVICE_HOST")),

		VideoRoot:       firstNonEmpty(os.Getenv("VIDEO_ROOT"), "./data/videos"),
		PublicVideoBase: firstNonEmpty(os.Getenv("PUBLIC_VIDEOS_BASE"), "/videos"),

		CourseAssetsRoot: firstNonEmpty(os.Getenv("COURSE_ASSETS_ROOT"), "./data/course-assets"),

		RedisAddr: strings.TrimSpace(os.Getenv("REDIS_ADDR")),

		OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ServiceName:  firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), "lecturegen-core"),

		LogLevel:      firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogPath:       strings.TrimSpace(os.Getenv("LOG_PATH")),
		LogRedactKeys: listFromEnv("LOG_REDACT_KEYS"),

		StatusTTL: durationFromEnvHours("STATUS_TTL_HOURS", 24*time.Hour),
		JobTTL:    durationFromEnvHours("JOB_TTL_HOURS", 24*time.Hour),

		Debug: boolFromEnv("ORPHEUS_DEBUG", false),
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func listFromEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func durationFromEnvHours(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Hour
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}
