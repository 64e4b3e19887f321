package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "foo", firstNonEmpty("", "foo", "bar"))
	assert.Equal(t, "", firstNonEmpty())
	assert.Equal(t, "", firstNonEmpty("  ", ""))
}

func TestIntFromEnv(t *testing.T) {
	key := "LECTUREGEN_TEST_INT_FROM_ENV"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	_ = os.Unsetenv(key)
	assert.Equal(t, 7, intFromEnv(key, 7))

	_ = os.Setenv(key, "123")
	assert.Equal(t, 123, intFromEnv(key, 7))

	_ = os.Setenv(key, "not-an-int")
	assert.Equal(t, 7, intFromEnv(key, 7))
}

func TestDurationFromEnvHours(t *testing.T) {
	key := "LECTUREGEN_TEST_DURATION_FROM_ENV"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	_ = os.Unsetenv(key)
	assert.Equal(t, 24*time.Hour, durationFromEnvHours(key, 24*time.Hour))

	_ = os.Setenv(key, "3")
	assert.Equal(t, 3*time.Hour, durationFromEnvHours(key, 24*time.Hour))

	_ = os.Setenv(key, "0")
	assert.Equal(t, 24*time.Hour, durationFromEnvHours(key, 24*time.Hour))
}

func TestBoolFromEnv(t *testing.T) {
	key := "LECTUREGEN_TEST_BOOL_FROM_ENV"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	_ = os.Unsetenv(key)
	assert.False(t, boolFromEnv(key, false))

	for _, v := range []string{"true", "1", "yes", "TRUE"} {
		_ = os.Setenv(key, v)
		assert.True(t, boolFromEnv(key, false), "value %q should be truthy", v)
	}

	_ = os.Setenv(key, "false")
	assert.False(t, boolFromEnv(key, true))
}

func TestLoad_AppliesDefaultsWhenUnset(t *testing.T) {
	for _, key := range []string{
		"HOST", "PORT", "SPLITTING_MODEL", "SLIDESGEN_MODEL", "LLAMA_API_URL", "LLAMA_API_KEY",
		"DI_API_URL", "SLIDES_API_URL", "AVATAR_API_URL", "POSTPROCESSING_SERVICE_HOST",
		"VIDEO_ROOT", "COURSE_ASSETS_ROOT", "REDIS_ADDR", "LOG_LEVEL", "ORPHEUS_DEBUG",
	} {
		old, had := os.LookupEnv(key)
		_ = os.Unsetenv(key)
		if had {
			k := key
			v := old
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		}
	}

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./data/videos", cfg.VideoRoot)
	assert.Equal(t, "./data/course-assets", cfg.CourseAssetsRoot)
	assert.False(t, cfg.Debug)
}

func TestLoad_DebugFlagFromEnv(t *testing.T) {
	_ = os.Setenv("ORPHEUS_DEBUG", "true")
	t.Cleanup(func() { _ = os.Unsetenv("ORPHEUS_DEBUG") })

	cfg, err := Load()
	assert.NoError(t, err)
	assert.True(t, cfg.Debug)
}

func TestListFromEnv(t *testing.T) {
	key := "LECTUREGEN_TEST_LIST_FROM_ENV"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	_ = os.Unsetenv(key)
	assert.Nil(t, listFromEnv(key))

	_ = os.Setenv(key, "voice_sample, source_image ,,")
	assert.Equal(t, []string{"voice_sample", "source_image"}, listFromEnv(key))
}
