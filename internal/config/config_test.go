package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigWithDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "https://opendata-download-metobs.smhi.se", cfg.SMHIBaseURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sites/my_sites.csv", cfg.SitesSource)
	assert.Equal(t, uint32(5), cfg.BreakerMaxFailures)
	assert.Equal(t, 30*time.Second, cfg.BreakerCooldown)
	assert.Empty(t, cfg.MQTTBroker)
	assert.Equal(t, "weather/search", cfg.SearchEventsTopic)
}

func TestWithEnvironment(t *testing.T) {
	cfg := New(WithEnvironment("development"))

	assert.Equal(t, "development", cfg.Environment)
}

func TestWithLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New(WithLogLevel("debug")).LogLevel)
	assert.Equal(t, zerolog.InfoLevel, New(WithLogLevel("chatty")).LogLevel)
}

func TestWithHTTPTimeout(t *testing.T) {
	cfg := New(WithHTTPTimeout(5 * time.Second))

	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestWithMQTT(t *testing.T) {
	cfg := New(WithMQTT("tcp://broker:1883", ""))
	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, "weather/search", cfg.SearchEventsTopic)

	cfg = New(WithMQTT("tcp://broker:1883", "sites/events"))
	assert.Equal(t, "sites/events", cfg.SearchEventsTopic)
}

func TestInitializeLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := New(WithEnvironment("local"), WithLogLevel("debug"))
	cfg.InitializeLogging()

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("SMHI_BASE_URL", "http://localhost:9000")
	t.Setenv("SITES_SOURCE", "s3://sites-bucket/my_sites.csv")
	t.Setenv("BREAKER_MAX_FAILURES", "3")
	t.Setenv("BREAKER_COOLDOWN", "1m")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
	t.Setenv("MQTT_BROKER", "tcp://localhost:1883")
	t.Setenv("SEARCH_EVENTS_TOPIC", "")

	cfg := LoadFromEnv()

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, zerolog.WarnLevel, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "http://localhost:9000", cfg.SMHIBaseURL)
	assert.Equal(t, "s3://sites-bucket/my_sites.csv", cfg.SitesSource)
	assert.Equal(t, uint32(3), cfg.BreakerMaxFailures)
	assert.Equal(t, time.Minute, cfg.BreakerCooldown)
	assert.Equal(t, "http://localhost:8000", cfg.DynamoEndpoint)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "weather/search", cfg.SearchEventsTopic)
}

func TestLoadFromEnvReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_ADDR=:9191\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() {
		require.NoError(t, os.Chdir(wd))
		require.NoError(t, os.Unsetenv("HTTP_ADDR"))
	}()

	cfg := LoadFromEnv()

	assert.Equal(t, ":9191", cfg.HTTPAddr)
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_ENV_VAR", "value")

	assert.Equal(t, "value", getEnvOrDefault("TEST_ENV_VAR", "default"))
	assert.Equal(t, "default", getEnvOrDefault("NON_EXISTENT_ENV_VAR", "default"))
}

func TestGetDurationEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_DURATION_ENV_VAR", "2s")
	t.Setenv("TEST_BAD_DURATION_ENV_VAR", "soon")

	assert.Equal(t, 2*time.Second, getDurationEnvOrDefault("TEST_DURATION_ENV_VAR", time.Second))
	assert.Equal(t, time.Second, getDurationEnvOrDefault("TEST_BAD_DURATION_ENV_VAR", time.Second))
	assert.Equal(t, time.Second, getDurationEnvOrDefault("NON_EXISTENT_DURATION_ENV_VAR", time.Second))
}

func TestGetIntEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_INT_ENV_VAR", "7")
	t.Setenv("TEST_BAD_INT_ENV_VAR", "-1")

	assert.Equal(t, 7, getIntEnvOrDefault("TEST_INT_ENV_VAR", 5))
	assert.Equal(t, 5, getIntEnvOrDefault("TEST_BAD_INT_ENV_VAR", 5))
	assert.Equal(t, 5, getIntEnvOrDefault("NON_EXISTENT_INT_ENV_VAR", 5))
}
