package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultSMHIBaseURL  = "https://opendata-download-metobs.smhi.se"
	defaultSitesSource  = "sites/my_sites.csv"
	defaultEventsTopic  = "weather/search"
	defaultHTTPAddr     = ":8080"
	defaultHTTPTimeout  = 30 * time.Second
	defaultMaxFailures  = 5
	defaultBreakerReset = 30 * time.Second
)

type Config struct {
	Environment string
	LogLevel    zerolog.Level
	HTTPTimeout time.Duration
	SMHIBaseURL string
	HTTPAddr    string

	// SitesSource is a file path, s3://bucket/key or dynamodb://table.
	SitesSource string
	AWSRegion   string
	// S3Endpoint and DynamoEndpoint override the AWS endpoints for local development.
	S3Endpoint     string
	DynamoEndpoint string

	BreakerMaxFailures uint32
	BreakerCooldown    time.Duration

	// MQTTBroker enables search event publishing when set, e.g. tcp://localhost:1883.
	MQTTBroker        string
	SearchEventsTopic string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

func WithSMHIBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.SMHIBaseURL = baseURL
	}
}

func WithHTTPAddr(addr string) Option {
	return func(c *Config) {
		c.HTTPAddr = addr
	}
}

func WithSitesSource(source string) Option {
	return func(c *Config) {
		c.SitesSource = source
	}
}

func WithAWSRegion(region string) Option {
	return func(c *Config) {
		c.AWSRegion = region
	}
}

func WithAWSEndpoints(s3Endpoint, dynamoEndpoint string) Option {
	return func(c *Config) {
		c.S3Endpoint = s3Endpoint
		c.DynamoEndpoint = dynamoEndpoint
	}
}

// WithBreaker sets how many consecutive upstream failures open the circuit
// breaker and how long it stays open.
func WithBreaker(maxFailures uint32, cooldown time.Duration) Option {
	return func(c *Config) {
		c.BreakerMaxFailures = maxFailures
		c.BreakerCooldown = cooldown
	}
}

func WithMQTT(broker, topic string) Option {
	return func(c *Config) {
		c.MQTTBroker = broker
		if topic != "" {
			c.SearchEventsTopic = topic
		}
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:        "production",
		LogLevel:           zerolog.InfoLevel,
		HTTPTimeout:        defaultHTTPTimeout,
		SMHIBaseURL:        defaultSMHIBaseURL,
		HTTPAddr:           defaultHTTPAddr,
		SitesSource:        defaultSitesSource,
		BreakerMaxFailures: defaultMaxFailures,
		BreakerCooldown:    defaultBreakerReset,
		SearchEventsTopic:  defaultEventsTopic,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
		return
	}

	log.Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is read first when present; real environment
// variables take precedence over it.
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not read .env file")
	}

	return New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", defaultHTTPTimeout)),
		WithSMHIBaseURL(getEnvOrDefault("SMHI_BASE_URL", defaultSMHIBaseURL)),
		WithHTTPAddr(getEnvOrDefault("HTTP_ADDR", defaultHTTPAddr)),
		WithSitesSource(getEnvOrDefault("SITES_SOURCE", defaultSitesSource)),
		WithAWSRegion(os.Getenv("AWS_REGION")),
		WithAWSEndpoints(os.Getenv("S3_ENDPOINT"), os.Getenv("DYNAMODB_ENDPOINT")),
		WithBreaker(
			uint32(getIntEnvOrDefault("BREAKER_MAX_FAILURES", defaultMaxFailures)),
			getDurationEnvOrDefault("BREAKER_COOLDOWN", defaultBreakerReset),
		),
		WithMQTT(os.Getenv("MQTT_BROKER"), os.Getenv("SEARCH_EVENTS_TOPIC")),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Warn().Str("key", key).Msg("Invalid duration value in environment variable, using default")
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultValue
}
