package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv     string
	Port        string
	LogLevel    string
	JWTSecret   string
	TokenTTL    time.Duration
	FrontendDir string
	Database    DatabaseConfig
	Queue       QueueConfig
	SMS         SMSConfig
	Picking     PickingConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Silent   bool // Silence the gorm query log
}

// QueueConfig holds customer queue configuration
type QueueConfig struct {
	DefaultPlace  string
	StrictCall    bool   // Only the head of the waiting list may be called
	SweepSchedule string // cron expression for the end-of-day sweep
	PublicBaseURL string // Prefix for the short position links printed on slips
}

// SMSConfig selects and configures the SMS provider
type SMSConfig struct {
	Provider          string // log, twilio
	DefaultRegion     string // ISO 3166 region for numbers without a country code
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
}

// PickingConfig holds picking session settings
type PickingConfig struct {
	SessionTTL time.Duration
}

// IsProduction reports whether NODE_ENV is production
func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	tokenTTL, err := getDuration("TOKEN_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getDuration("PICKING_SESSION_TTL", 8*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		NodeEnv:     getEnv("NODE_ENV", "development"),
		Port:        getEnv("PORT", "3001"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		JWTSecret:   jwtSecret,
		TokenTTL:    tokenTTL,
		FrontendDir: os.Getenv("FRONTEND_DIR"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "mendelflow"),
			Silent:   getBool("DB_LOG_SILENT", false),
		},
		Queue: QueueConfig{
			DefaultPlace:  strings.ToLower(getEnv("QUEUE_DEFAULT_PLACE", "office1")),
			StrictCall:    getBool("QUEUE_STRICT_CALL", false),
			SweepSchedule: getEnv("QUEUE_SWEEP_SCHEDULE", "0 23 * * *"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3001"), "/"),
		},
		SMS: SMSConfig{
			Provider:          strings.ToLower(getEnv("SMS_PROVIDER", "log")),
			DefaultRegion:     strings.ToUpper(getEnv("SMS_DEFAULT_REGION", "US")),
			TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		},
		Picking: PickingConfig{
			SessionTTL: sessionTTL,
		},
	}

	if cfg.SMS.Provider == "twilio" && (cfg.SMS.TwilioAccountSID == "" || cfg.SMS.TwilioAuthToken == "" || cfg.SMS.TwilioPhoneNumber == "") {
		return nil, fmt.Errorf("SMS_PROVIDER=twilio requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER")
	}

	return cfg, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}
