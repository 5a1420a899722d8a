package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-storefront-bot/internal/pkg/validate"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDynamo = "dynamo"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Telegram update delivery modes accepted by TELEGRAM_MODE.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	BotToken        string `validate:"required"`
	TelegramMode    string `validate:"oneof=polling webhook"`
	WebhookURL      string `validate:"required_if=TelegramMode webhook"`
	WebhookSecret   string `validate:"required_if=TelegramMode webhook"`
	SupportChatID   int64
	SupportHandle   string
	ReviewsChatLink string
	Workers         int `validate:"gte=1"`

	SMTPHost     string `validate:"required"`
	SMTPPort     string `validate:"required"`
	SMTPFrom     string `validate:"required,email"`
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration
	DNSTimeout   time.Duration

	StoreDriver    string `validate:"oneof=dynamo sqlite memory"`
	SQLitePath     string `validate:"required_if=StoreDriver sqlite"`
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SNSRegion        string
	SNSOrderTopicARN string

	CatalogFile     string
	CatalogS3Bucket string
	CatalogS3Key    string

	RedisURL        string
	ConversationTTL time.Duration

	ConfirmationTTL time.Duration
	CodeHashCost    int `validate:"gte=4,lte=31"`

	OTELEndpoint string

	AllowedOrigins   []string // CORS allowed origins
	WebhookRateLimit float64
	WebhookRateBurst int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Identities    string
	Confirmations string
	Orders        string
	OrderKeys     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BotToken:        getEnv("BOT_TOKEN", ""),
		TelegramMode:    getEnv("TELEGRAM_MODE", ModePolling),
		WebhookURL:      getEnv("TELEGRAM_WEBHOOK_URL", ""),
		WebhookSecret:   getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		SupportChatID:   getEnvInt64("SUPPORT_CHAT_ID", 0),
		SupportHandle:   getEnv("SUPPORT_HANDLE", "@support"),
		ReviewsChatLink: getEnv("REVIEWS_CHAT_LINK", "https://t.me/"),
		Workers:         getEnvInt("WORKERS", 8),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPTimeout:  getEnvDuration("SMTP_TIMEOUT", 15*time.Second),
		DNSTimeout:   getEnvDuration("DNS_TIMEOUT", 5*time.Second),

		StoreDriver:    getEnv("STORE_DRIVER", StoreDynamo),
		SQLitePath:     getEnv("SQLITE_PATH", "storefront.db"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Identities:    getEnv("DYNAMO_TABLE_IDENTITIES", "identities"),
			Confirmations: getEnv("DYNAMO_TABLE_CONFIRMATIONS", "email_confirmations"),
			Orders:        getEnv("DYNAMO_TABLE_ORDERS", "orders"),
			OrderKeys:     getEnv("DYNAMO_TABLE_ORDER_KEYS", "order_keys"),
		},

		SNSRegion:        getEnv("SNS_REGION", "us-east-1"),
		SNSOrderTopicARN: getEnv("SNS_ORDER_TOPIC_ARN", ""),

		CatalogFile:     getEnv("CATALOG_FILE", ""),
		CatalogS3Bucket: getEnv("CATALOG_S3_BUCKET", ""),
		CatalogS3Key:    getEnv("CATALOG_S3_KEY", "catalog.json"),

		RedisURL:        getEnv("REDIS_URL", ""),
		ConversationTTL: getEnvDuration("CONVERSATION_TTL", 24*time.Hour),

		ConfirmationTTL: getEnvDuration("CONFIRMATION_TTL", 15*time.Minute),
		CodeHashCost:    getEnvInt("CODE_HASH_COST", 10),

		OTELEndpoint: getEnv("OTEL_ENDPOINT", ""),

		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		WebhookRateLimit: getEnvFloat("WEBHOOK_RATE_LIMIT", 30),
		WebhookRateBurst: getEnvInt("WEBHOOK_RATE_BURST", 60),
	}
}

// Validate reports missing or malformed settings. A failure here is fatal at startup.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15m", "0s").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
