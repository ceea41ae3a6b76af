package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	OTLPEndpoint string
	SentryDSN    string

	HTTPAddr string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis        RedisConfig
	Kafka        KafkaConfig
	Gateway      GatewayConfig
	Email        EmailConfig
	Slack        SlackConfig
	Scheduler    SchedulerConfig
	Notification NotificationConfig
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type GatewayConfig struct {
	Provider  string
	SecretKey string
	AccountID string
	BaseURL   string
	Timeout   time.Duration
}

type EmailConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	ChannelID  string
}

type SchedulerConfig struct {
	Enabled     bool
	CronSpec    string
	RunInterval time.Duration
	Workers     int
	BatchSize   int
}

type NotificationConfig struct {
	QueueSize int
	Workers   int
	Retention time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "planbilling"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		SentryDSN:    strings.TrimSpace(getenv("SENTRY_DSN", "")),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "planbilling"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Redis: RedisConfig{
			Enabled:  getenvBool("REDIS_ENABLED", false),
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
			LockTTL:  getenvDuration("REDIS_LOCK_TTL", 2*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled: getenvBool("KAFKA_ENABLED", false),
			Brokers: parseList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_NOTIFICATION_TOPIC", "planbilling.notifications"),
		},
		Gateway: GatewayConfig{
			Provider:  strings.ToLower(getenv("PAYMENT_GATEWAY", "sandbox")),
			SecretKey: strings.TrimSpace(getenv("PAYMENT_GATEWAY_SECRET_KEY", "")),
			AccountID: strings.TrimSpace(getenv("PAYMENT_GATEWAY_ACCOUNT_ID", "")),
			BaseURL:   strings.TrimSpace(getenv("PAYMENT_GATEWAY_BASE_URL", "")),
			Timeout:   getenvDuration("PAYMENT_GATEWAY_TIMEOUT", 15*time.Second),
		},
		Email: EmailConfig{
			Enabled:      getenvBool("EMAIL_ENABLED", false),
			SMTPHost:     getenv("SMTP_HOST", "localhost"),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "billing@localhost"),
		},
		Slack: SlackConfig{
			Enabled:    getenvBool("SLACK_ENABLED", false),
			WebhookURL: strings.TrimSpace(getenv("SLACK_WEBHOOK_URL", "")),
			ChannelID:  getenv("SLACK_CHANNEL_ID", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:     getenvBool("SCHEDULER_ENABLED", true),
			CronSpec:    strings.TrimSpace(getenv("BILLING_CRON", "")),
			RunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
			Workers:     getenvInt("BILLING_WORKERS", 8),
			BatchSize:   getenvInt("BILLING_BATCH_SIZE", 200),
		},
		Notification: NotificationConfig{
			QueueSize: getenvInt("NOTIFICATION_QUEUE_SIZE", 1024),
			Workers:   getenvInt("NOTIFICATION_WORKERS", 2),
			Retention: getenvDuration("NOTIFICATION_RETENTION", 90*24*time.Hour),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
