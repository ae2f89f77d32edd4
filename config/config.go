package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisContextDB int    `mapstructure:"REDIS_CONTEXT_DB"`
	RedisConfigDB  int    `mapstructure:"REDIS_CONFIG_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Cache TTLs. Conversation context must reflect same-turn writes, so it
	// stays short; business config changes rarely.
	ContextCacheTTL time.Duration `mapstructure:"CONTEXT_CACHE_TTL"`
	ConfigCacheTTL  time.Duration `mapstructure:"CONFIG_CACHE_TTL"`

	// Semantic classifier (Gemini).
	GeminiAPIKey     string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel      string        `mapstructure:"GEMINI_MODEL"`
	SemanticTimeout  time.Duration `mapstructure:"SEMANTIC_TIMEOUT"`
	BreakerThreshold int           `mapstructure:"BREAKER_THRESHOLD"`
	BreakerCooldown  time.Duration `mapstructure:"BREAKER_COOLDOWN"`

	HistoryWindowSize int `mapstructure:"HISTORY_WINDOW_SIZE"`

	// Stripe.
	StripeKey         string `mapstructure:"STRIPE_KEY"`
	PaymentSuccessURL string `mapstructure:"PAYMENT_SUCCESS_URL"`
	PaymentCancelURL  string `mapstructure:"PAYMENT_CANCEL_URL"`

	// How long before the reserved time the reminder fires.
	ReminderLead time.Duration `mapstructure:"REMINDER_LEAD"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CONTEXT_DB", 0)
	viper.SetDefault("REDIS_CONFIG_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("CONTEXT_CACHE_TTL", 30*time.Second)
	viper.SetDefault("CONFIG_CACHE_TTL", 10*time.Minute)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "reservo")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	viper.SetDefault("SEMANTIC_TIMEOUT", 10*time.Second)
	viper.SetDefault("BREAKER_THRESHOLD", 3)
	viper.SetDefault("BREAKER_COOLDOWN", 60*time.Second)
	viper.SetDefault("HISTORY_WINDOW_SIZE", 20)
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("PAYMENT_SUCCESS_URL", "https://example.com/payment/success")
	viper.SetDefault("PAYMENT_CANCEL_URL", "https://example.com/payment/cancel")
	viper.SetDefault("REMINDER_LEAD", 2*time.Hour)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
