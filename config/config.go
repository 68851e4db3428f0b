package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultSecret = "defaultSecret"

// Config holds application configuration
type Config struct {
	Port string `env:"PORT" envDefault:"3000"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"` // postgres, mysql, sqlite
	DBDSN      string `env:"DB_DSN"`                          // overrides the discrete DB_* values
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"coursepay"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`

	JWTKey    string `env:"JWT_SECRET_KEY" envDefault:"defaultSecret"`
	SaltRound int    `env:"SALT_ROUND" envDefault:"10"`

	// Payment gateway
	GatewayURL       string        `env:"RAZORPAY_API_URL" envDefault:"https://api.razorpay.com/v1"`
	GatewayKeyID     string        `env:"RAZORPAY_KEY_ID"`
	GatewayKeySecret string        `env:"RAZORPAY_KEY_SECRET" envDefault:"defaultSecret"`
	GatewayTimeout   time.Duration `env:"RAZORPAY_TIMEOUT" envDefault:"10s"`

	// Settlement
	Currency             string        `env:"SETTLEMENT_CURRENCY" envDefault:"INR"`
	TaxPercent           int64         `env:"GST_PERCENT" envDefault:"18"`
	IdempotencyWindow    time.Duration `env:"ORDER_IDEMPOTENCY_WINDOW" envDefault:"10m"`
	StaleSettlementAfter time.Duration `env:"STALE_SETTLEMENT_AFTER" envDefault:"24h"`
	SweepSchedule        string        `env:"SETTLEMENT_SWEEP_CRON" envDefault:"0 * * * *"`

	// Email
	EmailSender    string `env:"EMAIL_SENDER" envDefault:"no-reply@coursepay.local"`
	EmailFromName  string `env:"EMAIL_FROM_NAME" envDefault:"CoursePay"`
	SMTPHost       string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort       string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser       string `env:"SMTP_USER"`
	Password       string `env:"PASSWORD"` // SMTP Password
	SendgridAPIKey string `env:"SENDGRID_API_KEY"`

	// Events
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_SETTLEMENT_TOPIC" envDefault:"settlements"`
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() error {
	// .env is optional; system environment variables win when it is absent
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Warnings lists insecure defaults still in effect.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.JWTKey == defaultSecret {
		warnings = append(warnings, "Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if c.GatewayKeySecret == defaultSecret {
		warnings = append(warnings, "Using default RAZORPAY_KEY_SECRET. Callback signatures will not verify against the live gateway.")
	}
	if c.GatewayKeyID == "" {
		warnings = append(warnings, "RAZORPAY_KEY_ID is empty. Order creation will fail.")
	}
	return warnings
}
