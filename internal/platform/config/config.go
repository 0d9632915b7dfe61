package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	JWTSecret string
	JWTIssuer string

	// Deposit account shown to depositors on charge-order responses
	DepositBankName      string
	DepositAccountNumber string
	DepositHolderName    string

	// Charge order lifetime
	ChargeOrderTTL time.Duration

	// Worker tuning
	WorkerPollInterval time.Duration
	QueueLeaseTTL      time.Duration
	QueueBatchSize     int
	SweepInterval      time.Duration
	SweepLockTTL       time.Duration
	ReapInterval       time.Duration

	// Popbill provider
	PopbillBaseURL       string
	PopbillLinkID        string
	PopbillSecretKey     string
	PopbillCorpNum       string
	PopbillSenderNum     string
	PopbillBankCode      string
	PopbillAccountNumber string

	// Rate limiting (requests per period, e.g. "30-M")
	RateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "credit-engine")
	viper.SetDefault("DEPOSIT_BANK_NAME", "")
	viper.SetDefault("DEPOSIT_ACCOUNT_NO", "")
	viper.SetDefault("DEPOSIT_ACCOUNT_HOLDER", "")
	viper.SetDefault("CHARGE_ORDER_TTL", "24h")
	viper.SetDefault("WORKER_POLL_INTERVAL", "5s")
	viper.SetDefault("QUEUE_LEASE_TTL", "5m")
	viper.SetDefault("QUEUE_BATCH_SIZE", 1)
	viper.SetDefault("SWEEP_INTERVAL", "1m")
	viper.SetDefault("SWEEP_LOCK_TTL", "10m")
	viper.SetDefault("REAP_INTERVAL", "1m")
	viper.SetDefault("POPBILL_BASE_URL", "")
	viper.SetDefault("POPBILL_LINK_ID", "")
	viper.SetDefault("POPBILL_SECRET_KEY", "")
	viper.SetDefault("POPBILL_CORP_NUM", "")
	viper.SetDefault("POPBILL_SENDER_NUM", "")
	viper.SetDefault("POPBILL_BANK_CODE", "")
	viper.SetDefault("POPBILL_ACCOUNT_NO", "")
	viper.SetDefault("RATE_LIMIT", "30-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.DepositBankName = viper.GetString("DEPOSIT_BANK_NAME")
	cfg.DepositAccountNumber = viper.GetString("DEPOSIT_ACCOUNT_NO")
	cfg.DepositHolderName = viper.GetString("DEPOSIT_ACCOUNT_HOLDER")
	if cfg.DepositBankName == "" || cfg.DepositAccountNumber == "" {
		log.Println("Warning: deposit account variables not fully set. Charge order responses will omit account info.")
	}

	cfg.ChargeOrderTTL = parseDurationOr("CHARGE_ORDER_TTL", 24*time.Hour)
	cfg.WorkerPollInterval = parseDurationOr("WORKER_POLL_INTERVAL", 5*time.Second)
	cfg.QueueLeaseTTL = parseDurationOr("QUEUE_LEASE_TTL", 5*time.Minute)
	cfg.SweepInterval = parseDurationOr("SWEEP_INTERVAL", time.Minute)
	cfg.SweepLockTTL = parseDurationOr("SWEEP_LOCK_TTL", 10*time.Minute)
	cfg.ReapInterval = parseDurationOr("REAP_INTERVAL", time.Minute)

	cfg.QueueBatchSize = viper.GetInt("QUEUE_BATCH_SIZE")
	if cfg.QueueBatchSize < 1 {
		cfg.QueueBatchSize = 1
	}

	cfg.PopbillBaseURL = viper.GetString("POPBILL_BASE_URL")
	cfg.PopbillLinkID = viper.GetString("POPBILL_LINK_ID")
	cfg.PopbillSecretKey = viper.GetString("POPBILL_SECRET_KEY")
	cfg.PopbillCorpNum = viper.GetString("POPBILL_CORP_NUM")
	cfg.PopbillSenderNum = viper.GetString("POPBILL_SENDER_NUM")
	cfg.PopbillBankCode = viper.GetString("POPBILL_BANK_CODE")
	cfg.PopbillAccountNumber = viper.GetString("POPBILL_ACCOUNT_NO")
	if cfg.PopbillBaseURL == "" {
		log.Println("Warning: POPBILL_BASE_URL not set. Provider tasks will fail until configured.")
	}

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
