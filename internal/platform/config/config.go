package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers selectable with STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// SchedulerConfig configures the background recurrence driver.
type SchedulerConfig struct {
	Enabled     bool
	CronSpec    string
	Location    *time.Location
	RuleTimeout time.Duration
	MaxWorkers  int
	BatchSize   int
	MaxCatchUp  int
	RunOnStart  bool
}

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	LogLevel       string
	StoreDriver    string
	MigrationsPath string
	JWTSecret      string
	JWTIssuer      string
	RateLimit      string
	AllowedOrigins []string
	Scheduler      SchedulerConfig
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "recurring-ledger")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("SCHEDULER_CRON_SPEC", "@every 1h")
	viper.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	viper.SetDefault("SCHEDULER_RULE_TIMEOUT", "30s")
	viper.SetDefault("SCHEDULER_MAX_WORKERS", 4)
	viper.SetDefault("SCHEDULER_BATCH_SIZE", 500)
	viper.SetDefault("SCHEDULER_MAX_CATCH_UP", 1000)
	viper.SetDefault("SCHEDULER_RUN_ON_START", false)

	// Actual environment variables override .env values and defaults.
	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:    viper.GetString("PGSQL_URL"),
		Port:           viper.GetString("PORT"),
		IsProduction:   viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:  viper.GetBool("ENABLE_DB_CHECK"),
		LogLevel:       strings.ToLower(viper.GetString("LOG_LEVEL")),
		StoreDriver:    strings.ToLower(viper.GetString("STORE_DRIVER")),
		MigrationsPath: viper.GetString("MIGRATIONS_PATH"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		JWTIssuer:      viper.GetString("JWT_ISSUER"),
		RateLimit:      viper.GetString("RATE_LIMIT"),
		AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL must be set when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
		log.Println("Warning: STORE_DRIVER=memory, data will not survive a restart.")
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	sched, err := loadSchedulerConfig()
	if err != nil {
		return nil, err
	}
	cfg.Scheduler = sched

	return cfg, nil
}

func loadSchedulerConfig() (SchedulerConfig, error) {
	tz := viper.GetString("SCHEDULER_TIMEZONE")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("invalid SCHEDULER_TIMEZONE %q: %w", tz, err)
	}

	timeoutStr := viper.GetString("SCHEDULER_RULE_TIMEOUT")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
		log.Printf("Warning: Invalid value for SCHEDULER_RULE_TIMEOUT ('%s'). Defaulting to %s.\n", timeoutStr, timeout)
	}

	cfg := SchedulerConfig{
		Enabled:     viper.GetBool("SCHEDULER_ENABLED"),
		CronSpec:    viper.GetString("SCHEDULER_CRON_SPEC"),
		Location:    loc,
		RuleTimeout: timeout,
		MaxWorkers:  viper.GetInt("SCHEDULER_MAX_WORKERS"),
		BatchSize:   viper.GetInt("SCHEDULER_BATCH_SIZE"),
		MaxCatchUp:  viper.GetInt("SCHEDULER_MAX_CATCH_UP"),
		RunOnStart:  viper.GetBool("SCHEDULER_RUN_ON_START"),
	}
	if cfg.MaxWorkers <= 0 {
		return SchedulerConfig{}, fmt.Errorf("SCHEDULER_MAX_WORKERS must be positive, got %d", cfg.MaxWorkers)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
