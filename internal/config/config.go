package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	StoreBackend         string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS"`
	RESTURL              string        `mapstructure:"REST_URL"`
	RESTAPIKey           string        `mapstructure:"REST_API_KEY"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS         float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst       int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AppointmentRetention time.Duration `mapstructure:"APPOINTMENT_RETENTION"`
	RefreshSchedule      string        `mapstructure:"REFRESH_SCHEDULE"`
	SweepSchedule        string        `mapstructure:"SWEEP_SCHEDULE"`
	HospitalName         string        `mapstructure:"HOSPITAL_NAME"`
}

var keys = []string{
	"PORT", "ENV", "STORE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REST_URL", "REST_API_KEY", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "APPOINTMENT_RETENTION", "REFRESH_SCHEDULE", "SWEEP_SCHEDULE",
	"HOSPITAL_NAME",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", BackendPostgres)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("APPOINTMENT_RETENTION", "20h")
	v.SetDefault("REFRESH_SCHEDULE", "@every 30s")
	v.SetDefault("SWEEP_SCHEDULE", "@every 15m")
	v.SetDefault("HOSPITAL_NAME", "General Hospital")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine; env vars and defaults still apply.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in development mode (ENV=development)")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the selected store backend has what it needs to
// connect, and that the scheduling knobs are usable.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
	case BackendREST:
		if c.RESTURL == "" {
			return fmt.Errorf("REST_URL is required when STORE_BACKEND is %q", BackendREST)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendREST, c.StoreBackend)
	}
	if c.AppointmentRetention <= 0 {
		return fmt.Errorf("APPOINTMENT_RETENTION must be positive, got %s", c.AppointmentRetention)
	}
	if c.RefreshSchedule == "" || c.SweepSchedule == "" {
		return fmt.Errorf("REFRESH_SCHEDULE and SWEEP_SCHEDULE must not be empty")
	}
	return nil
}
