package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	commoncfg "revit-qc/common/config"
	"revit-qc/internal/aggregator"
)

// Config revit-qc-api settings, loaded from the environment
type Config struct {
	HTTP struct {
		Addr string
	}

	// DBEnabled=false serves from the in-memory store (local dev)
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	// Migrate applies the embedded schema migrations at startup
	Migrate bool

	RedisEnabled bool
	Redis        commoncfg.RedisConfig
	AuditStream  string

	// Admin basic-auth credentials guarding the delete endpoints.
	// Empty password disables every delete.
	Admin struct {
		User     string
		Password string
	}

	Clash struct {
		HistoryDays   int
		SameDayPolicy aggregator.SameDayPolicy
	}

	// ReportLocation decides which calendar day "today" is
	ReportLocation *time.Location

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration. Invalid enum values are errors; unparsable numbers fall back to defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":3001")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "revit_qc",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")
	cfg.Migrate = getEnv("DB_MIGRATE", "true") == "true"

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.AuditStream = getEnv("AUDIT_STREAM", "revit-qc:deletions")

	cfg.Admin.User = getEnv("ADMIN_USER", "")
	cfg.Admin.Password = getEnv("ADMIN_PASSWORD", "")

	cfg.Clash.HistoryDays = parseInt(getEnv("CLASH_HISTORY_DAYS", "30"), 30)
	if cfg.Clash.HistoryDays <= 0 {
		cfg.Clash.HistoryDays = 30
	}
	policy, err := aggregator.ParseSameDayPolicy(getEnv("CLASH_SAME_DAY_POLICY", "sum"))
	if err != nil {
		return nil, fmt.Errorf("CLASH_SAME_DAY_POLICY: %w", err)
	}
	cfg.Clash.SameDayPolicy = policy

	loc, err := time.LoadLocation(getEnv("REPORT_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}
	cfg.ReportLocation = loc

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
