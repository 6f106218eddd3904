/*
config.go - Process configuration

PURPOSE:
  Collects everything the server and CLI need from the environment. A .env
  file in the working directory is loaded first when present; variables
  already set in the environment win over it. Command-line flags override
  both (see cmd/server).

VARIABLES:
  PORT                   HTTP port (default 8080)
  DATABASE_DRIVER        sqlite3 | postgres (default sqlite3)
  DATABASE_URL           path or DSN (default payroll.db)
  LOG_LEVEL              logrus level (default info)
  ENVIRONMENT            development | staging | production (default development)
  RULES_FILE             overtime rules JSON
  HOLIDAYS_FILE          company holidays JSON
  FREQUENCY_FILE         payroll frequency JSON
  CALENDAR_CRON          schedule for calendar generation (default "0 2 * * *")
  CALENDAR_MONTHS_AHEAD  months generated ahead of today (default 3)
  AGGREGATION_WORKERS    parallel employee evaluations (default 4)
  LEAVE_DAY_HOURS        hours credited per leave day (default 8)

The engine and generator never read configuration themselves; the
entrypoints turn Config into explicit objects.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/generic"
)

type Config struct {
	Port           int
	DatabaseDriver string
	DatabaseURL    string
	LogLevel       string
	Environment    string

	RulesFile     string
	HolidaysFile  string
	FrequencyFile string

	CalendarCron        string
	CalendarMonthsAhead int

	AggregationWorkers int
	LeaveDayHours      decimal.Decimal
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                8080,
		DatabaseDriver:      "sqlite3",
		DatabaseURL:         "payroll.db",
		LogLevel:            "info",
		Environment:         "development",
		CalendarCron:        "0 2 * * *",
		CalendarMonthsAhead: 3,
		AggregationWorkers:  4,
		LeaveDayHours:       decimal.NewFromInt(8),
	}
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Defaults()
	var err error

	if v := getenv("PORT"); v != "" {
		if cfg.Port, err = positiveInt("PORT", v); err != nil {
			return nil, err
		}
	}
	if v := getenv("DATABASE_DRIVER"); v != "" {
		cfg.DatabaseDriver = strings.ToLower(v)
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = strings.ToLower(v)
	}

	cfg.RulesFile = getenv("RULES_FILE")
	cfg.HolidaysFile = getenv("HOLIDAYS_FILE")
	cfg.FrequencyFile = getenv("FREQUENCY_FILE")

	if v := getenv("CALENDAR_CRON"); v != "" {
		cfg.CalendarCron = v
	}
	if v := getenv("CALENDAR_MONTHS_AHEAD"); v != "" {
		if cfg.CalendarMonthsAhead, err = positiveInt("CALENDAR_MONTHS_AHEAD", v); err != nil {
			return nil, err
		}
	}
	if v := getenv("AGGREGATION_WORKERS"); v != "" {
		if cfg.AggregationWorkers, err = positiveInt("AGGREGATION_WORKERS", v); err != nil {
			return nil, err
		}
	}
	if v := getenv("LEAVE_DAY_HOURS"); v != "" {
		h, err := decimal.NewFromString(v)
		if err != nil || h.IsNegative() {
			return nil, generic.NewConfigurationError("LEAVE_DAY_HOURS", v, "must be a non-negative number")
		}
		cfg.LeaveDayHours = h
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be caught while parsing.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return generic.NewConfigurationError("DATABASE_DRIVER", c.DatabaseDriver, "must be sqlite3 or postgres")
	}
	if c.DatabaseURL == "" {
		return generic.NewConfigurationError("DATABASE_URL", "", "is required")
	}
	return nil
}

// IsProduction reports whether the process runs in a deployed environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func positiveInt(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, generic.NewConfigurationError(name, v, "must be a positive integer")
	}
	return n, nil
}
