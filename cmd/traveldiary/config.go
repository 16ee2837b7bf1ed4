package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ACHamster/travel-diary-mobile/internal/logger"
	"github.com/ACHamster/travel-diary-mobile/internal/transport"
)

const (
	defaultLoggingLevel   = logger.LevelWarn
	defaultEnvironment    = logger.EnvProduction
	defaultRequestTimeout = transport.DefaultTimeout

	developmentBaseURL = "http://localhost:3000/api"
	productionBaseURL  = "https://travel.achamster.live/api"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment selects log format and default backend
	Environment string

	// Backend address, overrides the environment default
	BaseURL string

	// Path to sqlite file with the session
	// Empty means file in user config dir
	SessionDB string

	// Keep the session in memory only
	Ephemeral bool

	// Timeout of a single HTTP exchange
	RequestTimeout time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:       defaultLoggingLevel,
		Environment:    defaultEnvironment,
		RequestTimeout: defaultRequestTimeout,
	}
}

// APIBaseURL returns explicit base url or the default of the environment
func (c *Config) APIBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == logger.EnvDevelopment {
		return developmentBaseURL
	}
	return productionBaseURL
}

// SessionPath returns the session database location
func (c *Config) SessionPath() (string, error) {
	if c.SessionDB != "" {
		return c.SessionDB, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("can't find config dir, set SESSION_DB. Err: %w", err)
	}
	return filepath.Join(dir, "traveldiary", "session.db"), nil
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}

	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"API_BASE_URL":    setString(&c.BaseURL),
		"SESSION_DB":      setString(&c.SessionDB),
		"LOG_LEVEL":       setString(&c.LogLevel),
		"ENVIRONMENT":     setString(&c.Environment),
		"REQUEST_TIMEOUT": setDuration(&c.RequestTimeout),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s. Err: %w", key, err)
		}
	}
	return nil
}

// ParseFlags parses global flags and returns the command with its arguments
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("traveldiary", pflag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVar(&c.BaseURL, "api-url", c.BaseURL, "Backend address including /api prefix")
	fs.StringVar(&c.SessionDB, "session-db", c.SessionDB, "Session database file")
	fs.BoolVar(&c.Ephemeral, "ephemeral", c.Ephemeral, "Keep session in memory only")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")
	fs.DurationVarP(&c.RequestTimeout, "timeout", "t", c.RequestTimeout, "Timeout of a single request")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
