package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/currency"
)

// Prefix is prepended to every environment variable, e.g. TABREPORT_DB_PATH.
const Prefix = "TABREPORT"

const appDirName = "tabreport"

// Config holds runtime configuration for every tabreport command.
type Config struct {
	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:8080/api" validate:"required,url"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"30s" validate:"gt=0"`

	DBMode string `envconfig:"DB_MODE" default:"plain" validate:"oneof=plain secure"`
	DBPath string `envconfig:"DB_PATH"`

	PageSize     int           `envconfig:"PAGE_SIZE" default:"10" validate:"gt=0,lte=500"`
	Currency     string        `envconfig:"CURRENCY" default:"CAD" validate:"len=3"`
	RenderDelay  time.Duration `envconfig:"RENDER_DELAY" default:"1s" validate:"gte=0"`
	MaxFractions int           `envconfig:"MAX_FRACTION_DIGITS" default:"2" validate:"gte=0,lte=4"`

	SyncPollInterval time.Duration   `envconfig:"SYNC_POLL_INTERVAL" default:"5m" validate:"gt=0"`
	SyncStaleAfter   time.Duration   `envconfig:"SYNC_STALE_AFTER" default:"1m" validate:"gte=0"`
	SyncWorkers      int             `envconfig:"SYNC_WORKERS" default:"4" validate:"gt=0,lte=32"`
	SyncBackoff      []time.Duration `envconfig:"SYNC_BACKOFF"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
	LogOutput string `envconfig:"LOG_OUTPUT"`

	HTTPAddr      string `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPRateLimit int    `envconfig:"HTTP_RATE_LIMIT" default:"120" validate:"gte=0"`
	HTTPToken     string `envconfig:"HTTP_TOKEN"`
}

var validate = validator.New()

// Load reads an optional dotenv file and then the environment. Variables
// already set in the environment win over the file.
func Load(dotenv ...string) (*Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and the currency code.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := currency.ParseISO(c.Currency); err != nil {
		return fmt.Errorf("invalid configuration: currency %q: %w", c.Currency, err)
	}
	for _, d := range c.SyncBackoff {
		if d <= 0 {
			return fmt.Errorf("invalid configuration: sync backoff step %s must be positive", d)
		}
	}
	return nil
}

func (c *Config) resolvePaths() error {
	if strings.TrimSpace(c.DBPath) != "" && strings.TrimSpace(c.LogOutput) != "" {
		return nil
	}
	dir, err := AppDir()
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = filepath.Join(dir, "tabreport.db")
	}
	if strings.TrimSpace(c.LogOutput) == "" {
		c.LogOutput = filepath.Join(dir, "tabreport.log")
	}
	return nil
}

// AppDir is the per-user directory holding the cache and log file.
func AppDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config directory: %w", err)
	}
	return filepath.Join(configDir, appDirName), nil
}

// CurrencyFormat is the display format applied to every month column.
func (c *Config) CurrencyFormat() revenue.CurrencyFormat {
	return revenue.CurrencyFormat{
		Code:              strings.ToUpper(c.Currency),
		MinFractionDigits: 0,
		MaxFractionDigits: c.MaxFractions,
	}
}
