// Package config loads the processor settings from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/petrijr/connect/pkg/api"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultPageSize     = 100
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultStore        = "memory"
	DefaultSchedule     = "@every 1m"

	MaxPageSize = 1000
)

type (
	// Config holds the processor settings. It is read-only once loaded.
	Config struct {
		APIURL       string        `yaml:"api_url" validate:"omitempty,url"`
		APIKey       string        `yaml:"api_key"`
		Products     []string      `yaml:"products" validate:"dive,required"`
		Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
		PageSize     int           `yaml:"page_size" validate:"min=1,max=1000"`
		MaxRetries   int           `yaml:"max_retries" validate:"min=0,max=20"`
		RetryBackoff time.Duration `yaml:"retry_backoff" validate:"gte=0"`
		Log          LogConfig     `yaml:"log"`
		Store        string        `yaml:"store" validate:"required"`
		Schedule     string        `yaml:"schedule" validate:"required"`

		// Fixtures replaces the remote API with a JSON file of requests.
		Fixtures string `yaml:"fixtures"`
	}

	// LogConfig configures the log sink.
	LogConfig struct {
		Path   string `yaml:"path"`
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=text json"`
	}
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewDefaultConfig returns a configuration with defaults for every
// optional setting.
func NewDefaultConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		PageSize:     DefaultPageSize,
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: DefaultRetryBackoff,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Store:    DefaultStore,
		Schedule: DefaultSchedule,
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path into c.
func (c *Config) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies CONNECT_* environment overrides. It returns an error
// if a numeric or duration variable cannot be parsed.
func (c *Config) LoadFromEnv() error {
	loadEnvString("CONNECT_API_URL", &c.APIURL)
	loadEnvString("CONNECT_API_KEY", &c.APIKey)
	loadEnvString("CONNECT_LOG_PATH", &c.Log.Path)
	loadEnvString("CONNECT_LOG_LEVEL", &c.Log.Level)
	loadEnvString("CONNECT_LOG_FORMAT", &c.Log.Format)
	loadEnvString("CONNECT_STORE", &c.Store)
	loadEnvString("CONNECT_SCHEDULE", &c.Schedule)
	loadEnvString("CONNECT_FIXTURES", &c.Fixtures)

	if products := os.Getenv("CONNECT_PRODUCTS"); products != "" {
		c.Products = SplitList(products)
	}

	if err := loadEnvInt("CONNECT_PAGE_SIZE", &c.PageSize); err != nil {
		return err
	}
	if err := loadEnvInt("CONNECT_MAX_RETRIES", &c.MaxRetries); err != nil {
		return err
	}
	if err := loadEnvDuration("CONNECT_TIMEOUT", &c.Timeout); err != nil {
		return err
	}
	return loadEnvDuration("CONNECT_RETRY_BACKOFF", &c.RetryBackoff)
}

// Validate checks the configuration. A missing API URL or key is reported
// as api.ErrConfigMissing unless fixtures replace the remote API.
func (c *Config) Validate() error {
	if c.Fixtures == "" {
		if c.APIURL == "" {
			return fmt.Errorf("%w: api_url", api.ErrConfigMissing)
		}
		if c.APIKey == "" {
			return fmt.Errorf("%w: api_key", api.ErrConfigMissing)
		}
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ProductsString returns the product ids joined by commas, the form the
// listing API expects for an "in" filter.
func (c *Config) ProductsString() string {
	return strings.Join(c.Products, ",")
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadEnvString(name string, target *string) {
	if v := os.Getenv(name); v != "" {
		*target = v
	}
}

func loadEnvInt(name string, target *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*target = n
	return nil
}

func loadEnvDuration(name string, target *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*target = d
	return nil
}
