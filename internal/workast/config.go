package workast

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the public Workast API endpoint.
	DefaultBaseURL = "https://api.todobot.io"

	// DefaultTimeout bounds one tool invocation, including every upstream call it makes.
	DefaultTimeout = 60 * time.Second

	// DefaultConcurrency is the number of upstream reads a search runs in parallel.
	DefaultConcurrency = 4
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIToken    = "WORKAST_API_TOKEN"
	EnvBaseURL     = "WORKAST_BASE_URL"
	EnvTimeout     = "WORKAST_TIMEOUT"
	EnvConcurrency = "WORKAST_CONCURRENCY"
)

// Config holds the settings for talking to the Workast API.
type Config struct {
	// BaseURL is the API root, without trailing slash
	BaseURL string `yaml:"base_url"`

	// Token is the API token sent as a bearer credential
	Token string `yaml:"api_token"`

	// Timeout applies to a whole tool invocation
	Timeout time.Duration `yaml:"timeout"`

	// Concurrency bounds parallel upstream reads during a search; 1 is sequential
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns a Config with defaults and no token.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg.
// Keys missing from the file keep their current value.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the WORKAST_* environment variables onto cfg.
// Unset or empty variables are ignored.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimeout, v, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvConcurrency, v, err)
		}
		cfg.Concurrency = n
	}
	return nil
}

// Validate checks that the configuration can be used to serve requests.
// A missing token yields an error wrapping ErrMissingToken.
func (c Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, ErrMissingToken)
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid base URL %q", c.BaseURL))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	return errors.Join(errs...)
}
