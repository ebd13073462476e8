package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	ErrConfiguration = errors.New("configuration error")
)

// ConfigurationError reports missing or invalid connection settings. It is
// fatal at startup.
type ConfigurationError struct {
	Reason    string
	Variables []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Reason, strings.Join(e.Variables, ", "))
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// Config is the resolved Databricks connection configuration. It is built once
// at startup and never mutated afterwards.
type Config struct {
	// Host is the bare workspace hostname, without scheme or port.
	Host     string
	Port     int
	Token    string
	HTTPPath string

	DefaultCatalog string
	DefaultSchema  string
}

// FromEnv resolves the configuration from the process environment.
func FromEnv() (*Config, error) {
	return Load(os.LookupEnv)
}

// Load resolves the configuration using the given lookup function. Every
// missing required variable is reported in a single error.
func Load(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	var missing []string
	rawHost := get(EnvHost)
	if rawHost == "" {
		missing = append(missing, EnvHost)
	}
	token := get(EnvToken)
	if token == "" {
		missing = append(missing, EnvToken)
	}
	httpPath := get(EnvHTTPPath)
	if httpPath == "" {
		missing = append(missing, EnvHTTPPath)
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{
			Reason:    "missing required environment variables",
			Variables: missing,
		}
	}

	host, port, err := parseHost(rawHost)
	if err != nil {
		return nil, &ConfigurationError{
			Reason:    err.Error(),
			Variables: []string{EnvHost},
		}
	}

	if !strings.HasPrefix(httpPath, "/") {
		httpPath = "/" + httpPath
	}

	cfg := &Config{
		Host:           host,
		Port:           port,
		Token:          token,
		HTTPPath:       httpPath,
		DefaultCatalog: get(EnvCatalog),
		DefaultSchema:  get(EnvSchema),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, EnvHost)
	}
	if c.Token == "" {
		missing = append(missing, EnvToken)
	}
	if c.HTTPPath == "" {
		missing = append(missing, EnvHTTPPath)
	}
	if len(missing) > 0 {
		return &ConfigurationError{
			Reason:    "missing required environment variables",
			Variables: missing,
		}
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigurationError{
			Reason:    fmt.Sprintf("invalid port %d", c.Port),
			Variables: []string{EnvHost},
		}
	}
	return nil
}

// WorkspaceURL returns the https URL of the workspace.
func (c *Config) WorkspaceURL() string {
	if c.Port == DefaultPort {
		return "https://" + c.Host
	}
	return fmt.Sprintf("https://%s:%d", c.Host, c.Port)
}

// Redacted renders the configuration for logging with the token masked.
func (c *Config) Redacted() string {
	return fmt.Sprintf("host=%s port=%d http_path=%s token=REDACTED catalog=%s schema=%s",
		c.Host, c.Port, c.HTTPPath, orNone(c.DefaultCatalog), orNone(c.DefaultSchema))
}

// LoadEnvFile loads variables from a dotenv file without overriding variables
// already present in the environment. A missing file is only an error when
// required is set.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func parseHost(raw string) (string, int, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("invalid host %q: %w", raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", 0, fmt.Errorf("invalid host %q: unsupported scheme %q", raw, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("invalid host %q: empty hostname", raw)
	}
	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid host %q: bad port %q", raw, p)
		}
		// An explicit port must be usable; Validate only defaults a missing one.
		if port < 1 || port > 65535 {
			return "", 0, fmt.Errorf("invalid host %q: invalid port %d", raw, port)
		}
	}
	return host, port, nil
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
