package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Backend   BackendConfig   `env:",prefix=BACKEND_"`
	Bootstrap BootstrapConfig `env:",prefix=BOOTSTRAP_"`
	CORS      CORSConfig      `env:",prefix=CORS_"`
	Env       string          `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=127.0.0.1"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

// BackendConfig points the client at the hosted account/data service.
type BackendConfig struct {
	URL     string `env:"URL"`
	AnonKey string `env:"ANON_KEY"`
	// DomainSuffix is the host suffix the backend URL must match. Override
	// for self-hosted deployments.
	DomainSuffix   string   `env:"DOMAIN_SUFFIX,default=.supabase.co"`
	RequestTimeout Duration `env:"REQUEST_TIMEOUT,default=10s"`
}

// BootstrapConfig tunes the session bootstrap guard.
type BootstrapConfig struct {
	// GuardTimeout bounds how long the bootstrap waits for either the
	// auth-event stream or the manual session fetch before forcing a
	// resolution.
	GuardTimeout Duration `env:"GUARD_TIMEOUT,default=2s"`
	// LastChanceTimeout bounds the final session fetch issued when the
	// guard fires.
	LastChanceTimeout Duration `env:"LAST_CHANCE_TIMEOUT,default=1s"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// ConfigurationError is the terminal misconfiguration state. It is not a
// transient failure: the application still starts, but serves a remediation
// message instead of attempting the session bootstrap.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason + " Set BACKEND_URL and BACKEND_ANON_KEY in the environment, or check your deployment's backend integration."
}

// Validate checks the backend settings. A nil result means the client is
// configured and the bootstrap may run.
func (b BackendConfig) Validate() *ConfigurationError {
	if b.URL == "" || b.AnonKey == "" {
		return &ConfigurationError{Reason: "One or more backend settings (BACKEND_URL, BACKEND_ANON_KEY) are missing."}
	}
	u, err := url.Parse(b.URL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return &ConfigurationError{Reason: "The backend URL is invalid. It must be a full HTTPS URL."}
	}
	if b.DomainSuffix != "" && !strings.HasSuffix(u.Hostname(), b.DomainSuffix) {
		return &ConfigurationError{Reason: fmt.Sprintf("The backend URL host must end with %q.", b.DomainSuffix)}
	}
	return nil
}

// Address returns the local listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Load loads configuration from environment variables. A misconfigured
// backend is not an error here; callers check Backend.Validate so the
// configuration-error state can be surfaced instead of aborting startup.
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if config.Bootstrap.GuardTimeout.Duration <= 0 {
		return nil, fmt.Errorf("BOOTSTRAP_GUARD_TIMEOUT must be positive")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
