package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Values mirrors the YAML config file. Every field is optional; durations are
// written in time.ParseDuration syntax ("2s", "10m").
type Values struct {
	Port     string `yaml:"port,omitempty"`
	AppName  string `yaml:"app_name,omitempty"`
	Env      string `yaml:"env,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`

	BackendURL   string `yaml:"backend_url,omitempty"`
	LoginURL     string `yaml:"login_url,omitempty"`
	PollInterval string `yaml:"poll_interval,omitempty"`
	LoginTimeout string `yaml:"login_timeout,omitempty"`
	SessionFile  string `yaml:"session_file,omitempty"`
	SessionKey   string `yaml:"session_key,omitempty"`

	AuthSecret        string `yaml:"auth_secret,omitempty"`
	OAuthIssuer       string `yaml:"oauth_issuer,omitempty"`
	OAuthClientID     string `yaml:"oauth_client_id,omitempty"`
	OAuthClientSecret string `yaml:"oauth_client_secret,omitempty"`

	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// ReadFile parses a YAML config file.
func ReadFile(file string) (*Values, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	var v Values
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}
	return &v, nil
}
