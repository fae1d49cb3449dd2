package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	appDirName        = "fidash"
	defaultConfigFile = "config.yaml"
	dotEnvFile        = ".env"
)

type Config interface {
	EnvConfig
	BackendConfig
	OAuthConfig
	SecurityConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Backend
	OAuth
	Security
	Cors
}

// New returns a configuration backed by the process environment only.
func New() Config {
	return newMainConfig(&Values{})
}

// Load reads the optional YAML file and the optional .env file in the working
// directory, then returns a configuration where environment variables take
// precedence over .env entries, which take precedence over the YAML file.
// An empty file selects the default location; a missing file is not an error.
func Load(file string) (Config, error) {
	if file == "" {
		var err error
		if file, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	values, err := ReadFile(file)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("[config Load] %w", err)
	}
	if values == nil {
		values = &Values{}
	}

	// godotenv never overrides variables that are already set
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("[config Load] unable to read %s: %w", dotEnvFile, err)
	}

	return newMainConfig(values), nil
}

func newMainConfig(values *Values) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{values: values},
		Backend:  Backend{values: values},
		OAuth:    OAuth{values: values},
		Security: Security{values: values},
		Cors:     Cors{values: values},
	}
}

// AppDir returns the per-user directory holding the config file and the session record.
func AppDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, appDirName), nil
}

// DefaultConfigPath returns the default location of the YAML config file.
func DefaultConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultConfigFile), nil
}
