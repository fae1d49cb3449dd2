package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelEnvVar = "LOG_LEVEL"
	baseURLVar     = "BASE_URL"
)

type EnvVars struct {
	values *Values
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, orDefault(e.values.Port, "3000"))
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, orDefault(e.values.AppName, "Fi Dashboard"))
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, orDefault(e.values.Env, "DEV")))
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, orDefault(e.values.LogLevel, "info"))
}

// GetBaseURL returns the public URL of the dashboard server (e.g., "https://fi.example.com").
// The OAuth redirect URI is derived from it.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, orDefault(e.values.BaseURL, "http://localhost:3000")), "/")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// getDuration parses a duration from the environment or the file value. Invalid
// or negative values fall back to the default.
func getDuration(envVar, fileValue string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, fileValue)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}
