package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override config.toml.
const (
	EnvAPIURL    = "VITALCHAT_API_URL"
	EnvSocketURL = "VITALCHAT_SOCKET_URL"
	EnvSession   = "VITALCHAT_SESSION"
)

// LoadDotEnv loads a .env file from the working directory into the process
// environment. Variables already set win. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides config values from VITALCHAT_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv(EnvSocketURL); v != "" {
		c.SocketURL = v
	}
	if v := os.Getenv(EnvSession); v != "" {
		c.DefaultSession = v
	}
}
