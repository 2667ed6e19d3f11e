// Package config loads client settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	// ServerURL is the lobby server base URL.
	ServerURL string
	// TokenPath is where the access token is persisted. Every process
	// pointed at the same path shares one login.
	TokenPath string
	// DevAddr is the listen address of the dev server.
	DevAddr string
	// JWTSecret signs dev-server tokens. Empty means the built-in dev
	// default.
	JWTSecret string
}

func Load() *Config {
	_ = godotenv.Load() // missing .env is fine

	return &Config{
		ServerURL: getEnv("LOBBY_SERVER_URL", "http://localhost:8000"),
		TokenPath: getEnv("LOBBY_TOKEN_PATH", defaultTokenPath()),
		DevAddr:   getEnv("LOBBY_DEV_ADDR", ":8000"),
		JWTSecret: getEnv("LOBBY_JWT_SECRET", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".lobby-token"
	}
	return filepath.Join(dir, "lobby-client", "access_token")
}
