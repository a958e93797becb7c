package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from .env files. Explicit paths
// are tried first, then .env in the working directory. Variables already
// set in the environment are never overwritten.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path != "" {
			if err := loadIfExists(path); err != nil {
				return err
			}
		}
	}
	return loadIfExists(".env")
}

// LoadDotEnvForConfig loads .env from the config file's directory, then
// the working directory.
func LoadDotEnvForConfig(configPath string) error {
	if configPath == "" {
		return LoadDotEnv()
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return LoadDotEnv()
	}
	return LoadDotEnv(filepath.Join(filepath.Dir(abs), ".env"))
}

func loadIfExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		slog.Debug("failed to load .env file", "path", path, "error", err)
		return nil
	}
	slog.Debug("loaded environment from .env", "path", path)
	return nil
}
