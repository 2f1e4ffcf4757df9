package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ApplyEnv loads the given .env files (missing files are skipped) and then
// overlays any variables present in the process environment onto cfg.
// Variables that are not set leave the corresponding field untouched.
func ApplyEnv(cfg *Config, envFiles ...string) error {
	for _, p := range envFiles {
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("apply environment: %w", err)
	}
	return nil
}
