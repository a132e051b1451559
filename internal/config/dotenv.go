package config

import (
	"os"

	"github.com/joho/godotenv"
)

const defaultAppEnv = "local"

// AppEnv returns APP_ENV, or "local" when unset
func AppEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return defaultAppEnv
}

// LoadDotEnv loads whichever of .env.<env>.local, .env.local and .env exist.
// Variables already in the environment are never overwritten, and an
// earlier file wins over a later one. The loaded file names are returned.
func LoadDotEnv() []string {
	candidates := []string{".env.local", ".env"}
	if env := os.Getenv("APP_ENV"); env != "" {
		candidates = append([]string{".env." + env + ".local"}, candidates...)
	}

	loaded := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			loaded = append(loaded, name)
		}
	}
	if len(loaded) == 0 {
		return nil
	}
	_ = godotenv.Load(loaded...)
	return loaded
}

// ConfigPath returns CONFIG_PATH if set, otherwise configs/config.<env>.yaml
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config." + AppEnv() + ".yaml"
}
