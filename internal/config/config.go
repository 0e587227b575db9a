package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
)

// Environment variables read by LoadFromEnv.
const (
	EnvDB         = "KNJIZNICA_DB"
	EnvAddr       = "KNJIZNICA_ADDR"
	EnvLog        = "KNJIZNICA_LOG"
	EnvAdminEmail = "KNJIZNICA_ADMIN_EMAIL"
	EnvAdminName  = "KNJIZNICA_ADMIN_NAME"
)

// Defaults used when a variable is unset.
const (
	DefaultDB         = "knjiznica.sqlite3"
	DefaultAddr       = ":8080"
	DefaultAdminEmail = "admin@localhost.localdomain"
	DefaultAdminName  = "Admin"
)

// Config holds the application configuration.
type Config struct {
	DBPath  string
	Addr    string
	LogPath string // empty: stdout/stderr only

	// Admin account created when a new database is initialized.
	AdminEmail string
	AdminName  string
}

// Load reads the given .env files (".env" when none are given) into the
// process environment and then loads the configuration from it. Missing
// files are not an error. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:     getEnv(EnvDB, DefaultDB),
		Addr:       getEnv(EnvAddr, DefaultAddr),
		LogPath:    os.Getenv(EnvLog),
		AdminEmail: getEnv(EnvAdminEmail, DefaultAdminEmail),
		AdminName:  getEnv(EnvAdminName, DefaultAdminName),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.AdminEmail, validation.Required, is.EmailFormat),
		validation.Field(&c.AdminName, validation.Required),
	)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
