// Package config loads devent settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pfrederiksen/devent/internal/kv"
	"github.com/pfrederiksen/devent/internal/logger"
)

// Backend names a kv.Store implementation.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendGist     Backend = "gist"
)

// DefaultDataDir is where the file backend keeps its namespace.
const DefaultDataDir = "~/.local/share/devent"

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendFile, BackendMemory, BackendPostgres, BackendGist:
		return b, nil
	default:
		return "", fmt.Errorf("invalid backend: %s (must be file, memory, postgres or gist)", s)
	}
}

// Database holds PostgreSQL connection settings.
type Database struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns URL when set, otherwise a libpq-style connection string.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Config is the resolved runtime configuration.
type Config struct {
	Backend       Backend
	DataDir       string
	QuotaBytes    int
	Database      Database
	GistID        string
	GitHubToken   string
	EncryptionKey string
	RabbitMQURL   string
	LogLevel      logger.Level
	Seed          bool
}

// Load reads the given .env files (".env" when none are named), then the
// environment. Missing .env files are ignored; variables already set in the
// environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (*Config, error) {
	backend, err := ParseBackend(getEnv("DEVENT_BACKEND", string(BackendFile)))
	if err != nil {
		return nil, err
	}

	quota, err := strconv.Atoi(getEnv("DEVENT_QUOTA_BYTES", strconv.Itoa(kv.DefaultQuota)))
	if err != nil || quota < 0 {
		return nil, fmt.Errorf("invalid DEVENT_QUOTA_BYTES: %q", os.Getenv("DEVENT_QUOTA_BYTES"))
	}

	level, err := logger.ParseLevel(getEnv("DEVENT_LOG_LEVEL", string(logger.LevelInfo)))
	if err != nil {
		return nil, fmt.Errorf("invalid DEVENT_LOG_LEVEL: %w", err)
	}

	seed, err := strconv.ParseBool(getEnv("DEVENT_SEED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEVENT_SEED: %q", os.Getenv("DEVENT_SEED"))
	}

	return &Config{
		Backend:    backend,
		DataDir:    getEnv("DEVENT_DATA_DIR", DefaultDataDir),
		QuotaBytes: quota,
		Database: Database{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "devent"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		GistID:        os.Getenv("DEVENT_GIST_ID"),
		GitHubToken:   os.Getenv("DEVENT_GITHUB_TOKEN"),
		EncryptionKey: os.Getenv("DEVENT_ENCRYPTION_KEY"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		LogLevel:      level,
		Seed:          seed,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
