// Package config loads settings from an optional YAML file and the
// environment, and can watch the file for changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/handsomefox/cinebrowse/internal/env"
	"github.com/handsomefox/cinebrowse/internal/imageurl"
	"github.com/handsomefox/cinebrowse/internal/logger"
)

type Config struct {
	Env    env.Environment `yaml:"env"`
	Server ServerConfig    `yaml:"server"`
	TMDB   TMDBConfig      `yaml:"tmdb"`
	Cache  CacheConfig     `yaml:"cache"`
	Log    LogConfig       `yaml:"log"`
	Search SearchConfig    `yaml:"search"`
}

type ServerConfig struct {
	Port        string   `yaml:"port" validate:"required,numeric"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type TMDBConfig struct {
	APIKey    string        `yaml:"api_key" validate:"required_without=ReadToken"`
	ReadToken string        `yaml:"read_token"`
	Language  string        `yaml:"language" validate:"required,bcp47_language_tag"`
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	ImageBase string        `yaml:"image_base" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

type CacheConfig struct {
	Backend  string        `yaml:"backend" validate:"oneof=sqlite redis none"`
	DBPath   string        `yaml:"db_path" validate:"required_if=Backend sqlite"`
	RedisURL string        `yaml:"redis_url" validate:"required_if=Backend redis"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
	// Locale drives title collation; empty derives it from TMDB.Language.
	Locale string `yaml:"locale" validate:"omitempty,bcp47_language_tag"`
}

func Default() *Config {
	return &Config{
		Env: env.Current,
		Server: ServerConfig{
			Port:        "8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		TMDB: TMDBConfig{
			Language:  "fr-FR",
			ImageBase: imageurl.DefaultBase,
			Timeout:   10 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "sqlite",
			DBPath:  "./data/cinebrowse.db",
			TTL:     6 * time.Hour,
		},
		Log:    LogConfig{Level: "info"},
		Search: SearchConfig{Debounce: 500 * time.Millisecond},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load applies, in order: defaults, the YAML file at path (skipped when path
// is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else {
				slog.Warn("ignoring invalid duration", slog.String("key", key), logger.Error(err))
			}
		}
	}

	if v := getenv(env.Key); v != "" {
		c.Env = env.Parse(v)
	}
	set("PORT", &c.Server.Port)
	if v := strings.TrimSpace(getenv("CORS_ORIGINS")); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	set("TMDB_API_KEY", &c.TMDB.APIKey)
	set("TMDB_API_READ_TOKEN", &c.TMDB.ReadToken)
	set("TMDB_LANGUAGE", &c.TMDB.Language)
	set("TMDB_BASE_URL", &c.TMDB.BaseURL)
	set("TMDB_IMAGE_BASE", &c.TMDB.ImageBase)
	setDuration("TMDB_TIMEOUT", &c.TMDB.Timeout)
	set("CACHE_BACKEND", &c.Cache.Backend)
	set("DB_PATH", &c.Cache.DBPath)
	set("REDIS_URL", &c.Cache.RedisURL)
	setDuration("CACHE_TTL", &c.Cache.TTL)
	set("LOG_LEVEL", &c.Log.Level)
	setDuration("SEARCH_DEBOUNCE", &c.Search.Debounce)
	set("SEARCH_LOCALE", &c.Search.Locale)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: %s", fe.Namespace(), validationMessage(fe)))
		}
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if !c.Env.Valid() {
		errs = append(errs, fmt.Errorf("env %q is not one of local, production", c.Env))
	}
	return errors.Join(errs...)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + fe.Param() + " is empty"
	case "required_if":
		return "is required when " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "numeric":
		return "must be a number"
	case "url":
		return "must be a valid URL"
	case "bcp47_language_tag":
		return "must be a language tag such as fr-FR"
	case "gte":
		return "must not be negative"
	default:
		return "is invalid"
	}
}

// Level returns the configured slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	lvl, _ := logger.ParseLevel(c.Log.Level)
	return lvl
}

func (c *Config) Addr() string { return ":" + c.Server.Port }
