// Package config loads console settings from .env files, an optional YAML
// file and the process environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zulfkhar00/instafit_console/internal/session"
)

const (
	DefaultPort           = "8080"
	DefaultSessionTTL     = 2 * time.Hour
	DefaultMaxUploadBytes = 10 << 20
)

type R2 struct {
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket_name"`
	PublicURL       string `yaml:"public_url"`
}

// Enabled reports whether enough is configured to talk to the bucket.
func (r R2) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.Bucket != ""
}

type Config struct {
	Env               string        `yaml:"-"`
	Port              string        `yaml:"port"`
	APIBaseURL        string        `yaml:"api_base_url"`
	JWTSecret         string        `yaml:"jwt_secret"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxUploadBytes    int           `yaml:"max_upload_bytes"`
	SegmentationModel string        `yaml:"segmentation_model"`
	ArchiveMode       string        `yaml:"archive_mode"`
	R2                R2            `yaml:"r2"`

	// GeneratedSecret is set when JWTSecret was not configured and a random
	// one was used instead.
	GeneratedSecret bool `yaml:"-"`
}

const (
	ArchiveOff    = "off"
	ArchiveMemory = "memory"
	ArchiveR2     = "r2"
)

// Archive resolves ArchiveMode. When unset, results go to R2 if it is
// configured and are not archived otherwise.
func (c Config) Archive() (string, error) {
	switch c.ArchiveMode {
	case "":
		if c.R2.Enabled() {
			return ArchiveR2, nil
		}
		return ArchiveOff, nil
	case ArchiveOff, ArchiveMemory:
		return c.ArchiveMode, nil
	case ArchiveR2:
		if !c.R2.Enabled() {
			return "", fmt.Errorf("archive mode r2 needs R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME")
		}
		return ArchiveR2, nil
	}
	return "", fmt.Errorf("unknown archive mode %q", c.ArchiveMode)
}

func Defaults() Config {
	return Config{
		Env:            "dev",
		Port:           DefaultPort,
		APIBaseURL:     session.DefaultBaseURL,
		SessionTTL:     DefaultSessionTTL,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Load reads .env.<APP_ENV> (falling back to .env), then CONFIG_FILE if set,
// then the environment.
func Load() (Config, error) {
	cfg := Defaults()
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Env = env
	}
	loadEnvFile(cfg.Env)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.mergeEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		cfg.GeneratedSecret = true
	}
	return cfg, nil
}

func loadEnvFile(env string) {
	envFile := fmt.Sprintf(".env.%s", env)
	if _, err := os.Stat(envFile); err == nil {
		hlog.Infof("Loading environment from %s", envFile)
	} else {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		hlog.Infof("%s not loaded (%v), using process environment only", envFile, err)
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) mergeEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("API_BASE_URL", &c.APIBaseURL)
	str("JWT_SECRET", &c.JWTSecret)
	str("SEGMENTATION_MODEL", &c.SegmentationModel)
	str("ARCHIVE_MODE", &c.ArchiveMode)
	str("R2_ACCOUNT_ID", &c.R2.AccountID)
	str("R2_ACCESS_KEY_ID", &c.R2.AccessKeyID)
	str("R2_SECRET_ACCESS_KEY", &c.R2.SecretAccessKey)
	str("R2_BUCKET_NAME", &c.R2.Bucket)
	str("R2_PUBLIC_URL", &c.R2.PublicURL)

	for key, dst := range map[string]*time.Duration{
		"SESSION_TTL":     &c.SessionTTL,
		"REQUEST_TIMEOUT": &c.RequestTimeout,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("MAX_UPLOAD_BYTES: invalid value %q", v)
		}
		c.MaxUploadBytes = n
	}
	return c.validate()
}

// validate rejects values that would leave the console unusable. Session
// tokens and cookies expire with SessionTTL, so it has to be positive.
func (c *Config) validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %v", c.SessionTTL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %v", c.RequestTimeout)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
