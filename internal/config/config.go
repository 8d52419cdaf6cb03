// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config/app.yaml"

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type AuthConfig struct {
	SessionTTL    time.Duration `yaml:"session_ttl"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	TokenIssuer   string        `yaml:"token_issuer"`
	SecureCookies bool          `yaml:"secure_cookies"`
	LoginAttempts int           `yaml:"login_attempts"`
	LoginWindow   time.Duration `yaml:"login_window"`
}

type BoardConfig struct {
	// MaxInFlight caps concurrent backend calls per batch. Zero sends every item at once.
	MaxInFlight int           `yaml:"max_in_flight"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

type JobsConfig struct {
	PruneCron           string `yaml:"prune_cron"`
	PruneRetentionWeeks int    `yaml:"prune_retention_weeks"`
	DigestCron          string `yaml:"digest_cron"`
}

const (
	EmailProviderNone   = "none"
	EmailProviderSES    = "ses"
	EmailProviderResend = "resend"
)

type EmailConfig struct {
	Provider    string `yaml:"provider"`
	FromAddress string `yaml:"from_address"`
	Region      string `yaml:"region"`

	SESAccessKeyID     string `yaml:"-"` // Loaded from environment
	SESSecretAccessKey string `yaml:"-"` // Loaded from environment
	ResendAPIKey       string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name            string        `yaml:"name"`
		Environment     string        `yaml:"environment"`
		Port            int           `yaml:"port"`
		BaseURL         string        `yaml:"base_url"`
		StaticDir       string        `yaml:"static_dir"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SecretKey       string        `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Board    BoardConfig    `yaml:"board"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Email    EmailConfig    `yaml:"email"`
}

// PathFromEnv returns CONFIG_PATH or the default location.
func PathFromEnv() string {
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		return path
	}
	return DefaultPath
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Email.SESAccessKeyID = os.Getenv("SES_ACCESS_KEY_ID")
	cfg.Email.SESSecretAccessKey = os.Getenv("SES_SECRET_ACCESS_KEY")
	cfg.Email.ResendAPIKey = os.Getenv("RESEND_API_KEY")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.StaticDir == "" {
		c.App.StaticDir = "static"
	}
	if c.App.ShutdownTimeout == 0 {
		c.App.ShutdownTimeout = 30 * time.Second
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 8 * time.Hour
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.TokenIssuer == "" {
		c.Auth.TokenIssuer = c.App.Name
	}
	if c.Auth.LoginAttempts == 0 {
		c.Auth.LoginAttempts = 5
	}
	if c.Auth.LoginWindow == 0 {
		c.Auth.LoginWindow = 15 * time.Minute
	}
	if c.Board.IdleTimeout == 0 {
		c.Board.IdleTimeout = 2 * time.Hour
	}
	if c.Jobs.PruneRetentionWeeks == 0 {
		c.Jobs.PruneRetentionWeeks = 8
	}
	if c.Email.Provider == "" {
		c.Email.Provider = EmailProviderNone
	}
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if !c.IsDevelopment() && c.App.SecretKey == "" {
		return fmt.Errorf("APP_SECRET_KEY is required outside development")
	}
	if c.Auth.LoginAttempts < 0 {
		return fmt.Errorf("auth login_attempts must be 0 or greater")
	}
	if c.Board.MaxInFlight < 0 {
		return fmt.Errorf("board max_in_flight must be 0 or greater")
	}
	if c.Jobs.PruneRetentionWeeks < 1 {
		return fmt.Errorf("jobs prune_retention_weeks must be at least 1")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, expr := range map[string]string{"prune_cron": c.Jobs.PruneCron, "digest_cron": c.Jobs.DigestCron} {
		if expr == "" {
			continue
		}
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("jobs %s is invalid: %w", name, err)
		}
	}

	switch c.Email.Provider {
	case EmailProviderNone:
	case EmailProviderSES:
		if c.Email.FromAddress == "" {
			return fmt.Errorf("email from_address is required for ses")
		}
	case EmailProviderResend:
		if c.Email.FromAddress == "" {
			return fmt.Errorf("email from_address is required for resend")
		}
		if c.Email.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required for resend")
		}
	default:
		return fmt.Errorf("unsupported email provider: %s", c.Email.Provider)
	}

	return nil
}
