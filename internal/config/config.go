package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type R2Config struct {
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	PublicURL       string `yaml:"public_url"`
}

type ImagesConfig struct {
	AccountID string `yaml:"account_id"`
	Token     string `yaml:"token"`
	Hash      string `yaml:"hash"`
}

func (i ImagesConfig) Enabled() bool {
	return i.AccountID != "" && i.Token != ""
}

type OmniportConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
}

func (o OmniportConfig) Enabled() bool {
	return o.BaseURL != "" && o.ClientID != ""
}

type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		AllowedOrigins string `yaml:"allowed_origins"`
		RateLimit      int    `yaml:"rate_limit"`
	} `yaml:"server"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret     string        `yaml:"secret"`
		Issuer     string        `yaml:"issuer"`
		AccessTTL  time.Duration `yaml:"access_ttl"`
		RefreshTTL time.Duration `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	FrontendURL string `yaml:"frontend_url"`

	Email struct {
		APIKey   string `yaml:"api_key"`
		From     string `yaml:"from"`
		FromName string `yaml:"from_name"`
	} `yaml:"email"`

	R2       R2Config       `yaml:"r2"`
	Images   ImagesConfig   `yaml:"cloudflare_images"`
	Omniport OmniportConfig `yaml:"omniport"`

	Tagger struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"tagger"`

	Captcha struct {
		TurnstileSecret string `yaml:"turnstile_secret"`
	} `yaml:"captcha"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

// LoadConfig applies defaults, then the optional YAML file at path, then environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			file, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Server.Port = "8080"
	cfg.Server.AllowedOrigins = "http://localhost:5173"
	cfg.Server.RateLimit = 120

	cfg.JWT.Issuer = "keepevents"
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 7 * 24 * time.Hour

	cfg.FrontendURL = "http://localhost:5173"
	cfg.Email.FromName = "KeepEvents"

	cfg.Tagger.Timeout = 30 * time.Second

	cfg.Log.Level = "info"
}

func loadFromEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.AllowedOrigins, "ALLOWED_ORIGINS")
	if err := setInt(&cfg.Server.RateLimit, "RATE_LIMIT_PER_MINUTE"); err != nil {
		return err
	}

	setString(&cfg.Database.URL, "DATABASE_URL")

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")
	if err := setDuration(&cfg.JWT.AccessTTL, "JWT_ACCESS_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.JWT.RefreshTTL, "JWT_REFRESH_TTL"); err != nil {
		return err
	}

	setString(&cfg.FrontendURL, "FRONTEND_URL")

	setString(&cfg.Email.APIKey, "RESEND_API_KEY")
	setString(&cfg.Email.From, "EMAIL_FROM_ADDRESS")
	setString(&cfg.Email.FromName, "EMAIL_FROM_NAME")

	setString(&cfg.R2.AccountID, "R2_ACCOUNT_ID")
	setString(&cfg.R2.AccessKeyID, "R2_ACCESS_KEY_ID")
	setString(&cfg.R2.SecretAccessKey, "R2_SECRET_ACCESS_KEY")
	setString(&cfg.R2.Bucket, "R2_BUCKET")
	setString(&cfg.R2.PublicURL, "R2_PUBLIC_URL")

	setString(&cfg.Images.AccountID, "CLOUDFLARE_ACCOUNT_ID")
	setString(&cfg.Images.Token, "CLOUDFLARE_IMAGES_TOKEN")
	setString(&cfg.Images.Hash, "CLOUDFLARE_IMAGES_HASH")

	setString(&cfg.Omniport.BaseURL, "OMNIPORT_BASE_URL")
	setString(&cfg.Omniport.ClientID, "OMNIPORT_CLIENT_ID")
	setString(&cfg.Omniport.ClientSecret, "OMNIPORT_CLIENT_SECRET")
	setString(&cfg.Omniport.RedirectURI, "OMNIPORT_REDIRECT_URI")

	setString(&cfg.Tagger.URL, "TAGGER_URL")
	if err := setDuration(&cfg.Tagger.Timeout, "TAGGER_TIMEOUT"); err != nil {
		return err
	}

	setString(&cfg.Captcha.TurnstileSecret, "CF_TURNSTILE_SECRET_KEY")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v, ok := os.LookupEnv("LOG_JSON"); ok {
		cfg.Log.JSON = parseBool(v)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("JWT token lifetimes must be positive")
	}
	if cfg.JWT.AccessTTL >= cfg.JWT.RefreshTTL {
		return fmt.Errorf("JWT access lifetime must be shorter than refresh lifetime")
	}
	return nil
}

// Origins returns the CORS origins as fiber expects them.
func (c *Config) Origins() string {
	parts := strings.Split(c.Server.AllowedOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
