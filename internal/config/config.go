package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SWIPE_SERVER_PORT
const EnvPrefix = "SWIPE_"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	AWS      AWSConfig      `yaml:"aws" envPrefix:"AWS_"`
	JWT      JWTConfig      `yaml:"jwt" envPrefix:"JWT_"`
	Admin    AdminConfig    `yaml:"admin" envPrefix:"ADMIN_"`
	Identity IdentityConfig `yaml:"identity" envPrefix:"IDENTITY_"`
	APNs     APNsConfig     `yaml:"apns" envPrefix:"APNS_"`
	Cache    CacheConfig    `yaml:"cache" envPrefix:"CACHE_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port" env:"PORT"`
	Host string `yaml:"host" env:"HOST"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "memory"
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"DBNAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

// AWSConfig holds S3-compatible image storage configuration
type AWSConfig struct {
	Region    string `yaml:"region" env:"REGION"`
	S3Bucket  string `yaml:"s3_bucket" env:"S3_BUCKET"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	// PublicURL is the base of returned image URLs; derived from bucket and region when empty
	PublicURL    string `yaml:"public_url" env:"PUBLIC_URL"`
	UsePathStyle bool   `yaml:"use_path_style" env:"USE_PATH_STYLE"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret" env:"SECRET"`
}

// AdminConfig holds the catalogue admin credentials
type AdminConfig struct {
	Password string `yaml:"password" env:"PASSWORD"`
}

// IdentityConfig holds identity provider configuration
type IdentityConfig struct {
	TokenInfoURL string        `yaml:"token_info_url" env:"TOKEN_INFO_URL"`
	ClientID     string        `yaml:"client_id" env:"CLIENT_ID"`
	RetryMax     int           `yaml:"retry_max" env:"RETRY_MAX"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// APNsConfig holds push notification configuration. Push is disabled when KeyFile is empty.
type APNsConfig struct {
	KeyFile    string `yaml:"key_file" env:"KEY_FILE"`
	KeyID      string `yaml:"key_id" env:"KEY_ID"`
	TeamID     string `yaml:"team_id" env:"TEAM_ID"`
	Topic      string `yaml:"topic" env:"TOPIC"`
	Production bool   `yaml:"production" env:"PRODUCTION"`
}

// CacheConfig holds the card catalogue cache configuration
type CacheConfig struct {
	CardTTL time.Duration `yaml:"card_ttl" env:"CARD_TTL"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the configuration used for any value the file and environment leave unset
func Default() Config {
	return Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432, SSLMode: "disable"},
		AWS:      AWSConfig{Region: "us-east-1"},
		Identity: IdentityConfig{
			TokenInfoURL: "https://oauth2.googleapis.com/tokeninfo",
			RetryMax:     3,
			Timeout:      10 * time.Second,
		},
		Cache: CacheConfig{CardTTL: 5 * time.Minute},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file, then applies SWIPE_* environment overrides.
// A missing file is not an error; the defaults and environment are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ImageBaseURL returns the public URL prefix for stored objects
func (c *AWSConfig) ImageBaseURL() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.S3Bucket, c.Region)
}
