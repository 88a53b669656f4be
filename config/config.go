package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TLSConfig holds TLS-specific configurations.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ServerConfig holds listener settings for cmd/server. An empty address
// disables that listener.
type ServerConfig struct {
	TCPAddress      string    `yaml:"tcp_address"`
	HTTPAddress     string    `yaml:"http_address"`
	ShutdownTimeout string    `yaml:"shutdown_timeout"`
	TLS             TLSConfig `yaml:"tls"`
}

// StorageConfig locates the data file.
type StorageConfig struct {
	Path    string `yaml:"path"`
	History bool   `yaml:"history"`
	// CheckpointInterval enables periodic checkpoints when history is on.
	CheckpointInterval string `yaml:"checkpoint_interval"`
}

// AuthConfig holds JWT settings. Authentication is off unless Enabled.
type AuthConfig struct {
	Enabled    bool   `yaml:"enabled"`
	JWTSecret  string `yaml:"jwt_secret"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	NameClaim  string `yaml:"name_claim"`
	EmailClaim string `yaml:"email_claim"`
}

// S3Config holds credentials for s3:// backup targets.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type BackupConfig struct {
	S3 S3Config `yaml:"s3"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// IdentityConfig is the author recorded on checkpoints made by the server.
type IdentityConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Backup   BackupConfig   `yaml:"backup"`
	Logging  LoggingConfig  `yaml:"logging"`
	Identity IdentityConfig `yaml:"identity"`
}

// ParseDuration parses a duration string. Returns the default duration if the string is empty or invalid.
// Logs a warning if the string is invalid but not empty.
func ParseDuration(durationStr string, defaultDuration time.Duration, logger *slog.Logger) time.Duration {
	if durationStr == "" || durationStr == "0" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		if logger != nil {
			logger.Warn("Invalid duration format, using default", "input", durationStr, "default", defaultDuration.String(), "error", err)
		}
		return defaultDuration
	}
	return d
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TCPAddress:      "127.0.0.1:7311",
			HTTPAddress:     "127.0.0.1:7312",
			ShutdownTimeout: "10s",
			TLS: TLSConfig{
				Enabled:  false,
				CertFile: "certs/server.crt",
				KeyFile:  "certs/server.key",
			},
		},
		Storage: StorageConfig{
			Path:    "./data/data.kiv",
			History: false,
		},
		Auth: AuthConfig{
			Enabled:    false,
			NameClaim:  "name",
			EmailClaim: "email",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File:   "kivdb.log",
		},
		Identity: IdentityConfig{
			Name:  "kivdb",
			Email: "kivdb@localhost",
		},
	}
}

// Load reads configuration from an io.Reader over the defaults. A nil
// reader or empty input yields the defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth is enabled but auth.jwt_secret is empty")
	}

	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}
