// Package config loads the webmaild binary configuration.
//
// Values come from defaults, an optional config file and WEBMAIL_*
// environment variables, in increasing precedence. Library packages are
// configured with functional options; viper stops at the binary edge.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full webmaild configuration.
type Config struct {
	Listen   string   `mapstructure:"listen"`
	Database Database `mapstructure:"database"`
	Webhook  Webhook  `mapstructure:"webhook"`
	SMTP     SMTP     `mapstructure:"smtp"`
	S3       S3       `mapstructure:"s3"`
	Otel     Otel     `mapstructure:"otel"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Webhook holds inbound webhook settings.
type Webhook struct {
	// SigningKey is the shared secret for inbound signature verification.
	SigningKey string `mapstructure:"signing_key"`
}

// SMTP holds outbound relay settings. An empty host disables the relay;
// sends then persist the Sent copy only.
type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Account  string `mapstructure:"account"`
	Password string `mapstructure:"password"`
}

// S3 holds attachment object-store settings. An empty bucket disables
// the upload endpoint.
type S3 struct {
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	PathStyle     bool   `mapstructure:"path_style"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
}

// Otel holds instrumentation toggles.
type Otel struct {
	Tracing bool `mapstructure:"tracing"`
	Metrics bool `mapstructure:"metrics"`
}

// Load reads configuration from the given file (optional, "" skips it),
// the environment and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", ":8080")
	v.SetDefault("database.dsn", "postgres://localhost/webmail?sslmode=disable")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("s3.prefix", "attachments")
	v.SetDefault("s3.region", "us-east-1")

	v.SetEnvPrefix("WEBMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
