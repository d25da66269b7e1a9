// Package config loads the YAML configuration of the appsync-publisher CLI.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AuthNone   = "none"
	AuthAPIKey = "api_key"
	AuthOIDC   = "oidc"
	AuthIAM    = "iam"

	ProtocolGraphQLWS = "graphql-ws"
	ProtocolMQTT      = "mqtt"
)

type Config struct {
	Version          int           `yaml:"version"`
	Endpoint         string        `yaml:"endpoint"`
	RealtimeEndpoint string        `yaml:"realtime_endpoint"`
	Region           string        `yaml:"region"`
	Protocol         string        `yaml:"protocol"`
	SubscriberID     string        `yaml:"subscriber_id"`
	Timeout          time.Duration `yaml:"timeout"`
	Proxy            string        `yaml:"proxy"`
	Auth             AuthConfig    `yaml:"auth"`
	Cache            CacheConfig   `yaml:"cache"`
}

type AuthConfig struct {
	Type       string `yaml:"type"`
	APIKey     string `yaml:"api_key"`
	Token      string `yaml:"token"`
	SDKVersion string `yaml:"sdk_version"`
}

type CacheConfig struct {
	// Path of the SQLite cache. Empty keeps the cache in memory.
	Path string `yaml:"path"`
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolGraphQLWS
	}
	if cfg.Auth.Type == "" {
		cfg.Auth.Type = AuthNone
	}
	if cfg.Auth.Type == AuthIAM && cfg.Auth.SDKVersion == "" {
		cfg.Auth.SDKVersion = "v2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Protocol == ProtocolGraphQLWS && cfg.RealtimeEndpoint == "" {
		cfg.RealtimeEndpoint = RealtimeEndpoint(cfg.Endpoint)
	}
}

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}

	switch cfg.Protocol {
	case ProtocolGraphQLWS, ProtocolMQTT:
	default:
		return fmt.Errorf("unsupported protocol: %s", cfg.Protocol)
	}

	switch cfg.Auth.Type {
	case AuthNone:
	case AuthAPIKey:
		if cfg.Auth.APIKey == "" {
			return fmt.Errorf("auth api_key is required")
		}
	case AuthOIDC:
		if cfg.Auth.Token == "" {
			return fmt.Errorf("auth token is required")
		}
	case AuthIAM:
		if cfg.Region == "" {
			return fmt.Errorf("region is required for iam auth")
		}
		if cfg.Auth.SDKVersion != "v1" && cfg.Auth.SDKVersion != "v2" {
			return fmt.Errorf("unsupported sdk_version: %s", cfg.Auth.SDKVersion)
		}
	default:
		return fmt.Errorf("unsupported auth type: %s", cfg.Auth.Type)
	}

	return nil
}

// RealtimeEndpoint derives the AppSync realtime endpoint from a GraphQL endpoint.
func RealtimeEndpoint(endpoint string) string {
	realtime := strings.Replace(endpoint, "https://", "wss://", 1)
	realtime = strings.Replace(realtime, "http://", "ws://", 1)
	return strings.Replace(realtime, "appsync-api", "appsync-realtime-api", 1)
}
