// Package config provides configuration loading for deploytrace components.
// It supports loading from INI files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds all configuration options for the traceability server.
type Config struct {
	Port         string
	DBPath       string
	DebugEnabled bool

	// CreateImageFingerprints creates image identities on first sight
	// instead of requiring prior registration.
	CreateImageFingerprints bool

	// OpenTelemetry metrics push
	OTELEnabled      bool
	OTELEndpoint     string
	OTELProtocol     string
	OTELInsecure     bool
	OTELPushInterval time.Duration
}

// AgentConfig holds all configuration options for the host agent.
type AgentConfig struct {
	ServerURL      string
	Environment    string
	ResyncInterval time.Duration
	DebugEnabled   bool
}

// defaultConfig returns a Config with hardcoded defaults.
func defaultConfig() *Config {
	return &Config{
		Port:                    "9400",
		DBPath:                  "/var/lib/deploytrace/ledger.db",
		DebugEnabled:            false,
		CreateImageFingerprints: false,

		OTELEnabled:      false,
		OTELEndpoint:     "localhost:4317",
		OTELProtocol:     "grpc",
		OTELInsecure:     true,
		OTELPushInterval: 60 * time.Second,
	}
}

// defaultAgentConfig returns an AgentConfig with hardcoded defaults.
func defaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		ServerURL:      "http://localhost:9400",
		Environment:    "",
		ResyncInterval: 15 * time.Minute,
		DebugEnabled:   false,
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}

// LoadConfig loads server configuration from the specified file path.
// Precedence: environment variables > config file > defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			iniFile, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}

			section := iniFile.Section("")

			if section.HasKey("port") {
				cfg.Port = section.Key("port").String()
			}
			if section.HasKey("db_path") {
				cfg.DBPath = section.Key("db_path").String()
			}
			if section.HasKey("debug_enabled") {
				cfg.DebugEnabled = parseBool(section.Key("debug_enabled").String())
			}
			if section.HasKey("create_image_fingerprints") {
				cfg.CreateImageFingerprints = parseBool(section.Key("create_image_fingerprints").String())
			}
			if section.HasKey("otel_enabled") {
				cfg.OTELEnabled = parseBool(section.Key("otel_enabled").String())
			}
			if section.HasKey("otel_endpoint") {
				cfg.OTELEndpoint = section.Key("otel_endpoint").String()
			}
			if section.HasKey("otel_protocol") {
				cfg.OTELProtocol = section.Key("otel_protocol").String()
			}
			if section.HasKey("otel_insecure") {
				cfg.OTELInsecure = parseBool(section.Key("otel_insecure").String())
			}
			if section.HasKey("otel_push_interval") {
				if duration, err := time.ParseDuration(section.Key("otel_push_interval").String()); err == nil {
					cfg.OTELPushInterval = duration
				}
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot access config file %s: %w", path, err)
		}
		// Missing file is fine, defaults apply
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DEBUG_ENABLED"); v != "" {
		cfg.DebugEnabled = parseBool(v)
	}
	if v := os.Getenv("CREATE_IMAGE_FINGERPRINTS"); v != "" {
		cfg.CreateImageFingerprints = parseBool(v)
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.OTELEnabled = parseBool(v)
	}
	if v := os.Getenv("OTEL_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_PROTOCOL"); v != "" {
		cfg.OTELProtocol = v
	}
	if v := os.Getenv("OTEL_INSECURE"); v != "" {
		cfg.OTELInsecure = parseBool(v)
	}
	if v := os.Getenv("OTEL_PUSH_INTERVAL"); v != "" {
		if duration, err := time.ParseDuration(v); err == nil {
			cfg.OTELPushInterval = duration
		}
	}

	return cfg, nil
}

// LoadConfigWithDefaults tries to load server configuration from default
// locations, falling back to hardcoded defaults with environment variable
// overrides.
func LoadConfigWithDefaults() (*Config, error) {
	defaultPaths := []string{
		"/etc/deploytrace/server.conf",
		"./server.conf",
	}

	for _, path := range defaultPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}
	return LoadConfig("")
}

// LoadAgentConfig loads agent configuration from the specified file path.
// Precedence: environment variables > config file > defaults.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	cfg := defaultAgentConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			iniFile, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}

			section := iniFile.Section("")

			if section.HasKey("server_url") {
				cfg.ServerURL = section.Key("server_url").String()
			}
			if section.HasKey("environment") {
				cfg.Environment = section.Key("environment").String()
			}
			if section.HasKey("resync_interval") {
				if duration, err := time.ParseDuration(section.Key("resync_interval").String()); err == nil {
					cfg.ResyncInterval = duration
				}
			}
			if section.HasKey("debug_enabled") {
				cfg.DebugEnabled = parseBool(section.Key("debug_enabled").String())
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot access config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("RESYNC_INTERVAL"); v != "" {
		if duration, err := time.ParseDuration(v); err == nil {
			cfg.ResyncInterval = duration
		}
	}
	if v := os.Getenv("DEBUG_ENABLED"); v != "" {
		cfg.DebugEnabled = parseBool(v)
	}

	return cfg, nil
}

// LoadAgentConfigWithDefaults tries to load agent configuration from
// default locations.
func LoadAgentConfigWithDefaults() (*AgentConfig, error) {
	defaultPaths := []string{
		"/etc/deploytrace/agent.conf",
		"./agent.conf",
	}

	for _, path := range defaultPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadAgentConfig(path)
		}
	}
	return LoadAgentConfig("")
}
