// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "gavel.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultLogLevel        = "info"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	DatabasePath    string `yaml:"databasePath"    split_words:"true"`
	BindAddr        string `yaml:"bindAddr"        split_words:"true"`
	LogLevel        string `yaml:"logLevel"        split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
	// TracingEndpoint overrides the OTLP HTTP endpoint taken from the
	// standard OTEL_EXPORTER_OTLP_* environment
	TracingEndpoint string `yaml:"tracingEndpoint" split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"     split_words:"true"`
	EventQueueSize  int    `yaml:"eventQueueSize"  split_words:"true"`
	Tracing         bool   `yaml:"tracing"`
	TracingStdout   bool   `yaml:"tracingStdout"   split_words:"true"`
}

// ParseShutdownTimeout returns the configured shutdown timeout
func (c *Config) ParseShutdownTimeout() (time.Duration, error) {
	timeout := c.ShutdownTimeout
	if timeout == "" {
		timeout = DefaultShutdownTimeout
	}
	ret, err := time.ParseDuration(timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: %w", timeout, err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: must be positive", timeout)
	}
	return ret, nil
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() (slog.Level, error) {
	var ret slog.Level
	if err := ret.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return ret, fmt.Errorf("invalid logLevel %q: %w", c.LogLevel, err)
	}
	return ret, nil
}

var globalConfig = &Config{
	DatabasePath:    ".gavel",
	BindAddr:        "127.0.0.1",
	LogLevel:        DefaultLogLevel,
	ShutdownTimeout: DefaultShutdownTimeout,
	MetricsPort:     12799,
	EventQueueSize:  1000,
}

func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		// Check for config file in this path: ~/.gavel/gavel.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".gavel", "gavel.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if !tempCfg.Config.IsZero() {
			// Overlay the config section onto existing defaults
			if err := tempCfg.Config.Decode(globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("gavel", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if _, err := globalConfig.SlogLevel(); err != nil {
		return nil, err
	}
	if _, err := globalConfig.ParseShutdownTimeout(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
