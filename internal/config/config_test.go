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
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		DatabasePath:    ".gavel",
		BindAddr:        "127.0.0.1",
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsPort:     12799,
		EventQueueSize:  1000,
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "gavel.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoadDefaults(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ".gavel", cfg.DatabasePath)
	assert.Equal(t, uint(12799), cfg.MetricsPort)
	assert.False(t, cfg.Tracing)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadCompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfig(t, `
databasePath: "/var/lib/gavel"
bindAddr: "0.0.0.0"
logLevel: debug
shutdownTimeout: 5s
tracingEndpoint: "collector:4318"
metricsPort: 9100
eventQueueSize: 64
tracing: true
tracingStdout: true
`)
	expected := &Config{
		DatabasePath:    "/var/lib/gavel",
		BindAddr:        "0.0.0.0",
		LogLevel:        "debug",
		ShutdownTimeout: "5s",
		TracingEndpoint: "collector:4318",
		MetricsPort:     9100,
		EventQueueSize:  64,
		Tracing:         true,
		TracingStdout:   true,
	}
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, expected, cfg)
}

func TestLoadConfigSectionKeepsDefaults(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfig(t, `
config:
  metricsPort: 0
  databasePath: ""
`)
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint(0), cfg.MetricsPort)
	assert.Empty(t, cfg.DatabasePath)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfig(t, "metricsPort: 9100\nlogLevel: warn\n")
	t.Setenv("GAVEL_METRICS_PORT", "9200")
	t.Setenv("GAVEL_DATABASE_PATH", "/tmp/env")
	t.Setenv("GAVEL_TRACING", "true")
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint(9200), cfg.MetricsPort)
	assert.Equal(t, "/tmp/env", cfg.DatabasePath)
	assert.True(t, cfg.Tracing)
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadErrors(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
	}{
		{name: "malformed yaml", content: "metricsPort: [\n"},
		{name: "bad log level", content: "logLevel: loud\n"},
		{name: "bad timeout", content: "shutdownTimeout: soon\n"},
		{name: "negative timeout", content: "shutdownTimeout: -1s\n"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			resetGlobalConfig()
			_, err := LoadConfig(writeConfig(t, testDef.content))
			require.Error(t, err)
		})
	}
	resetGlobalConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	timeout, err := cfg.ParseShutdownTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := &Config{DatabasePath: "x"}
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
