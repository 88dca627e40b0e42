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


package gavel

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := NewConfig(
		WithDatabasePath("/tmp/gavel"),
		WithPrometheusRegistry(reg),
		WithEventQueueSize(50),
		WithTracing(true),
		WithTracingStdout(true),
		WithTracingEndpoint("http://localhost:4318"),
		WithShutdownTimeout(5*time.Second),
	)
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, "/tmp/gavel", cfg.dataDir)
	assert.Equal(t, reg, cfg.promRegistry)
	assert.Equal(t, 50, cfg.eventQueueSize)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, "http://localhost:4318", cfg.tracingEndpoint)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		opts  []ConfigOptionFunc
		valid bool
	}{
		{"defaults", nil, true},
		{"negative queue", []ConfigOptionFunc{WithEventQueueSize(-1)}, false},
		{"negative timeout", []ConfigOptionFunc{WithShutdownTimeout(-time.Second)}, false},
		{"stdout without tracing", []ConfigOptionFunc{WithTracingStdout(true)}, false},
		{"stdout tracing", []ConfigOptionFunc{WithTracing(true), WithTracingStdout(true)}, true},
	}
	for _, tt := range tests {
		n := &Node{config: NewConfig(tt.opts...)}
		err := n.configValidate()
		if tt.valid {
			assert.NoError(t, err, tt.name)
		} else {
			assert.Error(t, err, tt.name)
		}
	}
}

func TestShutdownTimeoutDefault(t *testing.T) {
	n := &Node{config: NewConfig()}
	assert.Equal(t, DefaultShutdownTimeout, n.ShutdownTimeout())
	n = &Node{config: NewConfig(WithShutdownTimeout(time.Second))}
	assert.Equal(t, time.Second, n.ShutdownTimeout())
}
