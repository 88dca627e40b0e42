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

package chain

import (
	"log/slog"

	"github.com/blinklabs-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
)

type chainConfig struct {
	logger       *slog.Logger
	eventBus     *event.EventBus
	promRegistry prometheus.Registerer
	startBlock   uint64
}

type ChainOptionFunc func(*chainConfig)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ChainOptionFunc {
	return func(c *chainConfig) {
		c.logger = logger
	}
}

// WithEventBus specifies the event bus that committed logs are published to
func WithEventBus(eventBus *event.EventBus) ChainOptionFunc {
	return func(c *chainConfig) {
		c.eventBus = eventBus
	}
}

// WithPromRegistry specifies a prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) ChainOptionFunc {
	return func(c *chainConfig) {
		c.promRegistry = registry
	}
}

// WithStartBlock specifies the initial block number
func WithStartBlock(block uint64) ChainOptionFunc {
	return func(c *chainConfig) {
		c.startBlock = block
	}
}
