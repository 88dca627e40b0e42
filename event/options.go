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

package event

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type EventBusOptionFunc func(*EventBus)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) EventBusOptionFunc {
	return func(e *EventBus) {
		e.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus registry to register metrics with
func WithPrometheusRegistry(registry prometheus.Registerer) EventBusOptionFunc {
	return func(e *EventBus) {
		if registry != nil {
			e.initMetrics(registry)
		}
	}
}

// WithQueueSize specifies the channel buffer of each in-memory subscriber
func WithQueueSize(size int) EventBusOptionFunc {
	return func(e *EventBus) {
		if size > 0 {
			e.queueSize = size
		}
	}
}

// WithAsyncQueueSize specifies the capacity of the PublishAsync queue
func WithAsyncQueueSize(size int) EventBusOptionFunc {
	return func(e *EventBus) {
		if size > 0 {
			e.asyncQueueSize = size
		}
	}
}

// WithAsyncWorkers specifies the number of goroutines draining the async queue
func WithAsyncWorkers(count int) EventBusOptionFunc {
	return func(e *EventBus) {
		if count > 0 {
			e.asyncWorkerCount = count
		}
	}
}
