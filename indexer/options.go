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

package indexer

import (
	"log/slog"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
)

type IndexerOptionFunc func(*Indexer)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) IndexerOptionFunc {
	return func(i *Indexer) {
		i.logger = logger
	}
}

// WithEventBus specifies the event bus to receive committed logs from
func WithEventBus(eventBus *event.EventBus) IndexerOptionFunc {
	return func(i *Indexer) {
		i.eventBus = eventBus
	}
}

// WithDatabase specifies the database that logs are written to
func WithDatabase(db *database.Database) IndexerOptionFunc {
	return func(i *Indexer) {
		i.db = db
	}
}

// WithPromRegistry specifies a prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) IndexerOptionFunc {
	return func(i *Indexer) {
		i.promRegistry = registry
	}
}
