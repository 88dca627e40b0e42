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

package sqlite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metadataMetrics struct {
	eventsStored prometheus.Counter
}

func newMetadataMetrics(registry prometheus.Registerer) *metadataMetrics {
	return &metadataMetrics{
		eventsStored: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_database_events_stored_total",
				Help: "Total number of events written to the metadata index",
			},
		),
	}
}
