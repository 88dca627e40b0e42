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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type indexerMetrics struct {
	logsIndexed prometheus.Counter
	failures    prometheus.Counter
	lastBlock   prometheus.Gauge
}

func newIndexerMetrics(registry prometheus.Registerer) *indexerMetrics {
	factory := promauto.With(registry)
	return &indexerMetrics{
		logsIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_indexer_logs_total",
			Help: "total number of logs written by the indexer",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_indexer_failures_total",
			Help: "total number of failed index writes",
		}),
		lastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gavel_indexer_block",
			Help: "block of the last indexed operation",
		}),
	}
}
