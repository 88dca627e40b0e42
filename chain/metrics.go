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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type chainMetrics struct {
	blockNum     prometheus.Gauge
	opsCommitted prometheus.Counter
	opsReverted  prometheus.Counter
	logsEmitted  prometheus.Counter
	deployments  prometheus.Counter
}

func (m *chainMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.blockNum = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gavel_chain_block_num",
		Help: "current block number",
	})
	m.opsCommitted = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_chain_operations_committed_total",
		Help: "total number of committed operations",
	})
	m.opsReverted = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_chain_operations_reverted_total",
		Help: "total number of reverted operations",
	})
	m.logsEmitted = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_chain_logs_emitted_total",
		Help: "total number of logs emitted by committed operations",
	})
	m.deployments = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_chain_deployments_total",
		Help: "total number of deployed contracts",
	})
}
